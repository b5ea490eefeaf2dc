// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// ActivateInput is an internal activation request.
type ActivateInput struct {
	UserID       string
	Plan         string
	DurationDays int
	// TxID makes the call replay-safe; empty disables the check.
	TxID string
}

type SubscriptionUseCase interface {
	// Activate extends the user's current window by DurationDays, or opens a
	// new one. A TxID seen before returns the subscription it produced.
	Activate(ctx context.Context, in ActivateInput) (*model.Subscription, error)
	// Cancel ends the user's current subscription now and returns it.
	Cancel(ctx context.Context, userID string) (*model.Subscription, error)
	HasAccess(ctx context.Context, userID string) (bool, error)
	// FindActive returns domain.ErrSubscriptionNotFound when nothing covers now.
	FindActive(ctx context.Context, userID string) (*model.Subscription, error)
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

type subscriptionUC struct {
	subs          repository.SubscriptionRepository
	tm            repository.TransactionManager
	fakeAllActive bool
	log           *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	fakeAllActive bool,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, tm: tm, fakeAllActive: fakeAllActive, log: &l}
}

func (u *subscriptionUC) Activate(ctx context.Context, in ActivateInput) (_ *model.Subscription, err error) {
	start := time.Now()
	kind := "create"
	in.Plan = strings.TrimSpace(in.Plan)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.ObserveSubscriptionActivated(kind, in.Plan, outcome, time.Since(start))
	}()

	if in.UserID == "" || in.Plan == "" || in.DurationDays < 1 {
		return nil, domain.ErrInvalidArgument
	}

	var out *model.Subscription
	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.LockUser(ctx, tx, in.UserID); err != nil {
			return err
		}

		if in.TxID != "" {
			subID, err := u.subs.FindActivation(ctx, tx, in.TxID)
			switch {
			case err == nil:
				kind = "replay"
				out, err = u.subs.FindByID(ctx, tx, subID)
				return err
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}

		now := time.Now().UTC()
		cur, err := u.subs.FindActiveAt(ctx, tx, in.UserID, now)
		switch {
		case err == nil:
			kind = "extend"
			if err := cur.Extend(in.Plan, in.DurationDays, now); err != nil {
				return err
			}
			out = cur
		case errors.Is(err, domain.ErrNotFound):
			out, err = model.NewSubscription(in.UserID, in.Plan, in.DurationDays, now)
			if err != nil {
				return err
			}
		default:
			return err
		}

		if err := u.subs.Save(ctx, tx, out); err != nil {
			return err
		}
		if in.TxID == "" {
			return nil
		}
		return u.subs.RecordActivation(ctx, tx, in.TxID, out.ID, now)
	})
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("user_id", in.UserID).Msg("activate subscription failed")
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	logging.With(ctx, u.log).Info().
		Str("user_id", in.UserID).
		Str("subscription_id", out.ID).
		Str("kind", kind).
		Time("end_at", out.EndAt).
		Msg("subscription activated")
	return out, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, userID string) (*model.Subscription, error) {
	var cancelled *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		now := time.Now().UTC()
		cur, err := u.subs.FindActiveAt(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		cur.Cancel(now)
		cancelled = cur
		return u.subs.Save(ctx, tx, cur)
	})
	switch {
	case err == nil:
		metrics.IncSubscriptionCancelled("cancelled")
		logging.With(ctx, u.log).Info().Str("user_id", userID).Msg("subscription cancelled")
		return cancelled, nil
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncSubscriptionCancelled("not_found")
		return nil, domain.ErrSubscriptionNotFound
	default:
		metrics.IncSubscriptionCancelled("error")
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
}

func (u *subscriptionUC) HasAccess(ctx context.Context, userID string) (bool, error) {
	if u.fakeAllActive {
		return true, nil
	}
	return u.subs.ExistsActiveAt(ctx, nil, userID, time.Now().UTC())
}

func (u *subscriptionUC) FindActive(ctx context.Context, userID string) (*model.Subscription, error) {
	s, err := u.subs.FindActiveAt(ctx, nil, userID, time.Now().UTC())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrSubscriptionNotFound
	}
	return s, err
}

func (u *subscriptionUC) ActiveUserIDs(ctx context.Context) ([]string, error) {
	return u.subs.ListActiveUserIDs(ctx, nil, time.Now().UTC())
}
