// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

const notifyTimeout = 5 * time.Second

// ActivationUseCase is the second half of the confirm saga: it grants the
// entitlement for a confirmed payment or compensates by failing the payment.
type ActivationUseCase interface {
	// HandlePaymentConfirmed is the event handler registered on the bus.
	HandlePaymentConfirmed(ctx context.Context, evt adapter.Event) error
	// ActivateForPayment calls the subscription service with retries. When
	// every attempt fails the payment is moved to FAILED in a transaction of
	// its own and the activation error is returned.
	ActivateForPayment(ctx context.Context, p model.Payment) error
}

type activationUC struct {
	subs     adapter.SubscriptionsClient
	notifier adapter.Notifier
	payments repository.PaymentRepository
	tm       repository.TransactionManager
	retry    RetryPolicy
	log      *zerolog.Logger
}

func NewActivationUseCase(
	subs adapter.SubscriptionsClient,
	notifier adapter.Notifier,
	payments repository.PaymentRepository,
	tm repository.TransactionManager,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *activationUC {
	l := logger.With().Str("component", "ActivationUC").Logger()
	return &activationUC{
		subs:     subs,
		notifier: notifier,
		payments: payments,
		tm:       tm,
		retry:    retry.normalized(),
		log:      &l,
	}
}

func (u *activationUC) HandlePaymentConfirmed(ctx context.Context, evt adapter.Event) error {
	e, ok := evt.(model.PaymentConfirmed)
	if !ok {
		return fmt.Errorf("%w: unexpected event %T", domain.ErrInvalidArgument, evt)
	}
	return u.ActivateForPayment(ctx, e.Payment)
}

func (u *activationUC) ActivateForPayment(ctx context.Context, p model.Payment) error {
	l := logging.With(ctx, u.log).With().
		Str("payment_id", p.ID).
		Str("user_id", p.UserID).
		Str("plan", string(p.Plan)).
		Logger()

	req := adapter.ActivationRequest{
		UserID:       p.UserID,
		Plan:         string(p.Plan),
		DurationDays: p.DurationDays,
		TxID:         p.ID,
	}
	err := u.activateWithRetry(ctx, req, &l)
	if err == nil {
		metrics.IncActivationOutcome(string(p.Plan), "activated")
		l.Info().Msg("subscription activated")
		u.notify(ctx, p, &l)
		return nil
	}

	l.Error().Err(err).Msg("activation failed; compensating")
	if cerr := u.revoke(ctx, p.ID); cerr != nil {
		metrics.IncActivationOutcome(string(p.Plan), "compensation_error")
		l.Error().Err(cerr).Msg("compensation failed; payment left CONFIRMED")
		return errors.Join(fmt.Errorf("activate payment %s: %w", p.ID, err), cerr)
	}
	metrics.IncActivationOutcome(string(p.Plan), "compensated")
	metrics.IncPaymentFailed(string(p.Rail), "activation")
	return fmt.Errorf("activate payment %s: %w", p.ID, domain.ErrSubscriptionActivationFailed)
}

func (u *activationUC) activateWithRetry(ctx context.Context, req adapter.ActivationRequest, l *zerolog.Logger) error {
	var err error
	for attempt := 1; attempt <= u.retry.MaxAttempts; attempt++ {
		err = u.subs.Activate(ctx, req)
		if err == nil {
			metrics.IncActivationAttempt("ok")
			return nil
		}
		if !IsTransient(err) {
			metrics.IncActivationAttempt("permanent")
			l.Warn().Err(err).Int("attempt", attempt).Msg("activation rejected")
			return err
		}
		metrics.IncActivationAttempt("transient")
		l.Warn().Err(err).Int("attempt", attempt).Msg("activation attempt failed")
		if attempt == u.retry.MaxAttempts {
			break
		}
		if serr := sleepCtx(ctx, u.retry.Backoff(attempt)); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

// revoke always runs in a fresh transaction, independent of the one that
// confirmed the payment.
func (u *activationUC) revoke(ctx context.Context, paymentID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if !p.RevokeConfirmation(time.Now().UTC()) {
			return nil
		}
		return u.payments.Save(ctx, tx, p)
	})
}

func (u *activationUC) notify(ctx context.Context, p model.Payment, l *zerolog.Logger) {
	if u.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := u.notifier.NotifyPaymentConfirmed(nctx, p); err != nil {
		l.Warn().Err(err).Msg("payment notification failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
