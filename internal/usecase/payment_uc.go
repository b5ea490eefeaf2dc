// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// MinAmountXMR is the smallest crypto checkout accepted.
var MinAmountXMR = decimal.RequireFromString("0.0001")

type PaymentUseCase interface {
	// Create opens a checkout on the provider and stores a PENDING payment.
	// amountXMR is required on the crypto rail and ignored on the fiat rail.
	Create(ctx context.Context, userID, plan string, amountXMR *decimal.Decimal) (*CreatedPayment, error)
	// Status returns the payment only when it belongs to userID.
	Status(ctx context.Context, paymentID, userID string) (*model.Payment, error)
	// Confirm moves a PENDING payment to CONFIRMED under a row lock and queues
	// the PaymentConfirmed event on the same transaction. A repeated call
	// returns domain.ErrPaymentAlreadyConfirmed and publishes nothing.
	Confirm(ctx context.Context, paymentID string) error
	ConfirmByExternalRef(ctx context.Context, ref string) error
	// MarkFailedByExternalRef fails a PENDING payment; other states are left alone.
	MarkFailedByExternalRef(ctx context.Context, ref string) error
	ListPending(ctx context.Context, limit int) ([]*model.Payment, error)
}

// CreatedPayment is what the client needs to complete a checkout.
type CreatedPayment struct {
	Payment      *model.Payment
	ClientSecret string     // fiat
	Address      string     // crypto
	ExpiresAt    *time.Time // crypto
}

type paymentUC struct {
	rail        model.Rail
	payments    repository.PaymentRepository
	checkout    adapter.CheckoutProvider
	events      adapter.EventPublisher
	tm          repository.TransactionManager
	checkoutTTL time.Duration
	log         *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	checkout adapter.CheckoutProvider,
	events adapter.EventPublisher,
	tm repository.TransactionManager,
	checkoutTTL time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Str("rail", string(checkout.Rail())).Logger()
	return &paymentUC{
		rail:        checkout.Rail(),
		payments:    payments,
		checkout:    checkout,
		events:      events,
		tm:          tm,
		checkoutTTL: checkoutTTL,
		log:         &l,
	}
}

func (u *paymentUC) Create(ctx context.Context, userID, planName string, amountXMR *decimal.Decimal) (_ *CreatedPayment, err error) {
	start := time.Now()
	planTag := planName
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.ObservePaymentCreated(string(u.rail), planTag, outcome, time.Since(start))
	}()

	plan, err := model.ParsePlan(planName)
	if err != nil {
		return nil, err
	}
	planTag = string(plan)

	p, err := model.NewPayment(userID, plan, u.rail)
	if err != nil {
		return nil, err
	}
	req := adapter.CheckoutRequest{
		PaymentID:    p.ID,
		UserID:       userID,
		Plan:         plan,
		DurationDays: p.DurationDays,
	}
	switch u.rail {
	case model.RailFiat:
		p.AmountMinor = plan.PriceMinor()
		p.Currency = model.CurrencySEK
		req.AmountMinor, req.Currency = p.AmountMinor, p.Currency
	case model.RailCrypto:
		if amountXMR == nil || amountXMR.LessThan(MinAmountXMR) {
			return nil, domain.ErrInvalidAmount
		}
		p.AmountXMR = *amountXMR
		p.Currency = model.CurrencyXMR
		req.AmountXMR, req.Currency = p.AmountXMR, p.Currency
	}

	co, err := u.checkout.OpenCheckout(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open checkout: %w", err)
	}
	p.ExternalRef = co.ExternalRef
	p.WalletAccountIndex = co.AccountIndex
	p.WalletSubaddressIndex = co.SubaddressIndex

	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	out := &CreatedPayment{Payment: p, ClientSecret: co.ClientSecret, Address: co.Address}
	if u.rail == model.RailCrypto {
		exp := p.CreatedAt.Add(u.checkoutTTL)
		out.ExpiresAt = &exp
	}
	logging.With(ctx, u.log).Info().
		Str("payment_id", p.ID).
		Str("plan", string(plan)).
		Msg("payment created")
	return out, nil
}

func (u *paymentUC) Status(ctx context.Context, paymentID, userID string) (*model.Payment, error) {
	return u.payments.FindByIDAndUser(ctx, nil, paymentID, userID)
}

func (u *paymentUC) Confirm(ctx context.Context, paymentID string) error {
	start := time.Now()
	outcome, planTag := "error", "unknown"
	var confirmed *model.Payment
	l := logging.With(ctx, u.log).With().Str("payment_id", paymentID).Logger()

	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		planTag = string(p.Plan)
		if err := p.Confirm(time.Now().UTC()); err != nil {
			return err
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		confirmed = p
		return u.events.Publish(ctx, model.PaymentConfirmed{Payment: *p, OccurredAt: *p.ConfirmedAt})
	})

	switch {
	case err == nil:
		outcome = "success"
		metrics.ObserveTimeToConfirm(string(u.rail), planTag, confirmed.ConfirmedAt.Sub(confirmed.CreatedAt))
		l.Info().Msg("payment confirmed; activation queued")
	case errors.Is(err, domain.ErrInvalidPaymentState):
		outcome = "invalid_state"
		l.Warn().Err(err).Msg("payment is not pending")
	default:
		l.Error().Err(err).Msg("confirm payment failed")
	}
	metrics.ObservePaymentConfirmed(string(u.rail), planTag, outcome, time.Since(start))
	if err != nil {
		return fmt.Errorf("confirm payment %s: %w", paymentID, err)
	}
	return nil
}

func (u *paymentUC) ConfirmByExternalRef(ctx context.Context, ref string) error {
	p, err := u.payments.FindByExternalRef(ctx, nil, ref)
	if err != nil {
		return err
	}
	return u.Confirm(ctx, p.ID)
}

func (u *paymentUC) MarkFailedByExternalRef(ctx context.Context, ref string) error {
	p, err := u.payments.FindByExternalRef(ctx, nil, ref)
	if err != nil {
		return err
	}
	failed := false
	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := u.payments.FindByIDForUpdate(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if !locked.IsPending() {
			return nil
		}
		if err := locked.Fail(time.Now().UTC()); err != nil {
			return err
		}
		failed = true
		return u.payments.Save(ctx, tx, locked)
	})
	if err != nil {
		return fmt.Errorf("mark payment %s failed: %w", p.ID, err)
	}
	if failed {
		metrics.IncPaymentFailed(string(u.rail), "provider")
		logging.With(ctx, u.log).Info().Str("payment_id", p.ID).Msg("payment marked failed by provider")
	}
	return nil
}

func (u *paymentUC) ListPending(ctx context.Context, limit int) ([]*model.Payment, error) {
	return u.payments.ListByStatus(ctx, nil, model.PaymentStatusPending, limit)
}
