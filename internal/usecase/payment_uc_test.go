//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/db/memory"
	"nova-payments/internal/usecase"
)

type paymentDeps struct {
	store    *memory.Store
	payments *memory.PaymentRepo
	checkout *MockCheckout
	events   *MockPublisher
	uc       usecase.PaymentUseCase
}

func newPaymentDeps(rail model.Rail) *paymentDeps {
	store := memory.NewStore()
	d := &paymentDeps{
		store:    store,
		payments: memory.NewPaymentRepo(store),
		checkout: NewMockCheckout(rail),
		events:   &MockPublisher{},
	}
	d.uc = usecase.NewPaymentUseCase(d.payments, d.checkout, d.events, memory.NewTxManager(store), 24*time.Hour, newTestLogger())
	return d
}

func TestPaymentUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should open a fiat checkout priced by plan", func(t *testing.T) {
		// --- Arrange ---
		d := newPaymentDeps(model.RailFiat)

		// --- Act ---
		out, err := d.uc.Create(ctx, "user-1", "Monthly", nil)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		p := out.Payment
		if p.Status != model.PaymentStatusPending || p.Plan != model.PlanMonthly || p.DurationDays != 30 {
			t.Errorf("unexpected payment: %+v", p)
		}
		if p.AmountMinor != 4900 || p.Currency != model.CurrencySEK {
			t.Errorf("expected 4900 SEK, got %d %s", p.AmountMinor, p.Currency)
		}
		if out.ClientSecret == "" || p.ExternalRef != "pi_"+p.ID {
			t.Errorf("checkout data not carried over: %+v", out)
		}
		if out.ExpiresAt != nil {
			t.Error("fiat payments have no expiry")
		}
		stored, err := d.payments.FindByExternalRef(ctx, nil, p.ExternalRef)
		if err != nil || stored.ID != p.ID {
			t.Errorf("payment not persisted: %v", err)
		}
	})

	t.Run("should open a crypto checkout with wallet indices and expiry", func(t *testing.T) {
		// --- Arrange ---
		d := newPaymentDeps(model.RailCrypto)
		amount := decimal.RequireFromString("0.05")

		// --- Act ---
		out, err := d.uc.Create(ctx, "user-1", "yearly", &amount)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		p := out.Payment
		if !p.AmountXMR.Equal(amount) || p.Currency != model.CurrencyXMR {
			t.Errorf("unexpected amount %s %s", p.AmountXMR, p.Currency)
		}
		if !p.HasWalletSlot() || *p.WalletSubaddressIndex != 7 {
			t.Errorf("wallet indices not stored: %+v", p)
		}
		if out.Address == "" || out.ExpiresAt == nil || !out.ExpiresAt.Equal(p.CreatedAt.Add(24*time.Hour)) {
			t.Errorf("unexpected crypto checkout: %+v", out)
		}
	})

	t.Run("should reject crypto amounts below the minimum", func(t *testing.T) {
		d := newPaymentDeps(model.RailCrypto)
		tiny := decimal.RequireFromString("0.00009")

		_, err := d.uc.Create(ctx, "user-1", "monthly", &tiny)

		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
		if len(d.checkout.Calls) != 0 {
			t.Error("checkout must not be opened for an invalid amount")
		}
	})

	t.Run("should reject unknown plans before calling the provider", func(t *testing.T) {
		d := newPaymentDeps(model.RailFiat)

		_, err := d.uc.Create(ctx, "user-1", "weekly", nil)

		if !errors.Is(err, domain.ErrInvalidPlan) {
			t.Errorf("expected ErrInvalidPlan, got %v", err)
		}
		if len(d.checkout.Calls) != 0 {
			t.Error("checkout must not be opened for an invalid plan")
		}
	})

	t.Run("should store nothing when the provider fails", func(t *testing.T) {
		d := newPaymentDeps(model.RailFiat)
		d.checkout.OpenCheckoutFunc = func(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
			return nil, errors.New("stripe down")
		}

		_, err := d.uc.Create(ctx, "user-1", "monthly", nil)

		if err == nil {
			t.Fatal("expected an error")
		}
		pending, _ := d.uc.ListPending(ctx, 10)
		if len(pending) != 0 {
			t.Errorf("expected no stored payments, got %d", len(pending))
		}
	})
}

func TestPaymentUseCase_Status(t *testing.T) {
	ctx := context.Background()
	d := newPaymentDeps(model.RailFiat)
	out, err := d.uc.Create(ctx, "user-1", "monthly", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := d.uc.Status(ctx, out.Payment.ID, "user-1"); err != nil {
		t.Errorf("owner must see the payment: %v", err)
	}
	if _, err := d.uc.Status(ctx, out.Payment.ID, "user-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for another user, got %v", err)
	}
}

func TestPaymentUseCase_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("should confirm once and publish one event", func(t *testing.T) {
		// --- Arrange ---
		d := newPaymentDeps(model.RailFiat)
		out, _ := d.uc.Create(ctx, "user-1", "monthly", nil)

		// --- Act ---
		first := d.uc.Confirm(ctx, out.Payment.ID)
		second := d.uc.Confirm(ctx, out.Payment.ID)

		// --- Assert ---
		if first != nil {
			t.Fatalf("expected first confirm to succeed, got %v", first)
		}
		if !errors.Is(second, domain.ErrPaymentAlreadyConfirmed) {
			t.Errorf("expected ErrPaymentAlreadyConfirmed, got %v", second)
		}
		if len(d.events.Events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(d.events.Events))
		}
		evt, ok := d.events.Events[0].(model.PaymentConfirmed)
		if !ok || evt.Payment.ID != out.Payment.ID || evt.Payment.Status != model.PaymentStatusConfirmed {
			t.Errorf("unexpected event %+v", d.events.Events[0])
		}
		p, _ := d.payments.FindByID(ctx, nil, out.Payment.ID)
		if p.Status != model.PaymentStatusConfirmed || p.ConfirmedAt == nil {
			t.Errorf("payment not confirmed: %+v", p)
		}
	})

	t.Run("should roll back the confirmation when publishing fails", func(t *testing.T) {
		d := newPaymentDeps(model.RailFiat)
		out, _ := d.uc.Create(ctx, "user-1", "monthly", nil)
		d.events.PublishFunc = func(ctx context.Context, evt adapter.Event) error { return errors.New("queue full") }

		err := d.uc.Confirm(ctx, out.Payment.ID)

		if err == nil {
			t.Fatal("expected an error")
		}
		p, _ := d.payments.FindByID(ctx, nil, out.Payment.ID)
		if p.Status != model.PaymentStatusPending {
			t.Errorf("expected payment to stay PENDING, got %s", p.Status)
		}
	})

	t.Run("should report unknown payments", func(t *testing.T) {
		d := newPaymentDeps(model.RailFiat)
		if err := d.uc.Confirm(ctx, "missing"); !errors.Is(err, domain.ErrPaymentNotFound) {
			t.Errorf("expected ErrPaymentNotFound, got %v", err)
		}
		if err := d.uc.ConfirmByExternalRef(ctx, "pi_missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPaymentUseCase_MarkFailedByExternalRef(t *testing.T) {
	ctx := context.Background()

	t.Run("should fail a pending payment and block later confirmation", func(t *testing.T) {
		d := newPaymentDeps(model.RailFiat)
		out, _ := d.uc.Create(ctx, "user-1", "monthly", nil)

		if err := d.uc.MarkFailedByExternalRef(ctx, out.Payment.ExternalRef); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
		err := d.uc.ConfirmByExternalRef(ctx, out.Payment.ExternalRef)

		if !errors.Is(err, domain.ErrPaymentAlreadyFailed) {
			t.Errorf("expected ErrPaymentAlreadyFailed, got %v", err)
		}
		if len(d.events.Events) != 0 {
			t.Error("no event may be published for a failed payment")
		}
	})

	t.Run("should leave a confirmed payment untouched", func(t *testing.T) {
		d := newPaymentDeps(model.RailFiat)
		out, _ := d.uc.Create(ctx, "user-1", "monthly", nil)
		_ = d.uc.Confirm(ctx, out.Payment.ID)

		if err := d.uc.MarkFailedByExternalRef(ctx, out.Payment.ExternalRef); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		p, _ := d.payments.FindByID(ctx, nil, out.Payment.ID)
		if p.Status != model.PaymentStatusConfirmed {
			t.Errorf("expected CONFIRMED, got %s", p.Status)
		}
	})
}
