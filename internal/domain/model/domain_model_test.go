//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"nova-payments/internal/domain"
)

// --- Plan Tests ---

func TestParsePlan(t *testing.T) {
	t.Run("should normalize case and whitespace", func(t *testing.T) {
		p, err := ParsePlan("  Monthly ")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p != PlanMonthly {
			t.Errorf("expected plan %q, got %q", PlanMonthly, p)
		}
		if p.DurationDays() != 30 {
			t.Errorf("expected 30 days, got %d", p.DurationDays())
		}
	})

	t.Run("should price yearly plan in minor units", func(t *testing.T) {
		p, err := ParsePlan("YEARLY")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if p.DurationDays() != 365 || p.PriceMinor() != 49900 {
			t.Errorf("unexpected terms: days=%d price=%d", p.DurationDays(), p.PriceMinor())
		}
	})

	t.Run("should reject unknown plan", func(t *testing.T) {
		_, err := ParsePlan("weekly")
		if !errors.Is(err, domain.ErrInvalidPlan) {
			t.Errorf("expected ErrInvalidPlan, got %v", err)
		}
	})
}

// --- Payment Model Tests ---

func TestPaymentTransitions(t *testing.T) {
	now := time.Now().UTC()

	t.Run("should confirm a pending payment and stamp confirmedAt", func(t *testing.T) {
		p, err := NewPayment("u1", PlanMonthly, RailFiat)
		if err != nil {
			t.Fatalf("NewPayment failed: %v", err)
		}
		if p.Status != PaymentStatusPending || p.ConfirmedAt != nil {
			t.Fatalf("expected fresh PENDING payment, got %s", p.Status)
		}
		if err := p.Confirm(now); err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
		if p.Status != PaymentStatusConfirmed || p.ConfirmedAt == nil {
			t.Errorf("expected CONFIRMED with confirmedAt, got %s %v", p.Status, p.ConfirmedAt)
		}
	})

	t.Run("should report already confirmed on second confirm", func(t *testing.T) {
		p, _ := NewPayment("u1", PlanMonthly, RailFiat)
		_ = p.Confirm(now)
		err := p.Confirm(now.Add(time.Second))
		if !errors.Is(err, domain.ErrPaymentAlreadyConfirmed) {
			t.Fatalf("expected ErrPaymentAlreadyConfirmed, got %v", err)
		}
		if !errors.Is(err, domain.ErrInvalidPaymentState) {
			t.Error("expected error to also match ErrInvalidPaymentState")
		}
		if !p.ConfirmedAt.Equal(now) {
			t.Error("confirmedAt must not move on a repeated confirm")
		}
	})

	t.Run("should fail a pending payment and leave confirmedAt nil", func(t *testing.T) {
		p, _ := NewPayment("u1", PlanYearly, RailCrypto)
		if err := p.Fail(now); err != nil {
			t.Fatalf("Fail failed: %v", err)
		}
		if p.Status != PaymentStatusFailed || p.ConfirmedAt != nil {
			t.Errorf("expected FAILED without confirmedAt, got %s %v", p.Status, p.ConfirmedAt)
		}
		if err := p.Confirm(now); !errors.Is(err, domain.ErrPaymentAlreadyFailed) {
			t.Errorf("expected ErrPaymentAlreadyFailed, got %v", err)
		}
	})

	t.Run("should not fail a confirmed payment through Fail", func(t *testing.T) {
		p, _ := NewPayment("u1", PlanMonthly, RailFiat)
		_ = p.Confirm(now)
		if err := p.Fail(now); !errors.Is(err, domain.ErrPaymentAlreadyConfirmed) {
			t.Errorf("expected ErrPaymentAlreadyConfirmed, got %v", err)
		}
		if p.Status != PaymentStatusConfirmed {
			t.Errorf("status changed to %s", p.Status)
		}
	})

	t.Run("should revoke a confirmation and clear confirmedAt", func(t *testing.T) {
		p, _ := NewPayment("u1", PlanMonthly, RailFiat)
		_ = p.Confirm(now)
		if !p.RevokeConfirmation(now) {
			t.Fatal("expected revoke to change state")
		}
		if p.Status != PaymentStatusFailed || p.ConfirmedAt != nil {
			t.Errorf("expected FAILED without confirmedAt, got %s %v", p.Status, p.ConfirmedAt)
		}
		if p.RevokeConfirmation(now) {
			t.Error("expected second revoke to be a no-op")
		}
	})

	t.Run("should reject invalid constructor input", func(t *testing.T) {
		if _, err := NewPayment("", PlanMonthly, RailFiat); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := NewPayment("u1", Plan("weekly"), RailFiat); !errors.Is(err, domain.ErrInvalidPlan) {
			t.Errorf("expected ErrInvalidPlan, got %v", err)
		}
	})
}

// --- Subscription Model Tests ---

func TestSubscriptionWindow(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("should open a window of the given length", func(t *testing.T) {
		s, err := NewSubscription("u1", "monthly", 30, now)
		if err != nil {
			t.Fatalf("NewSubscription failed: %v", err)
		}
		if got := s.EndAt.Sub(s.StartAt); got != Days(30) {
			t.Errorf("expected 30 day window, got %v", got)
		}
		if !s.Covers(now) || !s.Covers(s.EndAt) {
			t.Error("expected window to cover both ends")
		}
		if s.Covers(s.EndAt.Add(time.Nanosecond)) {
			t.Error("expected window to end at EndAt")
		}
	})

	t.Run("should extend additively and take the new plan", func(t *testing.T) {
		s, _ := NewSubscription("u1", "monthly", 30, now)
		if err := s.Extend("yearly", 365, now.Add(time.Hour)); err != nil {
			t.Fatalf("Extend failed: %v", err)
		}
		if want := now.Add(Days(395)); !s.EndAt.Equal(want) {
			t.Errorf("expected end %v, got %v", want, s.EndAt)
		}
		if s.Plan != PlanYearly {
			t.Errorf("expected plan yearly, got %s", s.Plan)
		}
	})

	t.Run("should cancel by truncating to now", func(t *testing.T) {
		s, _ := NewSubscription("u1", "monthly", 30, now)
		later := now.Add(48 * time.Hour)
		s.Cancel(later)
		if s.Status != SubscriptionStatusCancelled || !s.EndAt.Equal(later) {
			t.Errorf("unexpected state after cancel: %s %v", s.Status, s.EndAt)
		}
		if s.Covers(later) {
			t.Error("cancelled subscription must not grant access")
		}
	})

	t.Run("should reject non-positive duration", func(t *testing.T) {
		if _, err := NewSubscription("u1", "monthly", 0, now); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
