package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"nova-payments/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // checkout opened; awaiting provider confirmation
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED" // provider confirmed; activation event published
	PaymentStatusFailed    PaymentStatus = "FAILED"    // provider reported failure or activation was not grantable
)

// Rail is the payment channel a Payment was opened on.
type Rail string

const (
	RailFiat   Rail = "fiat"
	RailCrypto Rail = "crypto"
)

func (r Rail) Valid() bool { return r == RailFiat || r == RailCrypto }

// Payment records one checkout attempt and its confirmation state.
type Payment struct {
	ID           string // UUID
	UserID       string // UUID of the paying user
	Plan         Plan
	DurationDays int
	Rail         Rail
	AmountMinor  int64           // fiat amount in minor units (fiat rail)
	AmountXMR    decimal.Decimal // required amount (crypto rail)
	Currency     string
	// ExternalRef is the provider reference: PaymentIntent ID (fiat) or the
	// receiving address (crypto). Unique, immutable after creation.
	ExternalRef           string
	WalletAccountIndex    *int // crypto only; nil in simulation mode
	WalletSubaddressIndex *int
	Status                PaymentStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ConfirmedAt           *time.Time // set iff Status == CONFIRMED
}

// NewPayment builds a PENDING payment for the given plan.
func NewPayment(userID string, plan Plan, rail Rail) (*Payment, error) {
	if userID == "" || !rail.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if !plan.Valid() {
		return nil, domain.ErrInvalidPlan
	}
	now := time.Now().UTC()
	return &Payment{
		ID:           uuid.NewString(),
		UserID:       userID,
		Plan:         plan,
		DurationDays: plan.DurationDays(),
		Rail:         rail,
		Status:       PaymentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (p *Payment) IsPending() bool { return p.Status == PaymentStatusPending }

// stateErr reports why a non-pending payment cannot transition.
func (p *Payment) stateErr() error {
	if p.Status == PaymentStatusConfirmed {
		return domain.ErrPaymentAlreadyConfirmed
	}
	if p.Status == PaymentStatusFailed {
		return domain.ErrPaymentAlreadyFailed
	}
	return domain.ErrInvalidPaymentState
}

// Confirm moves PENDING to CONFIRMED.
func (p *Payment) Confirm(now time.Time) error {
	if !p.IsPending() {
		return p.stateErr()
	}
	p.Status = PaymentStatusConfirmed
	p.ConfirmedAt = &now
	p.UpdatedAt = now
	return nil
}

// Fail moves PENDING to FAILED, e.g. when the provider cancels the intent.
func (p *Payment) Fail(now time.Time) error {
	if !p.IsPending() {
		return p.stateErr()
	}
	p.Status = PaymentStatusFailed
	p.UpdatedAt = now
	return nil
}

// RevokeConfirmation is the compensating write for a confirmed payment whose
// entitlement could not be granted. It returns false when the payment was
// already FAILED.
func (p *Payment) RevokeConfirmation(now time.Time) bool {
	if p.Status == PaymentStatusFailed {
		return false
	}
	p.Status = PaymentStatusFailed
	p.ConfirmedAt = nil
	p.UpdatedAt = now
	return true
}

// HasWalletSlot reports whether the monitor can query a balance for p.
func (p *Payment) HasWalletSlot() bool {
	return p.WalletAccountIndex != nil && p.WalletSubaddressIndex != nil
}
