package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	"nova-payments/internal/domain/model"
)

// CheckoutRequest describes the payment a provider should open.
type CheckoutRequest struct {
	PaymentID    string
	UserID       string
	Plan         model.Plan
	DurationDays int
	AmountMinor  int64           // fiat
	Currency     string          // fiat
	AmountXMR    decimal.Decimal // crypto
}

// Checkout is what the provider hands back for the client to complete payment.
type Checkout struct {
	ExternalRef     string // PaymentIntent ID (fiat) or receiving address (crypto)
	ClientSecret    string // fiat only
	Address         string // crypto only
	AccountIndex    *int   // crypto only, nil when simulated
	SubaddressIndex *int
}

// CheckoutProvider is the hex port for a payment rail.
type CheckoutProvider interface {
	Rail() model.Rail
	OpenCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// Subaddress is a wallet receiving slot.
type Subaddress struct {
	AccountIndex    int
	SubaddressIndex int
	Address         string
}

// WalletClient is the crypto rail's view of the wallet daemon.
type WalletClient interface {
	Refresh(ctx context.Context) error
	CreateSubaddress(ctx context.Context, accountIndex int, label string) (*Subaddress, error)
	// ConfirmedBalance sums incoming transfers with enough confirmations.
	ConfirmedBalance(ctx context.Context, accountIndex, subaddressIndex int) (decimal.Decimal, error)
}
