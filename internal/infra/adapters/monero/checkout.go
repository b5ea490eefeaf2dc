package monero

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
)

var _ adapter.CheckoutProvider = (*CheckoutProvider)(nil)

// CheckoutProvider hands out one wallet subaddress per payment. With a nil
// wallet it simulates addresses and leaves the wallet slot empty.
type CheckoutProvider struct {
	wallet       adapter.WalletClient
	accountIndex int
}

func NewCheckoutProvider(wallet adapter.WalletClient, accountIndex int) *CheckoutProvider {
	return &CheckoutProvider{wallet: wallet, accountIndex: accountIndex}
}

// NewSimulatedCheckoutProvider is the fake-mode provider.
func NewSimulatedCheckoutProvider() *CheckoutProvider {
	return &CheckoutProvider{}
}

func (p *CheckoutProvider) Rail() model.Rail { return model.RailCrypto }

func (p *CheckoutProvider) OpenCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
	if !req.AmountXMR.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if p.wallet == nil {
		addr, err := SimulatedAddress()
		if err != nil {
			return nil, err
		}
		return &adapter.Checkout{ExternalRef: addr, Address: addr}, nil
	}

	sub, err := p.wallet.CreateSubaddress(ctx, p.accountIndex, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("create subaddress: %w", err)
	}
	account, index := sub.AccountIndex, sub.SubaddressIndex
	return &adapter.Checkout{
		ExternalRef:     sub.Address,
		Address:         sub.Address,
		AccountIndex:    &account,
		SubaddressIndex: &index,
	}, nil
}

// SimulatedAddress returns a mainnet-shaped address: "4" and 94 hex chars.
func SimulatedAddress() (string, error) {
	b := make([]byte, 47)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "4" + hex.EncodeToString(b), nil
}
