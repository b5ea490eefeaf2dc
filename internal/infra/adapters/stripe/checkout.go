// Package stripe is the fiat rail: PaymentIntent creation and webhook
// signature verification.
package stripe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
)

var _ adapter.CheckoutProvider = (*CheckoutProvider)(nil)

// CheckoutProvider opens a PaymentIntent per payment.
type CheckoutProvider struct {
	intents paymentintent.Client
	logger  *zerolog.Logger
}

// Option tweaks the Stripe backend; used by tests to point at a fake API.
type Option func(*stripego.BackendConfig)

func WithBaseURL(u string) Option {
	return func(c *stripego.BackendConfig) { c.URL = stripego.String(u) }
}

func NewCheckoutProvider(secretKey string, timeout time.Duration, logger *zerolog.Logger, opts ...Option) *CheckoutProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := &stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripego.Int64(2),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
	}
	for _, o := range opts {
		o(cfg)
	}
	l := logger.With().Str("component", "stripe").Logger()
	return &CheckoutProvider{
		intents: paymentintent.Client{B: stripego.GetBackendWithConfig(stripego.APIBackend, cfg), Key: secretKey},
		logger:  &l,
	}
}

func (p *CheckoutProvider) Rail() model.Rail { return model.RailFiat }

func (p *CheckoutProvider) OpenCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
	if req.AmountMinor <= 0 || req.Currency == "" {
		return nil, domain.ErrInvalidAmount
	}
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.AmountMinor),
		Currency: stripego.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("payment-" + req.PaymentID)
	params.AddMetadata("paymentId", req.PaymentID)
	params.AddMetadata("userId", req.UserID)
	params.AddMetadata("plan", string(req.Plan))
	params.AddMetadata("durationDays", strconv.Itoa(req.DurationDays))

	pi, err := p.intents.New(params)
	if err != nil {
		p.logger.Error().Err(err).Str("payment_id", req.PaymentID).Msg("create payment intent failed")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &adapter.Checkout{ExternalRef: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
