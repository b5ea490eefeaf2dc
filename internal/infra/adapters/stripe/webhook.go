package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"nova-payments/internal/domain"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Stripe-Signature"

// Event types acted upon; everything else is acknowledged and ignored.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

// WebhookEvent is the part of a verified event the payment service needs.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
}

// Verifier checks signatures with the endpoint secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify authenticates payload and extracts the PaymentIntent id for
// payment_intent.* events.
func (v *Verifier) Verify(payload []byte, signature string) (*WebhookEvent, error) {
	if v.secret == "" {
		return nil, domain.ErrWebhookSecretMissing
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	out := &WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data != nil && len(evt.Data.Raw) > 0 {
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: decode payment intent: %v", domain.ErrInvalidArgument, err)
		}
		out.IntentID = pi.ID
	}
	return out, nil
}
