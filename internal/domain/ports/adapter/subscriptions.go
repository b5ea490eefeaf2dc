package adapter

import (
	"context"
	"errors"
	"fmt"

	"nova-payments/internal/domain/model"
)

// ErrPermanent marks a remote failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent remote failure")

// RemoteError is a non-2xx answer from a remote service.
type RemoteError struct {
	Service    string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Service, e.StatusCode)
}

// Temporary reports whether the status is worth retrying (5xx).
func (e *RemoteError) Temporary() bool { return e.StatusCode >= 500 }

// ActivationRequest asks the subscription service to grant durationDays.
// TxID makes the request replay-safe.
type ActivationRequest struct {
	UserID       string
	Plan         string
	DurationDays int
	TxID         string
}

// SubscriptionsClient is the payment side's view of the subscription service.
type SubscriptionsClient interface {
	Activate(ctx context.Context, req ActivationRequest) error
}

// Notifier delivers a best-effort "payment confirmed" notice.
type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, p model.Payment) error
}

// Event is anything dispatched through an EventPublisher.
type Event interface {
	EventName() string
}

// EventPublisher queues evt against the transaction bound to ctx.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
