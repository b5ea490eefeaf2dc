//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// fastRetry keeps the production shape with millisecond waits.
var fastRetry = usecase.RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	Multiplier:     2,
	MaxBackoff:     5 * time.Millisecond,
}

// ---- Mock CheckoutProvider ----

type MockCheckout struct {
	mu    sync.Mutex
	rail  model.Rail
	Calls []adapter.CheckoutRequest

	OpenCheckoutFunc func(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error)
}

var _ adapter.CheckoutProvider = (*MockCheckout)(nil)

func NewMockCheckout(rail model.Rail) *MockCheckout { return &MockCheckout{rail: rail} }

func (m *MockCheckout) Rail() model.Rail { return m.rail }

func (m *MockCheckout) OpenCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	if m.OpenCheckoutFunc != nil {
		return m.OpenCheckoutFunc(ctx, req)
	}
	if m.rail == model.RailCrypto {
		acct, sub := 0, 7
		return &adapter.Checkout{ExternalRef: "4addr-" + req.PaymentID, Address: "4addr-" + req.PaymentID, AccountIndex: &acct, SubaddressIndex: &sub}, nil
	}
	return &adapter.Checkout{ExternalRef: "pi_" + req.PaymentID, ClientSecret: "pi_" + req.PaymentID + "_secret"}, nil
}

// ---- Mock SubscriptionsClient ----

type MockSubscriptionsClient struct {
	mu    sync.Mutex
	Calls []adapter.ActivationRequest

	ActivateFunc func(ctx context.Context, req adapter.ActivationRequest) error
}

var _ adapter.SubscriptionsClient = (*MockSubscriptionsClient)(nil)

func (m *MockSubscriptionsClient) Activate(ctx context.Context, req adapter.ActivationRequest) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, req)
	}
	return nil
}

func (m *MockSubscriptionsClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []model.Payment

	NotifyFunc func(ctx context.Context, p model.Payment) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyPaymentConfirmed(ctx context.Context, p model.Payment) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, p)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, p)
	}
	return nil
}

// ---- Mock EventPublisher ----

// MockPublisher records events without dispatching them.
type MockPublisher struct {
	mu     sync.Mutex
	Events []adapter.Event

	PublishFunc func(ctx context.Context, evt adapter.Event) error
}

var _ adapter.EventPublisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, evt adapter.Event) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, evt); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt)
	return nil
}
