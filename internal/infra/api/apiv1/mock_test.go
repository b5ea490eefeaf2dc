//go:build !integration

package apiv1_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/infra/adapters/stripe"
	"nova-payments/internal/infra/api"
	"nova-payments/internal/usecase"
)

const (
	testSecret  = "jwt-secret"
	testIssuer  = "nova-accounts"
	internalKey = "internal-key"
	testUserID  = "8d3c5a1e-2b4f-4c6d-9e8f-0a1b2c3d4e5f"
	testPayment = "0b7c1f9e-3d2a-4e5b-8c6d-7f8e9a0b1c2d"
)

type mockPaymentUC struct {
	CreateFunc         func(ctx context.Context, userID, plan string, amountXMR *decimal.Decimal) (*usecase.CreatedPayment, error)
	StatusFunc         func(ctx context.Context, paymentID, userID string) (*model.Payment, error)
	ConfirmFunc        func(ctx context.Context, paymentID string) error
	ConfirmByRefFunc   func(ctx context.Context, ref string) error
	MarkFailedFunc     func(ctx context.Context, ref string) error
	ListPendingFunc    func(ctx context.Context, limit int) ([]*model.Payment, error)
	mu                 sync.Mutex
	confirmByRefCalled int
}

func (m *mockPaymentUC) Create(ctx context.Context, userID, plan string, amountXMR *decimal.Decimal) (*usecase.CreatedPayment, error) {
	return m.CreateFunc(ctx, userID, plan, amountXMR)
}

func (m *mockPaymentUC) Status(ctx context.Context, paymentID, userID string) (*model.Payment, error) {
	return m.StatusFunc(ctx, paymentID, userID)
}

func (m *mockPaymentUC) Confirm(ctx context.Context, paymentID string) error {
	return m.ConfirmFunc(ctx, paymentID)
}

func (m *mockPaymentUC) ConfirmByExternalRef(ctx context.Context, ref string) error {
	m.mu.Lock()
	m.confirmByRefCalled++
	m.mu.Unlock()
	return m.ConfirmByRefFunc(ctx, ref)
}

func (m *mockPaymentUC) MarkFailedByExternalRef(ctx context.Context, ref string) error {
	return m.MarkFailedFunc(ctx, ref)
}

func (m *mockPaymentUC) ListPending(ctx context.Context, limit int) ([]*model.Payment, error) {
	return m.ListPendingFunc(ctx, limit)
}

type mockSubscriptionUC struct {
	ActivateFunc    func(ctx context.Context, in usecase.ActivateInput) (*model.Subscription, error)
	CancelFunc      func(ctx context.Context, userID string) (*model.Subscription, error)
	HasAccessFunc   func(ctx context.Context, userID string) (bool, error)
	FindActiveFunc  func(ctx context.Context, userID string) (*model.Subscription, error)
	ActiveUsersFunc func(ctx context.Context) ([]string, error)
}

func (m *mockSubscriptionUC) Activate(ctx context.Context, in usecase.ActivateInput) (*model.Subscription, error) {
	return m.ActivateFunc(ctx, in)
}

func (m *mockSubscriptionUC) Cancel(ctx context.Context, userID string) (*model.Subscription, error) {
	return m.CancelFunc(ctx, userID)
}

func (m *mockSubscriptionUC) HasAccess(ctx context.Context, userID string) (bool, error) {
	return m.HasAccessFunc(ctx, userID)
}

func (m *mockSubscriptionUC) FindActive(ctx context.Context, userID string) (*model.Subscription, error) {
	return m.FindActiveFunc(ctx, userID)
}

func (m *mockSubscriptionUC) ActiveUserIDs(ctx context.Context) ([]string, error) {
	return m.ActiveUsersFunc(ctx)
}

// stubVerifier treats the signature header as the verdict.
type stubVerifier struct {
	evt *stripe.WebhookEvent
	err error
}

func (s *stubVerifier) Verify(payload []byte, signature string) (*stripe.WebhookEvent, error) {
	return s.evt, s.err
}

type memDeduper struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: map[string]bool{}} }

func (d *memDeduper) Claim(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDeduper) Release(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	d.released = append(d.released, id)
	return nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newRouter() chi.Router {
	return api.NewRouter(config.HTTPConfig{RequestTimeout: 5 * time.Second}, testLogger(), nil)
}

func bearer(t *testing.T, uid string) string {
	t.Helper()
	tok, err := api.NewJWTAuth(testSecret, testIssuer).Mint(uid, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func authMW() func(http.Handler) http.Handler {
	return api.NewJWTAuth(testSecret, testIssuer).Middleware
}

func internalMW() api.Middleware {
	return api.InternalKey(internalKey, testLogger())
}
