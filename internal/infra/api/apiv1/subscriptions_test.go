//go:build !integration

package apiv1_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/infra/api"
	"nova-payments/internal/infra/api/apiv1"
	"nova-payments/internal/usecase"
)

func subscriptionsRouter(uc usecase.SubscriptionUseCase) chi.Router {
	r := newRouter()
	apiv1.RegisterSubscriptions(r, apiv1.NewSubscriptionsHandler(uc, testLogger()), authMW(), internalMW())
	return r
}

func internalPost(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(api.HeaderInternalKey, internalKey)
	return req
}

func sampleSubscription(status model.SubscriptionStatus) *model.Subscription {
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.Subscription{
		ID:      "sub-1",
		UserID:  testUserID,
		Plan:    model.Plan("monthly"),
		Status:  status,
		StartAt: start,
		EndAt:   start.AddDate(0, 0, 30),
	}
}

func TestSubscriptions_Activate(t *testing.T) {
	t.Run("should activate and return the window", func(t *testing.T) {
		var got usecase.ActivateInput
		uc := &mockSubscriptionUC{ActivateFunc: func(ctx context.Context, in usecase.ActivateInput) (*model.Subscription, error) {
			got = in
			return sampleSubscription(model.SubscriptionStatusActive), nil
		}}
		body := `{"userId":"` + testUserID + `","plan":"monthly","durationDays":30,"txId":"pay-1"}`
		rec := serve(subscriptionsRouter(uc), internalPost("/api/v1/internal/subscriptions/activate", body))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, usecase.ActivateInput{UserID: testUserID, Plan: "monthly", DurationDays: 30, TxID: "pay-1"}, got)
		assert.JSONEq(t, `{"userId":"`+testUserID+`","plan":"monthly","status":"ACTIVE","startAt":"2030-01-01T00:00:00Z","endAt":"2030-01-31T00:00:00Z"}`, rec.Body.String())
	})

	cases := []struct {
		name string
		body string
	}{
		{"non-uuid user", `{"userId":"bob","plan":"monthly","durationDays":30}`},
		{"zero duration", `{"userId":"` + testUserID + `","plan":"monthly","durationDays":0}`},
		{"missing plan", `{"userId":"` + testUserID + `","durationDays":30}`},
		{"malformed json", `{"userId":`},
	}
	for _, tc := range cases {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			rec := serve(subscriptionsRouter(&mockSubscriptionUC{}), internalPost("/api/v1/internal/subscriptions/activate", tc.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	t.Run("should map an unknown plan to 400", func(t *testing.T) {
		uc := &mockSubscriptionUC{ActivateFunc: func(ctx context.Context, in usecase.ActivateInput) (*model.Subscription, error) {
			return nil, domain.ErrInvalidPlan
		}}
		body := `{"userId":"` + testUserID + `","plan":"weekly","durationDays":7}`
		rec := serve(subscriptionsRouter(uc), internalPost("/api/v1/internal/subscriptions/activate", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should require the internal key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/subscriptions/activate", bytes.NewBufferString(`{}`))
		req.Header.Set(api.HeaderInternalKey, "wrong")
		assert.Equal(t, http.StatusForbidden, serve(subscriptionsRouter(&mockSubscriptionUC{}), req).Code)
	})
}

func TestSubscriptions_Cancel(t *testing.T) {
	t.Run("should return the cancelled subscription", func(t *testing.T) {
		uc := &mockSubscriptionUC{CancelFunc: func(ctx context.Context, userID string) (*model.Subscription, error) {
			return sampleSubscription(model.SubscriptionStatusCancelled), nil
		}}
		rec := serve(subscriptionsRouter(uc), internalPost("/api/v1/internal/subscriptions/cancel", `{"userId":"`+testUserID+`"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)
	})

	t.Run("should answer 404 without an active subscription", func(t *testing.T) {
		uc := &mockSubscriptionUC{CancelFunc: func(ctx context.Context, userID string) (*model.Subscription, error) {
			return nil, domain.ErrSubscriptionNotFound
		}}
		rec := serve(subscriptionsRouter(uc), internalPost("/api/v1/internal/subscriptions/cancel", `{"userId":"`+testUserID+`"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSubscriptions_ActiveUsers(t *testing.T) {
	uc := &mockSubscriptionUC{ActiveUsersFunc: func(ctx context.Context) ([]string, error) { return nil, nil }}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/internal/subscriptions/active-users", nil)
	req.Header.Set(api.HeaderInternalKey, internalKey)
	rec := serve(subscriptionsRouter(uc), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userIds":[]}`, rec.Body.String())
}

func TestSubscriptions_Me(t *testing.T) {
	uc := &mockSubscriptionUC{
		FindActiveFunc: func(ctx context.Context, userID string) (*model.Subscription, error) {
			if userID == testUserID {
				return sampleSubscription(model.SubscriptionStatusActive), nil
			}
			return nil, domain.ErrSubscriptionNotFound
		},
		HasAccessFunc: func(ctx context.Context, userID string) (bool, error) { return userID == testUserID, nil },
	}
	r := subscriptionsRouter(uc)
	other := "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"

	t.Run("should return the caller's subscription", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/me", nil)
		req.Header.Set("Authorization", bearer(t, testUserID))
		rec := serve(r, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"userId":"`+testUserID+`"`)
	})

	t.Run("should answer 404 without a subscription", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/me", nil)
		req.Header.Set("Authorization", bearer(t, other))
		assert.Equal(t, http.StatusNotFound, serve(r, req).Code)
	})

	t.Run("should report access", func(t *testing.T) {
		for uid, want := range map[string]string{testUserID: `{"hasAccess":true}`, other: `{"hasAccess":false}`} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/me/has-access", nil)
			req.Header.Set("Authorization", bearer(t, uid))
			rec := serve(r, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, want, rec.Body.String())
		}
	})

	t.Run("should require a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/me/has-access", nil)
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	})
}
