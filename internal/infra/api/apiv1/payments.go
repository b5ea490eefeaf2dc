package apiv1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/infra/adapters/stripe"
	"nova-payments/internal/infra/api"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/metrics"
	"nova-payments/internal/usecase"
)

// maxWebhookBody bounds the raw webhook payload.
const maxWebhookBody = 1 << 20

// WebhookVerifier authenticates a raw provider callback.
type WebhookVerifier interface {
	Verify(payload []byte, signature string) (*stripe.WebhookEvent, error)
}

// EventDeduper remembers processed webhook event ids.
type EventDeduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// PaymentsHandler serves one rail of the payment service.
type PaymentsHandler struct {
	rail     model.Rail
	uc       usecase.PaymentUseCase
	verifier WebhookVerifier // fiat only
	dedupe   EventDeduper    // optional
	dev      bool
	log      *zerolog.Logger
}

func NewPaymentsHandler(rail model.Rail, uc usecase.PaymentUseCase, verifier WebhookVerifier, dedupe EventDeduper, dev bool, logger *zerolog.Logger) *PaymentsHandler {
	l := logger.With().Str("component", "PaymentsHandler").Str("rail", string(rail)).Logger()
	return &PaymentsHandler{rail: rail, uc: uc, verifier: verifier, dedupe: dedupe, dev: dev, log: &l}
}

// PaymentMiddleware groups what RegisterPayments puts in front of routes.
type PaymentMiddleware struct {
	Auth        func(http.Handler) http.Handler
	Internal    api.Middleware
	CreateLimit api.Middleware // optional
}

// RegisterPayments mounts the rail's public, webhook and internal routes.
//
//	fiat:   /api/v1/payments-stripe/{create-intent, {id}/status, webhook/stripe}
//	crypto: /api/v1/payments/{create, {id}/status}
//	both:   /api/v1/internal/payments/{id}/confirm
func RegisterPayments(r chi.Router, h *PaymentsHandler, mw PaymentMiddleware) {
	base := "/api/v1/payments"
	if h.rail == model.RailFiat {
		base = "/api/v1/payments-stripe"
	}
	r.Route(base, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth)
			create := http.Handler(http.HandlerFunc(h.Create))
			if mw.CreateLimit != nil {
				create = mw.CreateLimit(create)
			}
			if h.rail == model.RailFiat {
				r.Method(http.MethodPost, "/create-intent", create)
			} else {
				r.Method(http.MethodPost, "/create", create)
			}
			r.Get("/{paymentId}/status", h.Status)
		})
		if h.rail == model.RailFiat {
			r.Post("/webhook/stripe", h.StripeWebhook)
		}
	})
	r.With(mw.Internal).Post("/api/v1/internal/payments/{paymentId}/confirm", h.InternalConfirm)
}

func (h *PaymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := api.UserIDFrom(r.Context())

	if h.rail == model.RailFiat {
		var req createIntentRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		created, err := h.uc.Create(r.Context(), userID, req.Plan, nil)
		if err != nil {
			h.writeCreateErr(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, createIntentResponse{
			PaymentID:    created.Payment.ID,
			ClientSecret: created.ClientSecret,
			AmountFiat:   created.Payment.AmountMinor,
			CurrencyFiat: created.Payment.Currency,
		})
		return
	}

	var req createCryptoRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	created, err := h.uc.Create(r.Context(), userID, req.Plan, req.AmountXMR)
	if err != nil {
		h.writeCreateErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, createCryptoResponse{
		PaymentID:      created.Payment.ID,
		PaymentAddress: created.Address,
		AmountXMR:      created.Payment.AmountXMR,
		ExpiresAt:      created.ExpiresAt,
	})
}

func (h *PaymentsHandler) writeCreateErr(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, domain.ErrInvalidPlan) && !errors.Is(err, domain.ErrInvalidAmount) && !errors.Is(err, domain.ErrInvalidArgument) {
		logging.With(r.Context(), h.log).Error().Err(err).Msg("create payment failed")
	}
	api.WriteError(w, err)
}

func (h *PaymentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}
	p, err := h.uc.Status(r.Context(), id, api.UserIDFrom(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toPaymentStatus(p))
}

// InternalConfirm is used by trusted callers; a repeated confirm is accepted.
func (h *PaymentsHandler) InternalConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}
	logging.With(r.Context(), h.log).Info().Str("payment_id", logging.Sanitize(id)).Msg("internal confirm requested")
	err := h.uc.Confirm(r.Context(), id)
	if err != nil && !errors.Is(err, domain.ErrPaymentAlreadyConfirmed) {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// StripeWebhook verifies the signature before anything else. Unknown intents
// answer 404 so Stripe redelivers once the payment row is visible.
func (h *PaymentsHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, h.log)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.IncWebhookEvent("unknown", "bad_request")
		api.WriteProblem(w, http.StatusBadRequest, "unreadable body")
		return
	}
	evt, err := h.verifier.Verify(payload, r.Header.Get(stripe.SignatureHeader))
	if err != nil {
		result := "invalid_signature"
		if errors.Is(err, domain.ErrWebhookSecretMissing) {
			result = "secret_missing"
			l.Error().Msg("stripe webhook secret is not configured")
		} else {
			l.Warn().Err(err).Msg("stripe webhook rejected")
		}
		metrics.IncWebhookEvent("unknown", result)
		api.WriteError(w, err)
		return
	}

	var act func(context.Context, string) error
	switch evt.Type {
	case stripe.EventIntentSucceeded:
		act = h.uc.ConfirmByExternalRef
	case stripe.EventIntentFailed, stripe.EventIntentCanceled:
		act = h.uc.MarkFailedByExternalRef
	default:
		metrics.IncWebhookEvent(evt.Type, "ignored")
		api.WriteJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}
	if evt.IntentID == "" {
		metrics.IncWebhookEvent(evt.Type, "bad_request")
		api.WriteProblem(w, http.StatusBadRequest, "missing payment intent id")
		return
	}

	if h.dedupe != nil {
		first, err := h.dedupe.Claim(ctx, evt.ID)
		switch {
		case err != nil:
			l.Warn().Err(err).Msg("webhook dedupe unavailable; relying on row lock")
		case !first:
			metrics.IncWebhookEvent(evt.Type, "duplicate")
			api.WriteJSON(w, http.StatusOK, map[string]string{"result": "duplicate"})
			return
		default:
			// A panic below must not leave the event marked as seen.
			defer func() {
				if rec := recover(); rec != nil {
					h.release(ctx, evt.ID)
					panic(rec)
				}
			}()
		}
	}

	err = act(ctx, evt.IntentID)
	switch {
	case err == nil, errors.Is(err, domain.ErrInvalidPaymentState):
		metrics.IncWebhookEvent(evt.Type, "processed")
		l.Info().Str("event_id", evt.ID).Str("type", evt.Type).
			Str("intent", logging.Redact(evt.IntentID, h.dev)).Msg("stripe webhook processed")
		api.WriteJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	default:
		h.release(ctx, evt.ID)
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhookEvent(evt.Type, "not_found")
		} else {
			metrics.IncWebhookEvent(evt.Type, "error")
			l.Error().Err(err).Str("event_id", evt.ID).Msg("stripe webhook failed")
		}
		api.WriteError(w, err)
	}
}

func (h *PaymentsHandler) release(ctx context.Context, eventID string) {
	if h.dedupe == nil {
		return
	}
	if err := h.dedupe.Release(context.WithoutCancel(ctx), eventID); err != nil {
		h.log.Warn().Err(err).Str("event_id", eventID).Msg("release webhook claim")
	}
}

func paymentIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "paymentId")
	if _, err := uuid.Parse(id); err != nil {
		api.WriteError(w, fmt.Errorf("%w: paymentId must be a UUID", domain.ErrInvalidArgument))
		return "", false
	}
	return id, true
}
