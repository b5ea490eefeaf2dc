package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"nova-payments/internal/infra/api"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/usecase"
)

type SubscriptionsHandler struct {
	uc  usecase.SubscriptionUseCase
	log *zerolog.Logger
}

func NewSubscriptionsHandler(uc usecase.SubscriptionUseCase, logger *zerolog.Logger) *SubscriptionsHandler {
	l := logger.With().Str("component", "SubscriptionsHandler").Logger()
	return &SubscriptionsHandler{uc: uc, log: &l}
}

// RegisterSubscriptions mounts /api/v1/subscriptions/me (JWT) and
// /api/v1/internal/subscriptions (internal key).
func RegisterSubscriptions(r chi.Router, h *SubscriptionsHandler, auth func(http.Handler) http.Handler, internal api.Middleware) {
	r.Route("/api/v1/subscriptions/me", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", h.Me)
		r.Get("/has-access", h.HasAccess)
	})
	r.Route("/api/v1/internal/subscriptions", func(r chi.Router) {
		r.Use(internal)
		r.Post("/activate", h.Activate)
		r.Post("/cancel", h.Cancel)
		r.Get("/active-users", h.ActiveUsers)
	})
}

func (h *SubscriptionsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	s, err := h.uc.Activate(r.Context(), usecase.ActivateInput{
		UserID:       req.UserID,
		Plan:         req.Plan,
		DurationDays: req.DurationDays,
		TxID:         req.TxID,
	})
	if err != nil {
		logging.With(r.Context(), h.log).Error().Err(err).Str("user_id", req.UserID).Msg("activate failed")
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toSubscription(s))
}

func (h *SubscriptionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}
	s, err := h.uc.Cancel(r.Context(), req.UserID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toSubscription(s))
}

func (h *SubscriptionsHandler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.uc.ActiveUserIDs(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	api.WriteJSON(w, http.StatusOK, activeUsersResponse{UserIDs: ids})
}

func (h *SubscriptionsHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, err := h.uc.FindActive(r.Context(), api.UserIDFrom(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toSubscription(s))
}

func (h *SubscriptionsHandler) HasAccess(w http.ResponseWriter, r *http.Request) {
	ok, err := h.uc.HasAccess(r.Context(), api.UserIDFrom(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, hasAccessResponse{HasAccess: ok})
}
