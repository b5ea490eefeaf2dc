package subscriptions

import (
	"context"
	"fmt"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/adapters/internalhttp"
)

// ActivatePath is the subscription service's internal activation endpoint.
const ActivatePath = "/api/v1/internal/subscriptions/activate"

var _ adapter.SubscriptionsClient = (*HTTPClient)(nil)

// HTTPClient calls the subscription service over its internal API.
type HTTPClient struct {
	http *internalhttp.Client
}

func NewHTTPClient(cfg config.ClientConfig, apiKey string) (*HTTPClient, error) {
	c, err := internalhttp.New("subscriptions", cfg, apiKey)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{http: c}, nil
}

type activateBody struct {
	UserID       string `json:"userId"`
	Plan         string `json:"plan"`
	DurationDays int    `json:"durationDays"`
	TxID         string `json:"txId"`
}

func (c *HTTPClient) Activate(ctx context.Context, req adapter.ActivationRequest) error {
	if req.UserID == "" || req.DurationDays <= 0 {
		return fmt.Errorf("%w: incomplete activation request", adapter.ErrPermanent)
	}
	return c.http.PostJSON(ctx, ActivatePath, activateBody{
		UserID:       req.UserID,
		Plan:         req.Plan,
		DurationDays: req.DurationDays,
		TxID:         req.TxID,
	})
}
