package notify

import (
	"context"

	"github.com/rs/zerolog"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/adapters/internalhttp"
	"nova-payments/internal/infra/metrics"
)

// PaymentConfirmedPath is the notifications service's internal endpoint.
const PaymentConfirmedPath = "/api/v1/internal/notifications/payment-confirmed-email"

var _ adapter.Notifier = (*HTTPNotifier)(nil)

type HTTPNotifier struct {
	http   *internalhttp.Client
	logger *zerolog.Logger
}

func NewHTTPNotifier(cfg config.ClientConfig, apiKey string, logger *zerolog.Logger) (*HTTPNotifier, error) {
	c, err := internalhttp.New("notifications", cfg, apiKey)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "http_notifier").Logger()
	return &HTTPNotifier{http: c, logger: &l}, nil
}

// NotifyPaymentConfirmed is skipped when no internal key is configured.
func (n *HTTPNotifier) NotifyPaymentConfirmed(ctx context.Context, p model.Payment) error {
	if !n.http.HasKey() {
		n.logger.Debug().Str("payment_id", p.ID).Msg("internal api key not set; notification skipped")
		metrics.IncNotification(DriverHTTP, "skipped")
		return nil
	}
	return observe(DriverHTTP, n.http.PostJSON(ctx, PaymentConfirmedPath, messageFor(p)))
}
