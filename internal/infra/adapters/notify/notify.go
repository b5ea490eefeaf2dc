// Package notify delivers the best-effort "payment confirmed" notice through
// the driver selected in config.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nova-payments/internal/config"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/metrics"
)

// Driver names accepted in notifications.driver.
const (
	DriverHTTP     = "http"
	DriverAMQP     = "amqp"
	DriverTelegram = "telegram"
	DriverNone     = "none"
)

// Message is the payload every driver sends.
type Message struct {
	PaymentID    string `json:"paymentId"`
	UserID       string `json:"userId"`
	Plan         string `json:"plan"`
	DurationDays int    `json:"durationDays"`
	Rail         string `json:"rail"`
}

func messageFor(p model.Payment) Message {
	return Message{
		PaymentID:    p.ID,
		UserID:       p.UserID,
		Plan:         string(p.Plan),
		DurationDays: p.DurationDays,
		Rail:         string(p.Rail),
	}
}

func observe(driver string, err error) error {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	metrics.IncNotification(driver, status)
	return err
}

// New builds the notifier for cfg.Notifications.Driver. The returned close
// func releases driver connections and is never nil.
func New(cfg *config.Config, logger *zerolog.Logger) (adapter.Notifier, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Notifications.Driver {
	case DriverHTTP:
		n, err := NewHTTPNotifier(cfg.Notifications.HTTP, cfg.Internal.APIKey, logger)
		return n, noClose, err
	case DriverAMQP:
		n, err := NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return nil, noClose, err
		}
		return n, n.Close, nil
	case DriverTelegram:
		n, err := NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Lang)
		return n, noClose, err
	case DriverNone, "":
		return Noop{}, noClose, nil
	default:
		return nil, noClose, fmt.Errorf("unknown notifications driver %q", cfg.Notifications.Driver)
	}
}

var _ adapter.Notifier = Noop{}

// Noop drops every notice.
type Noop struct{}

func (Noop) NotifyPaymentConfirmed(ctx context.Context, p model.Payment) error {
	metrics.IncNotification(DriverNone, "skipped")
	return nil
}
