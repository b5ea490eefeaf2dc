package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/infra/logging"
)

// amqpChannel is the subset of *amqp.Channel the notifier uses.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ adapter.Notifier = (*AMQPNotifier)(nil)

// AMQPNotifier publishes persistent JSON messages to a durable queue on the
// default exchange.
type AMQPNotifier struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    amqpChannel
	queue string
}

func NewAMQPNotifier(url, queue string) (*AMQPNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp.url is required for the amqp notifier")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queue, err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, queue: queue}, nil
}

func (n *AMQPNotifier) NotifyPaymentConfirmed(ctx context.Context, p model.Payment) error {
	body, err := json.Marshal(messageFor(p))
	if err != nil {
		return observe(DriverAMQP, err)
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     p.ID,
		CorrelationId: logging.CorrelationID(ctx),
		Timestamp:     time.Now().UTC(),
		Type:          model.EventPaymentConfirmed,
		Body:          body,
	}
	// amqp.Channel is not safe for concurrent publishes.
	n.mu.Lock()
	defer n.mu.Unlock()
	return observe(DriverAMQP, n.ch.Publish("", n.queue, false, false, msg))
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_ = n.ch.Close()
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
