package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"nova-payments/internal/domain/ports/adapter"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/logging"
	"nova-payments/internal/infra/worker"
)

var _ adapter.EventPublisher = (*Bus)(nil)

// Handler reacts to one dispatched event.
type Handler func(ctx context.Context, evt adapter.Event) error

// Runner executes dispatched handlers; *worker.Pool satisfies it.
type Runner interface {
	Submit(ctx context.Context, task worker.Task) error
}

// Bus queues events on the publishing transaction and hands them to the
// runner once that transaction commits. A rolled back transaction drops its
// events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	runner   Runner
	log      *zerolog.Logger
}

func NewBus(runner Runner, logger *zerolog.Logger) *Bus {
	l := logger.With().Str("component", "EventBus").Logger()
	return &Bus{handlers: make(map[string][]Handler), runner: runner, log: &l}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish registers evt against the transaction bound to ctx. It returns
// domain.ErrNoTransaction when ctx carries none.
func (b *Bus) Publish(ctx context.Context, evt adapter.Event) error {
	return repository.AfterCommit(ctx, func() { b.dispatch(ctx, evt) })
}

func (b *Bus) dispatch(ctx context.Context, evt adapter.Event) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[evt.EventName()]...)
	b.mu.RUnlock()

	// Handlers outlive the request that committed the event; keep its
	// correlation values but not its deadline.
	dctx := context.WithoutCancel(ctx)
	l := logging.With(dctx, b.log)
	if len(hs) == 0 {
		l.Debug().Str("event", evt.EventName()).Msg("no handlers")
		return
	}
	for _, h := range hs {
		h := h
		task := func(context.Context) error { return h(dctx, evt) }
		if err := b.runner.Submit(dctx, task); err != nil {
			l.Warn().Err(err).Str("event", evt.EventName()).Msg("runner rejected event; running detached")
			go func() {
				if err := task(dctx); err != nil {
					l.Error().Err(err).Str("event", evt.EventName()).Msg("detached handler failed")
				}
			}()
		}
	}
}
