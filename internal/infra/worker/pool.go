// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"nova-payments/internal/infra/metrics"
)

var (
	ErrNilTask     = errors.New("nil task")
	ErrPoolStopped = errors.New("worker pool stopped")
)

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of goroutines. Tasks run on the
// context given to Start; Stop lets queued tasks finish before returning.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	n    int
	log  *zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	closers []func() error
}

func NewPool(workers, queue int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = workers * 4
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task, queue), n: workers, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				p.run(ctx, id, task)
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncWorkerTask("panic")
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		metrics.IncWorkerTask("error")
		p.log.Warn().Int("worker", id).Err(err).Msg("task error")
		return
	}
	metrics.IncWorkerTask("ok")
}

// OnStop registers fn to run once Stop has drained the queue. Closers run in
// reverse registration order.
func (p *Pool) OnStop(fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closers = append(p.closers, fn)
}

// Stop refuses new tasks, drains the queue, waits for the workers and then
// runs the OnStop closers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	closers := p.closers
	p.mu.Unlock()
	p.wg.Wait()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			p.log.Warn().Err(err).Msg("close on stop")
		}
	}
}

// Submit enqueues task, blocking while the queue is full until ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		metrics.IncWorkerTask("rejected")
		return ErrPoolStopped
	}
	select {
	case p.jobs <- task:
		return nil
	case <-ctx.Done():
		metrics.IncWorkerTask("rejected")
		return fmt.Errorf("submit task: %w", ctx.Err())
	}
}
