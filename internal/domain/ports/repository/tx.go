package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"

	"nova-payments/internal/domain"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager provides a thin abstraction to execute a function within a
// database transaction, passing the underlying transaction handle via `tx`.
//
// Every WithTx call begins its own transaction; a call made while another
// transaction is open does NOT join it. Compensating writes rely on this to
// commit independently of whatever the caller is doing.
//
// fn receives a ctx carrying a Scope. Work registered on it with AfterCommit
// runs only after a successful commit and is dropped on rollback.
//
// USAGE
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		p, err := payments.FindByIDForUpdate(ctx, tx, id)
//		...
//		return repository.AfterCommit(ctx, func() { ... })
//	})
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres).
// Repositories MUST accept a nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

type scopeKey struct{}

// Scope queues callbacks against one open transaction.
type Scope struct {
	mu     sync.Mutex
	hooks  []func()
	closed bool
}

// NewScope binds a fresh Scope to ctx. TransactionManager implementations
// call it when they begin a transaction.
func NewScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// AfterCommit registers fn against the transaction bound to ctx.
func AfterCommit(ctx context.Context, fn func()) error {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok || s == nil {
		return domain.ErrNoTransaction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrNoTransaction
	}
	s.hooks = append(s.hooks, fn)
	return nil
}

// InTx reports whether ctx carries an open transaction scope.
func InTx(ctx context.Context) bool {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok || s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Committed closes the scope and runs queued callbacks in registration order.
func (s *Scope) Committed() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.closed = true
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Discard closes the scope and drops queued callbacks.
func (s *Scope) Discard() {
	s.mu.Lock()
	s.hooks = nil
	s.closed = true
	s.mu.Unlock()
}
