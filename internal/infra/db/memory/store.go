// Package memory keeps payments and subscriptions in process. Transactions
// stage their writes and apply them on commit; row locks are per-key
// semaphores held until the transaction ends.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

type activation struct {
	subscriptionID string
	at             time.Time
}

type Store struct {
	mu          sync.RWMutex
	payments    map[string]model.Payment
	subs        map[string]model.Subscription
	activations map[string]activation
	locks       *keyedLocks
}

func NewStore() *Store {
	return &Store{
		payments:    make(map[string]model.Payment),
		subs:        make(map[string]model.Subscription),
		activations: make(map[string]activation),
		locks:       newKeyedLocks(),
	}
}

// Tx is the handle passed to repositories inside TxManager.WithTx.
type Tx struct {
	store       *Store
	held        map[string]bool
	payments    map[string]model.Payment
	subs        map[string]model.Subscription
	activations map[string]activation
}

func (t *Tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.store.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	return nil
}

func (t *Tx) release() {
	for key := range t.held {
		t.store.locks.release(key)
	}
	t.held = map[string]bool{}
}

type TxManager struct {
	store *Store
}

func NewTxManager(s *Store) *TxManager {
	return &TxManager{store: s}
}

// WithTx stages fn's writes and applies them only when fn returns nil.
func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	tx := &Tx{
		store:       m.store,
		held:        map[string]bool{},
		payments:    map[string]model.Payment{},
		subs:        map[string]model.Subscription{},
		activations: map[string]activation{},
	}
	ctx, scope := repository.NewScope(ctx)
	committed := false
	defer func() {
		if !committed {
			tx.release()
			scope.Discard()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.store.mu.Lock()
	for id, p := range tx.payments {
		m.store.payments[id] = p
	}
	for id, s := range tx.subs {
		m.store.subs[id] = s
	}
	for k, a := range tx.activations {
		m.store.activations[k] = a
	}
	m.store.mu.Unlock()

	committed = true
	tx.release()
	scope.Committed()
	return nil
}

func asTx(tx repository.Tx) (*Tx, error) {
	switch v := tx.(type) {
	case nil:
		return nil, nil
	case *Tx:
		return v, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{m: make(map[string]*lockEntry)}
}

func (k *keyedLocks) acquire(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.drop(key, e)
		return ctx.Err()
	}
}

func (k *keyedLocks) release(key string) {
	k.mu.Lock()
	e, ok := k.m[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	k.drop(key, e)
}

func (k *keyedLocks) drop(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.m, key)
	}
}
