//go:build !integration

package postgres

import (
	"context"
	"strconv"
	"sync"
	"time"

	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
	red "nova-payments/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerSubscriptionRepo mocks the database repository that the decorator wraps.
type mockInnerSubscriptionRepo struct {
	repository.SubscriptionRepository

	SaveFunc           func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindActiveAtFunc   func(ctx context.Context, tx repository.Tx, userID string, at time.Time) (*model.Subscription, error)
	ExistsActiveAtFunc func(ctx context.Context, tx repository.Tx, userID string, at time.Time) (bool, error)
}

func (m *mockInnerSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	return m.SaveFunc(ctx, tx, s)
}
func (m *mockInnerSubscriptionRepo) FindActiveAt(ctx context.Context, tx repository.Tx, userID string, at time.Time) (*model.Subscription, error) {
	return m.FindActiveAtFunc(ctx, tx, userID, at)
}
func (m *mockInnerSubscriptionRepo) ExistsActiveAt(ctx context.Context, tx repository.Tx, userID string, at time.Time) (bool, error) {
	return m.ExistsActiveAtFunc(ctx, tx, userID, at)
}

// mockRedisClient mocks our Redis client wrapper. Without overrides it keeps
// values in memory.
type mockRedisClient struct {
	mu      sync.Mutex
	kv      map[string]string
	deleted []string

	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return "", red.Nil
	}
	return v, nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kv == nil {
		m.kv = map[string]string{}
	}
	m.kv[key] = value.(string)
	return nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, keys...)
	for _, k := range keys {
		delete(m.kv, k)
	}
	return nil
}
func (m *mockRedisClient) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kv == nil {
		m.kv = map[string]string{}
	}
	n, _ := strconv.ParseInt(m.kv[key], 10, 64)
	n++
	m.kv[key] = strconv.FormatInt(n, 10)
	return n, nil
}
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return m.Incr(ctx, key)
}
func (m *mockRedisClient) DelIfEqual(ctx context.Context, key, value string) error { return nil }
func (m *mockRedisClient) Close() error { return nil }
