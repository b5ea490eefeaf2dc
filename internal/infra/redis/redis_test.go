//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nova-payments/internal/domain"
)

// memClient is a map-backed RedisClient; expirations are recorded, not enforced.
type memClient struct {
	mu       sync.Mutex
	kv       map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
	err      error
}

var _ RedisClient = (*memClient)(nil)

func newMemClient() *memClient {
	return &memClient{kv: map[string]string{}, counters: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memClient) Ping(ctx context.Context) error { return m.err }

func (m *memClient) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key], m.ttls[key] = toString(value), exp
	return m.err
}

func (m *memClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (m *memClient) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kv[key]; ok {
		return false, nil
	}
	m.kv[key], m.ttls[key] = toString(value), exp
	return true, nil
}

func (m *memClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], m.err
}

func (m *memClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counters[key]++
	if m.ttls[key] <= 0 {
		m.ttls[key] = window
	}
	return m.counters[key], nil
}

func (m *memClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
	}
	return m.err
}

func (m *memClient) DelIfEqual(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kv[key] == value {
		delete(m.kv, key)
	}
	return m.err
}

func (m *memClient) Close() error { return nil }

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return "?"
	}
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("should grant the lock to one holder at a time", func(t *testing.T) {
		l := NewLocker(newMemClient())

		token, err := l.TryLock(ctx, "monitor", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		_, err = l.TryLock(ctx, "monitor", time.Minute)
		assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

		require.NoError(t, l.Unlock(ctx, "monitor", token))
		_, err = l.TryLock(ctx, "monitor", time.Minute)
		assert.NoError(t, err)
	})

	t.Run("should not release a lock held by someone else", func(t *testing.T) {
		c := newMemClient()
		l := NewLocker(c)
		_, err := l.TryLock(ctx, "monitor", time.Minute)
		require.NoError(t, err)

		require.NoError(t, l.Unlock(ctx, "monitor", "stale-token"))

		_, err = l.TryLock(ctx, "monitor", time.Minute)
		assert.ErrorIs(t, err, domain.ErrLockNotAcquired)
	})

	t.Run("should surface transport errors", func(t *testing.T) {
		c := newMemClient()
		c.err = errors.New("connection reset")
		_, err := NewLocker(c).TryLock(ctx, "monitor", time.Minute)
		assert.EqualError(t, err, "connection reset")
	})
}

func TestEventDeduper(t *testing.T) {
	ctx := context.Background()
	c := newMemClient()
	d := NewEventDeduper(c, "stripe", time.Hour)

	first, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, time.Hour, c.ttls["stripe:event:evt_1"])

	again, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again, "a replayed event must be reported as seen")

	require.NoError(t, d.Release(ctx, "evt_1"))
	retried, err := d.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, retried, "a released event must be processed again")
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	c := newMemClient()
	rl := NewRateLimiter(c)
	key := CheckoutKey("user-1")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "call %d should pass", i+1)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, c.ttls[key])
}

func TestRateLimiter_RepairsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	c := newMemClient()
	key := CheckoutKey("user-2")
	// A counter left behind with no expiry would block the user forever.
	c.counters[key] = 7

	ok, err := NewRateLimiter(c).Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, c.ttls[key], "the window must be restored on the next call")
}

func TestRateLimiter_TransportError(t *testing.T) {
	c := newMemClient()
	c.err = errors.New("connection reset")

	ok, err := NewRateLimiter(c).Allow(context.Background(), CheckoutKey("user-3"), 3, time.Minute)
	assert.EqualError(t, err, "connection reset")
	assert.False(t, ok)
}
