package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nova-payments/internal/domain"
	"nova-payments/internal/domain/model"
	"nova-payments/internal/domain/ports/repository"
	"nova-payments/internal/infra/metrics"
	red "nova-payments/internal/infra/redis"
)

var _ repository.SubscriptionRepository = (*subscriptionRepoCacheDecorator)(nil)

// subscriptionRepoCacheDecorator caches the covering window per user so that
// access checks skip the database. Only positive answers are cached. Each
// entry is tagged with the user's generation, which writes bump once their
// transaction commits; an entry from an older generation is never served.
type subscriptionRepoCacheDecorator struct {
	repository.SubscriptionRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewSubscriptionRepoCacheDecorator(inner repository.SubscriptionRepository, cache red.RedisClient, ttl time.Duration) repository.SubscriptionRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &subscriptionRepoCacheDecorator{SubscriptionRepository: inner, cache: cache, ttl: ttl}
}

func accessKey(userID string) string     { return fmt.Sprintf("subscription:window:%s", userID) }
func generationKey(userID string) string { return fmt.Sprintf("subscription:gen:%s", userID) }

func (d *subscriptionRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if err := d.SubscriptionRepository.Save(ctx, tx, s); err != nil {
		return err
	}
	invalidate := func() {
		ctx := context.WithoutCancel(ctx)
		_, _ = d.cache.Incr(ctx, generationKey(s.UserID))
		_ = d.cache.Del(ctx, accessKey(s.UserID))
	}
	if err := repository.AfterCommit(ctx, invalidate); errors.Is(err, domain.ErrNoTransaction) {
		invalidate()
	}
	return nil
}

func (d *subscriptionRepoCacheDecorator) ExistsActiveAt(ctx context.Context, tx repository.Tx, userID string, at time.Time) (bool, error) {
	// Reads inside a transaction must see its own writes.
	if tx != nil {
		return d.SubscriptionRepository.ExistsActiveAt(ctx, tx, userID, at)
	}
	// The generation is read before the database so that a write committing
	// in between leaves this reader's entry unusable.
	gen, genErr := d.generation(ctx, userID)
	if genErr == nil {
		val, err := d.cache.Get(ctx, accessKey(userID))
		switch {
		case err == nil:
			if g, start, end, ok := parseWindow(val); ok && g == gen && !at.Before(start) && !at.After(end) {
				metrics.IncCacheRequest("subscription_window", "hit")
				return true, nil
			}
		case !errors.Is(err, red.Nil):
			metrics.IncCacheRequest("subscription_window", "error")
		}
	} else {
		metrics.IncCacheRequest("subscription_window", "error")
	}

	metrics.IncCacheRequest("subscription_window", "miss")
	s, err := d.SubscriptionRepository.FindActiveAt(ctx, nil, userID, at)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if genErr == nil {
		_ = d.cache.Set(ctx, accessKey(userID), formatWindow(gen, s.StartAt, s.EndAt), d.ttl)
	}
	return true, nil
}

func (d *subscriptionRepoCacheDecorator) generation(ctx context.Context, userID string) (string, error) {
	gen, err := d.cache.Get(ctx, generationKey(userID))
	if errors.Is(err, red.Nil) {
		return "0", nil
	}
	return gen, err
}

func formatWindow(gen string, start, end time.Time) string {
	return gen + ":" + strconv.FormatInt(start.UnixNano(), 10) + ":" + strconv.FormatInt(end.UnixNano(), 10)
}

func parseWindow(v string) (string, time.Time, time.Time, bool) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return "", time.Time{}, time.Time{}, false
	}
	start, err1 := strconv.ParseInt(parts[1], 10, 64)
	end, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return "", time.Time{}, time.Time{}, false
	}
	return parts[0], time.Unix(0, start), time.Unix(0, end), true
}
