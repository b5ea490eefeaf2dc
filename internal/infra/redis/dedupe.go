package redis

import (
	"context"
	"time"
)

// EventDeduper remembers provider event IDs that were already handled.
type EventDeduper struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewEventDeduper(client RedisClient, prefix string, ttl time.Duration) *EventDeduper {
	return &EventDeduper{client: client, prefix: prefix, ttl: ttl}
}

// Claim marks id as in flight. It returns false when id was claimed before.
func (d *EventDeduper) Claim(ctx context.Context, id string) (bool, error) {
	return d.client.SetNX(ctx, d.key(id), "1", d.ttl)
}

// Release forgets id so a redelivery is processed again.
func (d *EventDeduper) Release(ctx context.Context, id string) error {
	return d.client.Del(ctx, d.key(id))
}

func (d *EventDeduper) key(id string) string { return d.prefix + ":event:" + id }
