package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Deduper tracks consumed inbound event ids across replicas. The state's
// own seen-event map covers a single store; when several processes share
// one Redis, marking events here rejects duplicates before any replica
// loads state.
type Deduper struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// DeduperOption configures the Deduper.
type DeduperOption func(*Deduper)

// WithDedupeTTL bounds how long an event id stays consumed (default 24h).
func WithDedupeTTL(ttl time.Duration) DeduperOption {
	return func(d *Deduper) { d.ttl = ttl }
}

// NewDeduper creates an event deduper on an existing client.
func NewDeduper(client *backend.Client, opts ...DeduperOption) *Deduper {
	d := &Deduper{
		client: client,
		prefix: "botwalk:event:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MarkEvent records the (instance, event) pair. It returns false if the
// pair was already consumed, in which case the caller drops the event.
// Empty event ids are never deduped.
func (d *Deduper) MarkEvent(ctx context.Context, instanceID, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	key := d.prefix + instanceID + ":" + eventID
	fresh, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s: %w", eventID, err)
	}
	return fresh, nil
}
