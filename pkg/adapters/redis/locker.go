package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/botwalk/botwalk/pkg/ports"
)

// unlockScript releases a lock only if the caller still owns it.
var unlockScript = backend.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements ports.DistributedLocker with SET NX + per-owner tokens.
// Lock polls until acquisition or context cancellation; the TTL bounds how
// long a crashed owner can hold the key.
type Locker struct {
	client   *backend.Client
	prefix   string
	interval time.Duration
}

// LockerOption configures the Locker.
type LockerOption func(*Locker)

// WithRetryInterval sets the acquisition poll interval (default 50ms).
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) { l.interval = d }
}

// NewLocker creates a distributed locker on an existing client.
func NewLocker(client *backend.Client, opts ...LockerOption) *Locker {
	l := &Locker{
		client:   client,
		prefix:   "botwalk:lock:",
		interval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}

	unlock := func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.client, []string{redisKey}, token).Err()
	}
	return unlock, nil
}
