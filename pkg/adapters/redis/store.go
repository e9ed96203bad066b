// Package redis implements the engine's persistence ports on Redis: a
// StateStore for execution state and a SET NX based DistributedLocker for
// multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/botwalk/botwalk/pkg/domain"
)

// Store implements ports.StateStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for instance state.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for instance state.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "botwalk:instance:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(instanceID string) string {
	return s.prefix + instanceID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the state and registers the instance in the index ZSET.
// The index score is the expiration time so List can prune lazily.
func (s *Store) Save(ctx context.Context, instanceID string, state *domain.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(instanceID), data, s.ttl)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01, effectively never
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: instanceID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state.
func (s *Store) Load(ctx context.Context, instanceID string) (*domain.ExecutionState, error) {
	val, err := s.client.Get(ctx, s.key(instanceID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.ExecutionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the instance and its index entry.
func (s *Store) Delete(ctx context.Context, instanceID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(instanceID))
	pipe.ZRem(ctx, s.indexKey(), instanceID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns known instances after a lazy prune of expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired instances: %w", err)
	}

	instances, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
