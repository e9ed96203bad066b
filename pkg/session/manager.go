// Package session serializes access to per-instance execution state.
//
// Inbound events for one conversation may arrive concurrently (duplicate
// webhook deliveries, several worker goroutines), but the engine requires
// at-most-one in-flight step or resume per instance. The Manager guarantees
// this with a reference-counted mutex per instance id, plus an optional
// distributed lock for multi-replica deployments.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/botwalk/botwalk/internal/logging"
	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates instance access, ensuring safe concurrent
// operations. Reference counting garbage-collects unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLockTTL overrides the distributed-lock TTL (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.lockTTL = ttl }
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a session manager over the given state store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(instanceID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[instanceID]
	if !exists {
		entry = &lockEntry{}
		m.locks[instanceID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(instanceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[instanceID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, instanceID)
	}
}

// WithLock executes fn while holding the lock for the instance. All state
// mutation (trigger, resume, cancel) must go through here.
func (m *Manager) WithLock(ctx context.Context, instanceID string, fn func(context.Context) error) error {
	entry := m.acquire(instanceID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(instanceID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, instanceID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"instance_id", instanceID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves an instance's state under its lock.
func (m *Manager) Load(ctx context.Context, instanceID string) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, instanceID)
		return err
	})
	return state, err
}

// Save persists an instance's state under its lock.
func (m *Manager) Save(ctx context.Context, instanceID string, state *domain.ExecutionState) error {
	return m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		return m.store.Save(ctx, instanceID, state)
	})
}

// Delete removes the instance from the store.
func (m *Manager) Delete(ctx context.Context, instanceID string) error {
	return m.WithLock(ctx, instanceID, func(ctx context.Context) error {
		return m.store.Delete(ctx, instanceID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
