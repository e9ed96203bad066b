// Package memory provides in-process implementations of the engine's
// driven ports: a StateStore, a recording Messenger and a timer-based
// Scheduler. They back tests, the CLI chat loop and single-process hosts.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/botwalk/botwalk/pkg/domain"
)

// Store is an in-memory StateStore. States are copied through JSON on both
// Save and Load so callers never share mutable state with the store,
// matching the behavior of serialized backends.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Save persists a copy of the state.
func (s *Store) Save(ctx context.Context, instanceID string, state *domain.ExecutionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[instanceID] = raw
	return nil
}

// Load retrieves a copy of the state.
func (s *Store) Load(ctx context.Context, instanceID string) (*domain.ExecutionState, error) {
	s.mu.RLock()
	raw, ok := s.data[instanceID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}

	var state domain.ExecutionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the instance.
func (s *Store) Delete(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, instanceID)
	return nil
}

// List returns all known instance ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
