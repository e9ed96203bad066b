package ports

import (
	"context"

	"github.com/botwalk/botwalk/pkg/domain"
)

// StateStore persists execution state per instance, enabling durable
// conversations that span many inbound events.
type StateStore interface {
	// Save persists the state for a given instance ID.
	Save(ctx context.Context, instanceID string, state *domain.ExecutionState) error

	// Load retrieves the state for a given instance ID.
	// Returns domain.ErrInstanceNotFound if the instance does not exist.
	Load(ctx context.Context, instanceID string) (*domain.ExecutionState, error)

	// Delete removes the state for a given instance ID.
	Delete(ctx context.Context, instanceID string) error

	// List returns the ids of all known instances.
	List(ctx context.Context) ([]string, error)
}
