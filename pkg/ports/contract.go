package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwalk/botwalk/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore
// implementation adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	instanceID := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewExecutionState(instanceID, "flow-1", "start")
		state.Variables["email"] = "a@b.c"
		state.Visited = []string{"start"}

		err := store.Save(ctx, instanceID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, state.Status, loaded.Status)
		assert.Equal(t, "a@b.c", loaded.Variables["email"])
		assert.Equal(t, []string{"start"}, loaded.Visited)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, instanceID, domain.NewExecutionState(instanceID, "flow-1", "start"))
		require.NoError(t, err)

		err = store.Delete(ctx, instanceID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound, "Load after Delete should return ErrInstanceNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := instanceID + "-1"
		id2 := instanceID + "-2"
		_ = store.Save(ctx, id1, domain.NewExecutionState(id1, "flow-1", "start"))
		_ = store.Save(ctx, id2, domain.NewExecutionState(id2, "flow-1", "start"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		instances, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, instances, id1)
		assert.Contains(t, instances, id2)
	})
}
