package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestStore_Contract(t *testing.T) {
	store := NewFromClient(newTestClient(t))
	defer store.Close()

	ports.RunStateStoreContract(t, store)
}

func TestStore_RoundTripPreservesState(t *testing.T) {
	store := NewFromClient(newTestClient(t))
	defer store.Close()
	ctx := context.Background()

	state := domain.NewExecutionState("inst-1", "flow-1", "start")
	state.Status = domain.StatusWaitingForInput
	state.PendingVariable = "email"
	state.Visited = []string{"start", "ask-email"}
	state.Variables["name"] = "Ada"
	require.True(t, state.MarkEvent("evt-1"))

	require.NoError(t, store.Save(ctx, "inst-1", state))

	loaded, err := store.Load(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, loaded.Status)
	assert.Equal(t, "email", loaded.PendingVariable)
	assert.Equal(t, []string{"start", "ask-email"}, loaded.Visited)
	assert.False(t, loaded.MarkEvent("evt-1"), "consumed event ids must survive the round trip")
}

func TestStore_CustomPrefix(t *testing.T) {
	client := newTestClient(t)
	store := NewFromClient(client, WithPrefix("custom:"))
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "inst-1", domain.NewExecutionState("inst-1", "f", "start")))

	exists, err := client.Exists(ctx, "custom:inst-1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestLocker_MutualExclusion(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "inst-1", time.Minute)
	require.NoError(t, err)

	// A second acquisition must block until the first is released.
	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blockedCtx, "inst-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "inst-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_UnlockIsOwnerScoped(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "inst-1", time.Minute)
	require.NoError(t, err)

	// Simulate another owner taking the key after our TTL would expire.
	require.NoError(t, unlock(ctx))
	other, err := locker.Lock(ctx, "inst-1", time.Minute)
	require.NoError(t, err)

	// Releasing with the stale unlock func must not free the new owner's lock.
	require.NoError(t, unlock(ctx))
	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blockedCtx, "inst-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, other(ctx))
}
