package favorites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AddRemove(t *testing.T) {
	store := NewMemory()
	defer store.Close()

	ctx := context.Background()

	fav, err := store.IsFavorite(ctx, "grp-1")
	require.NoError(t, err)
	assert.False(t, fav)

	require.NoError(t, store.Add(ctx, "grp-1"))

	fav, err = store.IsFavorite(ctx, "grp-1")
	require.NoError(t, err)
	assert.True(t, fav)

	require.NoError(t, store.Remove(ctx, "grp-1"))

	fav, err = store.IsFavorite(ctx, "grp-1")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestMemoryStore_Seed(t *testing.T) {
	store := SeedMemory([]string{"a", "b"})
	defer store.Close()

	ctx := context.Background()

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestMemoryStore_ReplaceAllAndMarker(t *testing.T) {
	store := NewMemory()
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.ReplaceAll(ctx, []string{"x", "y"}))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.MarkSynced(ctx, "user-1"))
	identity, err := store.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity)

	require.NoError(t, store.ResetSync(ctx))
	identity, err = store.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Empty(t, identity)
}

func TestMemoryStore_ClosedErrors(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Close())

	ctx := context.Background()
	_, err := store.IsFavorite(ctx, "x")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Add(ctx, "x"), ErrStoreClosed)
}
