package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmeet/favsync/internal/favorites"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AddRemove(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	groupID := "tampa-js"

	// Initially not a favorite
	fav, err := store.IsFavorite(ctx, groupID)
	require.NoError(t, err)
	assert.False(t, fav)

	// Add it
	err = store.Add(ctx, groupID)
	require.NoError(t, err)

	fav, err = store.IsFavorite(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, fav)

	// Remove it
	err = store.Remove(ctx, groupID)
	require.NoError(t, err)

	fav, err = store.IsFavorite(ctx, groupID)
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestStore_AddIsIdempotent(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "grp-1"))
	require.NoError(t, store.Add(ctx, "grp-1"))
	require.NoError(t, store.Add(ctx, "grp-1"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"grp-1"}, ids)
}

func TestStore_RemoveMissingIsNoop(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Remove(context.Background(), "never-added"))
}

func TestStore_All_NoDuplicates(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "a", "c", "b"} {
		require.NoError(t, store.Add(ctx, id))
	}

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
}

func TestStore_ReplaceAll(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "old-1"))
	require.NoError(t, store.Add(ctx, "old-2"))

	require.NoError(t, store.ReplaceAll(ctx, []string{"new-1", "new-2", "new-3"}))

	ids, err := store.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"new-1", "new-2", "new-3"}, ids)
}

func TestStore_ReplaceAll_Empty(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "grp-1"))
	require.NoError(t, store.ReplaceAll(ctx, nil))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStore_SyncMarker(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	// Fresh store: no marker
	identity, err := store.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Empty(t, identity)

	// Mark synced
	require.NoError(t, store.MarkSynced(ctx, "user-42"))

	identity, err = store.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity)

	// A different identity overwrites the marker
	require.NoError(t, store.MarkSynced(ctx, "user-99"))
	identity, err = store.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-99", identity)

	// Reset clears it
	require.NoError(t, store.ResetSync(ctx))
	identity, err = store.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Empty(t, identity)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "favsync.db")
	ctx := context.Background()

	store, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, "tampa-js"))
	require.NoError(t, store.MarkSynced(ctx, "user-1"))
	require.NoError(t, store.Close())

	// The favorite set and the sync marker both survive a restart.
	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	fav, err := reopened.IsFavorite(ctx, "tampa-js")
	require.NoError(t, err)
	assert.True(t, fav)

	identity, err := reopened.SyncedIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity)
}

func TestStore_CrossProcessVisibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "favsync.db")
	ctx := context.Background()

	// Two stores on one file stand in for two processes on one device.
	a, err := New(dbPath)
	require.NoError(t, err)
	defer a.Close()

	b, err := New(dbPath)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Add(ctx, "grp-1"))

	fav, err := b.IsFavorite(ctx, "grp-1")
	require.NoError(t, err)
	assert.True(t, fav, "a write in one process must be readable in another without a restart")
}

func TestStore_DataVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "favsync.db")
	ctx := context.Background()

	a, err := New(dbPath)
	require.NoError(t, err)
	defer a.Close()

	b, err := New(dbPath)
	require.NoError(t, err)
	defer b.Close()

	baseline, err := a.DataVersion(ctx)
	require.NoError(t, err)

	// Our own write must not move our data_version: the writer never
	// observes its own write on the cross-process channel.
	require.NoError(t, a.Add(ctx, "own-write"))
	after, err := a.DataVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, baseline, after)

	// A foreign write must move it.
	require.NoError(t, b.Add(ctx, "foreign-write"))
	after, err = a.DataVersion(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, baseline, after)
}

func TestStore_ClosedErrors(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()

	_, err = store.IsFavorite(ctx, "x")
	assert.ErrorIs(t, err, favorites.ErrStoreClosed)

	_, err = store.All(ctx)
	assert.ErrorIs(t, err, favorites.ErrStoreClosed)

	assert.ErrorIs(t, store.Add(ctx, "x"), favorites.ErrStoreClosed)
	assert.ErrorIs(t, store.Remove(ctx, "x"), favorites.ErrStoreClosed)
	assert.ErrorIs(t, store.ReplaceAll(ctx, nil), favorites.ErrStoreClosed)
	assert.ErrorIs(t, store.MarkSynced(ctx, "u"), favorites.ErrStoreClosed)

	// Close is idempotent.
	assert.NoError(t, store.Close())
}

func TestStore_ConcurrencyPragmasApplied(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "favsync.db"))
	require.NoError(t, err)
	defer store.Close()

	var mode string
	require.NoError(t, store.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, store.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestStore_WriteWaitsOutConcurrentTransaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favsync.db")

	holder, err := New(path)
	require.NoError(t, err)
	defer holder.Close()

	writer, err := New(path)
	require.NoError(t, err)
	defer writer.Close()

	ctx := context.Background()

	// Hold the write lock from one store while the other writes.
	tx, err := holder.db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec(
		"INSERT INTO favorite_groups (group_id, favorited_at) VALUES ('held', 1)")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- writer.Add(ctx, "grp-1")
	}()

	// The colliding write must block on the busy timeout, not fail.
	select {
	case err := <-done:
		t.Fatalf("write finished while the lock was held: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, tx.Commit())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write never completed after the lock was released")
	}

	fav, err := holder.IsFavorite(ctx, "grp-1")
	require.NoError(t, err)
	assert.True(t, fav)
}
