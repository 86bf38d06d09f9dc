package favorites

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/openmeet/favsync/internal/notify"
)

// Busy retry policy for mutations. The store's own busy timeout already
// waits out most contention; these retries cover the rare case where it
// still surfaces.
const (
	busyRetries    = 3
	busyRetryDelay = 50 * time.Millisecond
)

// Cache is the device-local favorite set as the rest of the application
// sees it. It wraps a Store and guarantees two things the raw Store does
// not:
//
//   - No method ever returns an error. If the underlying store fails,
//     the cache swaps in an in-memory store seeded with the last known
//     good snapshot and carries on; favorites then last only for the
//     process lifetime.
//   - Every mutation fires the change notifier, including mutations
//     that did not alter observable state. Observers carry "something
//     might have changed" logic and re-read the cache, so a redundant
//     signal is harmless while a missing one is not.
type Cache struct {
	mu       sync.Mutex
	store    Store
	notifier *notify.Notifier
	logger   *log.Logger
	degraded bool
	snapshot []string
}

// NewCache wraps a store. The notifier must not be nil; every consumer
// of the cache shares it.
func NewCache(store Store, notifier *notify.Notifier, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	c := &Cache{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}

	// Prime the snapshot so a later degradation does not lose state
	// that was never read.
	if ids, err := store.All(context.Background()); err == nil {
		c.snapshot = ids
	}

	return c
}

// Notifier returns the shared change notifier.
func (c *Cache) Notifier() *notify.Notifier {
	return c.notifier
}

// Degraded reports whether the cache has fallen back to in-memory
// storage for this process lifetime.
func (c *Cache) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// degrade swaps in an in-memory store seeded with the last good
// snapshot. Lock contention is not unavailability and never degrades:
// another process is using the database, which means the database is
// fine. Caller must hold c.mu.
func (c *Cache) degrade(op string, err error) {
	if c.degraded {
		return
	}
	if errors.Is(err, ErrStoreBusy) {
		c.logger.Warn("favorites storage busy", "op", op, "err", err)
		return
	}
	c.logger.Warn("favorites storage unavailable, continuing in memory",
		"op", op, "err", err)
	c.store.Close()
	c.store = SeedMemory(c.snapshot)
	c.degraded = true
}

// IsFavorite reports whether a group is favorited. Unknown or missing
// storage reads as false.
func (c *Cache) IsFavorite(groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.store.IsFavorite(context.Background(), groupID)
	if err != nil {
		c.degrade("isFavorite", err)
		ok, _ = c.store.IsFavorite(context.Background(), groupID)
	}
	return ok
}

// All returns a sorted snapshot of the favorite set. The returned slice
// is the caller's to keep; mutating it cannot corrupt the cache.
func (c *Cache) All() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.store.All(context.Background())
	if err != nil {
		c.degrade("all", err)
		ids, _ = c.store.All(context.Background())
	}

	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	c.snapshot = ids
	return out
}

// Count returns the size of the favorite set.
func (c *Cache) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.store.Count(context.Background())
	if err != nil {
		c.degrade("count", err)
		n, _ = c.store.Count(context.Background())
	}
	return n
}

// Add favorites a group. Idempotent; always fires the notifier.
func (c *Cache) Add(groupID string) {
	c.mutate("add", func(ctx context.Context) error {
		return c.store.Add(ctx, groupID)
	})
}

// Remove un-favorites a group. Idempotent; always fires the notifier.
func (c *Cache) Remove(groupID string) {
	c.mutate("remove", func(ctx context.Context) error {
		return c.store.Remove(ctx, groupID)
	})
}

// Toggle flips a group's favorited status and returns the new state.
func (c *Cache) Toggle(groupID string) bool {
	now := !c.IsFavorite(groupID)
	if now {
		c.Add(groupID)
	} else {
		c.Remove(groupID)
	}
	return now
}

// ReplaceAll overwrites the favorite set. Used by the reconciler to
// install a merged set; always fires the notifier.
func (c *Cache) ReplaceAll(groupIDs []string) {
	c.mutate("replaceAll", func(ctx context.Context) error {
		return c.store.ReplaceAll(ctx, groupIDs)
	})
}

// Clear empties the favorite set. Always fires the notifier.
func (c *Cache) Clear() {
	c.mutate("clear", func(ctx context.Context) error {
		return c.store.Clear(ctx)
	})
}

// mutate runs a store mutation, refreshes the snapshot, and publishes
// the change signal after releasing the lock so subscribers can re-read
// the cache without deadlocking.
func (c *Cache) mutate(op string, fn func(ctx context.Context) error) {
	c.mu.Lock()

	ctx := context.Background()
	err := fn(ctx)
	for attempt := 0; errors.Is(err, ErrStoreBusy) && attempt < busyRetries; attempt++ {
		time.Sleep(busyRetryDelay)
		err = fn(ctx)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrStoreBusy):
		// Another process held the write lock through every retry.
		// Drop this write; the persistent store stays shared.
		c.logger.Warn("favorites mutation dropped under contention", "op", op, "err", err)
	default:
		c.degrade(op, err)
		if err := fn(ctx); err != nil {
			c.logger.Error("favorites mutation failed in memory", "op", op, "err", err)
		}
	}

	if ids, err := c.store.All(ctx); err == nil {
		c.snapshot = ids
	}

	c.mu.Unlock()

	c.notifier.Publish()
}

// SyncedIdentity returns the identity the sync marker covers, or "".
func (c *Cache) SyncedIdentity() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	identity, err := c.store.SyncedIdentity(context.Background())
	if err != nil {
		c.degrade("syncedIdentity", err)
		identity, _ = c.store.SyncedIdentity(context.Background())
	}
	return identity
}

// MarkSynced records a completed reconciliation for the given identity.
// Marker changes are not favorite-set changes, so no signal fires.
func (c *Cache) MarkSynced(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.MarkSynced(context.Background(), identity); err != nil {
		c.degrade("markSynced", err)
		_ = c.store.MarkSynced(context.Background(), identity)
	}
}

// ResetSync clears the sync marker.
func (c *Cache) ResetSync() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ResetSync(context.Background()); err != nil {
		c.degrade("resetSync", err)
		_ = c.store.ResetSync(context.Background())
	}
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Close()
}
