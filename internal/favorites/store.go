// Package favorites defines the device-local favorite group store and the
// degrading cache layered on top of it.
package favorites

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrStoreClosed = errors.New("favorites store is closed")

	// ErrStoreBusy marks transient lock contention with another process.
	// The store itself is still healthy; the operation may be retried.
	ErrStoreBusy = errors.New("favorites store busy")
)

// Store defines the interface for favorite group persistence.
// The favorite set and the sync marker live together because both are
// device-scoped records that must survive process restarts.
type Store interface {
	// IsFavorite checks whether a group is in the favorite set.
	IsFavorite(ctx context.Context, groupID string) (bool, error)

	// All returns a snapshot of every favorited group ID.
	All(ctx context.Context) ([]string, error)

	// Add puts a group into the favorite set. Adding an existing
	// member is a no-op.
	Add(ctx context.Context, groupID string) error

	// Remove takes a group out of the favorite set. Removing a
	// non-member is a no-op.
	Remove(ctx context.Context, groupID string) error

	// ReplaceAll overwrites the entire favorite set. Used by the
	// reconciler to install a merged set.
	ReplaceAll(ctx context.Context, groupIDs []string) error

	// Clear removes every favorite.
	Clear(ctx context.Context) error

	// Count returns the number of favorited groups.
	Count(ctx context.Context) (int64, error)

	// SyncedIdentity returns the identity the sync marker was set for,
	// or "" when no reconciliation has completed on this device.
	SyncedIdentity(ctx context.Context) (string, error)

	// MarkSynced records that reconciliation completed for the given
	// identity. Overwrites any previous marker.
	MarkSynced(ctx context.Context, identity string) error

	// ResetSync clears the sync marker, e.g. after an identity change.
	ResetSync(ctx context.Context) error

	// Close closes the store.
	Close() error
}
