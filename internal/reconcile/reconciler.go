// Package reconcile merges the device-local favorite set with the
// server's authoritative set, at most once per authenticated identity
// per device. The merge is a union: a favorite added locally before
// signing in is genuine intent and must survive, and so must favorites
// recorded server-side from another device.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/openmeet/favsync/internal/favorites"
	"github.com/openmeet/favsync/internal/identity"
)

// State is the reconciler phase.
type State int

const (
	// StateIdle means no reconciliation has been attempted yet, or the
	// last attempt's result was invalidated by an identity change.
	StateIdle State = iota
	// StateSyncing means a fetch of the authoritative set is in flight.
	StateSyncing
	// StateSynced means the merge completed and the sync marker is set.
	StateSynced
	// StateError means the last attempt failed; the next trigger retries.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FavoritesAPI is the slice of the service client the reconciler needs.
type FavoritesAPI interface {
	Favorites(ctx context.Context) ([]string, error)
	PutFavorites(ctx context.Context, groupIDs []string) error
}

// DefaultFetchTimeout bounds the authoritative-set fetch.
const DefaultFetchTimeout = 10 * time.Second

// Reconciler drives the one-time merge. Safe for concurrent use:
// simultaneous triggers collapse into a single in-flight fetch.
type Reconciler struct {
	cache    *favorites.Cache
	api      FavoritesAPI
	provider identity.Provider
	timeout  time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	state   State
	lastErr error

	// writeBack tracks the fire-and-forget push-back goroutine so
	// tests and shutdown can wait for it.
	writeBack sync.WaitGroup
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithTimeout bounds the authoritative-set fetch.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.timeout = d
	}
}

// New creates a reconciler over the given cache, API, and identity
// provider.
func New(cache *favorites.Cache, api FavoritesAPI, provider identity.Provider, logger *log.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	r := &Reconciler{
		cache:    cache,
		api:      api,
		provider: provider,
		timeout:  DefaultFetchTimeout,
		logger:   logger,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current phase.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the failure of the last attempt, if any. It is a status
// hint for the UI ("could not sync"), never a reason to block anything.
func (r *Reconciler) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Trigger runs a reconciliation if one is due. It is the only entry
// point and every mount/visit may call it freely:
//
//   - anonymous visitor: nothing happens, favorites stay local-only.
//   - marker already covers the current identity: nothing happens.
//   - another trigger is in flight: no-op, exactly one fetch runs.
//   - marker covers a DIFFERENT identity: the marker is reset first,
//     because a merge result for another identity is invalid.
//
// On failure the marker stays unset so a later visit retries.
func (r *Reconciler) Trigger(ctx context.Context) error {
	ident, err := r.provider.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve identity: %w", err)
	}
	if ident == nil {
		return nil
	}

	r.mu.Lock()
	if r.state == StateSyncing {
		r.mu.Unlock()
		return nil
	}

	synced := r.cache.SyncedIdentity()
	if synced == ident.ID {
		r.state = StateSynced
		r.mu.Unlock()
		return nil
	}
	if synced != "" {
		// Identity changed since the last merge on this device.
		r.cache.ResetSync()
	}

	r.state = StateSyncing
	r.mu.Unlock()

	return r.sync(ctx, ident)
}

func (r *Reconciler) sync(ctx context.Context, ident *identity.Identity) error {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Snapshot before the fetch: a toggle-to-favorite racing with the
	// fetch still survives the union; a concurrent un-favorite can be
	// resurrected by it, which is the accepted limitation of a
	// union-only merge.
	local := r.cache.All()

	serverSet, err := r.api.Favorites(fetchCtx)
	if err != nil {
		r.mu.Lock()
		r.state = StateError
		r.lastErr = err
		r.mu.Unlock()
		r.logger.Warn("favorites reconciliation failed", "err", err)
		return fmt.Errorf("failed to fetch authoritative favorites: %w", err)
	}

	merged := union(local, serverSet)

	r.cache.ReplaceAll(merged)
	r.cache.MarkSynced(ident.ID)

	r.mu.Lock()
	r.state = StateSynced
	r.lastErr = nil
	r.mu.Unlock()

	r.logger.Info("favorites reconciled",
		"identity", ident.ID, "local", len(local), "server", len(serverSet), "merged", len(merged))

	// Push the merged set back so both sides converge. Fire-and-forget:
	// a failed write-back never reverts local state; the divergence
	// self-heals on a later write-back or the visitor's own toggles.
	r.writeBack.Add(1)
	go func() {
		defer r.writeBack.Done()
		wbCtx, wbCancel := context.WithTimeout(context.Background(), r.timeout)
		defer wbCancel()
		if err := r.api.PutFavorites(wbCtx, merged); err != nil {
			r.logger.Warn("favorites write-back failed", "err", err)
		}
	}()

	return nil
}

// Wait blocks until any in-flight write-back finishes. Used by tests
// and graceful shutdown.
func (r *Reconciler) Wait() {
	r.writeBack.Wait()
}

// union merges two ID sets, deduplicated, preserving first-seen order.
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, ids := range [][]string{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
