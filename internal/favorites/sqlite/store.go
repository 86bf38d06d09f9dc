// Package sqlite implements favorites.Store on a shared SQLite database.
//
// Every favsync process on a device opens the same database file, which
// makes it the device-scoped persistent medium: all processes read and
// write it freely, last write wins.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openmeet/favsync/internal/favorites"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store implements favorites.Store using SQLite.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// New creates a new SQLite-backed favorites store. WAL lets other
// favsync processes read while this one writes; the busy timeout makes
// a colliding write wait for the lock instead of failing outright.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open favorites database: %w", err)
	}

	// PRAGMA data_version is scoped to a single connection: it only
	// changes when a DIFFERENT connection commits. Pinning the pool to
	// one connection keeps that property meaningful for the watcher:
	// this process never observes its own writes through DataVersion.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize favorites database: %w", err)
	}

	return store, nil
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// wrapErr wraps a database error, marking lock contention with
// favorites.ErrStoreBusy so callers can retry rather than treat the
// database as gone.
func wrapErr(msg string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		// Mask extended result codes (e.g. SQLITE_BUSY_SNAPSHOT) down
		// to their primary code.
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %v", msg, favorites.ErrStoreBusy, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// initialize creates the necessary tables.
func (s *Store) initialize() error {
	schema := `
		CREATE TABLE IF NOT EXISTS favorite_groups (
			group_id     TEXT PRIMARY KEY,
			favorited_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sync_marker (
			id        INTEGER PRIMARY KEY CHECK (id = 1),
			identity  TEXT NOT NULL,
			synced_at INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// IsFavorite checks whether a group is in the favorite set.
func (s *Store) IsFavorite(ctx context.Context, groupID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, favorites.ErrStoreClosed
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorite_groups WHERE group_id = ?",
		groupID,
	).Scan(&count)

	if err != nil {
		return false, wrapErr("failed to check favorite status", err)
	}

	return count > 0, nil
}

// All returns a snapshot of every favorited group ID.
func (s *Store) All(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, favorites.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id FROM favorite_groups ORDER BY favorited_at DESC",
	)
	if err != nil {
		return nil, wrapErr("failed to list favorites", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Add puts a group into the favorite set.
func (s *Store) Add(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return favorites.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO favorite_groups (group_id, favorited_at) VALUES (?, ?)",
		groupID, time.Now().Unix(),
	)

	if err != nil {
		return wrapErr("failed to add favorite", err)
	}

	return nil
}

// Remove takes a group out of the favorite set.
func (s *Store) Remove(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return favorites.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM favorite_groups WHERE group_id = ?",
		groupID,
	)

	if err != nil {
		return wrapErr("failed to remove favorite", err)
	}

	return nil
}

// ReplaceAll overwrites the entire favorite set in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, groupIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return favorites.ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("failed to begin replace transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM favorite_groups"); err != nil {
		return wrapErr("failed to clear favorites", err)
	}

	now := time.Now().Unix()
	for _, id := range groupIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO favorite_groups (group_id, favorited_at) VALUES (?, ?)",
			id, now,
		)
		if err != nil {
			return wrapErr(fmt.Sprintf("failed to insert favorite %q", id), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("failed to commit replace", err)
	}

	return nil
}

// Clear removes every favorite.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return favorites.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM favorite_groups")
	if err != nil {
		return wrapErr("failed to clear favorites", err)
	}

	return nil
}

// Count returns the number of favorited groups.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, favorites.ErrStoreClosed
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorite_groups",
	).Scan(&count)

	if err != nil {
		return 0, wrapErr("failed to count favorites", err)
	}

	return count, nil
}

// SyncedIdentity returns the identity the sync marker covers, or "".
func (s *Store) SyncedIdentity(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", favorites.ErrStoreClosed
	}

	var identity string
	err := s.db.QueryRowContext(ctx,
		"SELECT identity FROM sync_marker WHERE id = 1",
	).Scan(&identity)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrapErr("failed to read sync marker", err)
	}

	return identity, nil
}

// MarkSynced records a completed reconciliation for the given identity.
func (s *Store) MarkSynced(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return favorites.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO sync_marker (id, identity, synced_at) VALUES (1, ?, ?)",
		identity, time.Now().Unix(),
	)

	if err != nil {
		return wrapErr("failed to set sync marker", err)
	}

	return nil
}

// ResetSync clears the sync marker.
func (s *Store) ResetSync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return favorites.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM sync_marker")
	if err != nil {
		return wrapErr("failed to reset sync marker", err)
	}

	return nil
}

// DataVersion reports SQLite's data_version pragma for this connection.
// The value changes only when another connection commits a write, never
// for writes made through this store, which is exactly the cross-process
// change signal the watcher needs.
func (s *Store) DataVersion(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, favorites.ErrStoreClosed
	}

	var version int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version); err != nil {
		return 0, wrapErr("failed to read data_version", err)
	}

	return version, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
