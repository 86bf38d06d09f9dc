package favorites

import (
	"context"
	"sync"
)

// MemoryStore implements Store entirely in memory. It backs tests and
// serves as the degraded fallback when the SQLite database is
// unavailable: favorites then last only for the process lifetime.
type MemoryStore struct {
	mu       sync.RWMutex
	set      map[string]struct{}
	identity string
	closed   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{set: make(map[string]struct{})}
}

// SeedMemory creates an in-memory store pre-populated with the given IDs.
// The cache uses it to carry the last known good snapshot over into
// memory when persistent storage fails.
func SeedMemory(groupIDs []string) *MemoryStore {
	s := NewMemory()
	for _, id := range groupIDs {
		s.set[id] = struct{}{}
	}
	return s
}

// IsFavorite checks whether a group is in the favorite set.
func (s *MemoryStore) IsFavorite(_ context.Context, groupID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	_, ok := s.set[groupID]
	return ok, nil
}

// All returns a snapshot of every favorited group ID.
func (s *MemoryStore) All(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(s.set))
	for id := range s.set {
		ids = append(ids, id)
	}
	return ids, nil
}

// Add puts a group into the favorite set.
func (s *MemoryStore) Add(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.set[groupID] = struct{}{}
	return nil
}

// Remove takes a group out of the favorite set.
func (s *MemoryStore) Remove(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	delete(s.set, groupID)
	return nil
}

// ReplaceAll overwrites the entire favorite set.
func (s *MemoryStore) ReplaceAll(_ context.Context, groupIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.set = make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		s.set[id] = struct{}{}
	}
	return nil
}

// Clear removes every favorite.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.set = make(map[string]struct{})
	return nil
}

// Count returns the number of favorited groups.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	return int64(len(s.set)), nil
}

// SyncedIdentity returns the identity the sync marker covers, or "".
func (s *MemoryStore) SyncedIdentity(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	return s.identity, nil
}

// MarkSynced records a completed reconciliation for the given identity.
func (s *MemoryStore) MarkSynced(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.identity = identity
	return nil
}

// ResetSync clears the sync marker.
func (s *MemoryStore) ResetSync(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.identity = ""
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
