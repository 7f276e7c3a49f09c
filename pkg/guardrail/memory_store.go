package guardrail

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*RateLimitEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*RateLimitEntry),
	}
}

// Get returns a copy of the entry so callers can mutate it freely before Set.
func (s *MemoryStore) Get(_ context.Context, userID string) (*RateLimitEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *MemoryStore) Set(_ context.Context, entry *RateLimitEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries[entry.UserID] = &copied
	return nil
}

// Prune drops expired entries. Intended for a periodic sweep in long-running
// processes; correctness does not depend on it.
func (s *MemoryStore) Prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, entry := range s.entries {
		if !now.Before(entry.ResetAt) {
			delete(s.entries, userID)
		}
	}
}
