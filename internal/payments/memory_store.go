package payments

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory session store for development and tests.
// Idempotency only holds within a single process lifetime.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time)}
}

func (s *MemoryStore) MarkProcessed(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sessionID]; exists {
		return false, nil
	}
	s.sessions[sessionID] = time.Now()
	return true, nil
}

func (s *MemoryStore) Unmark(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, at := range s.sessions {
		if at.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
