package engine

import (
	"context"
	"sync"
)

// memoryStoreCap bounds the in-memory audit trail.
const memoryStoreCap = 10000

// MemoryStore is an in-memory Store for demo/test use.
type MemoryStore struct {
	mu        sync.RWMutex
	decisions []*Decision
}

// NewMemoryStore creates an in-memory decision store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *d
	s.decisions = append(s.decisions, &cp)
	if over := len(s.decisions) - memoryStoreCap; over > 0 {
		s.decisions = s.decisions[over:]
	}
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.decisions) {
		limit = len(s.decisions)
	}

	// Most recent first.
	out := make([]*Decision, 0, limit)
	for i := len(s.decisions) - 1; i >= len(s.decisions)-limit; i-- {
		cp := *s.decisions[i]
		out = append(out, &cp)
	}
	return out, nil
}
