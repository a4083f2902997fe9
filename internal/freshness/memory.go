package freshness

import (
	"context"
	"sync"
)

// MemoryStore keeps the history in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	batches [][]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds batch at the tail and trims the head down to capacity.
func (s *MemoryStore) Append(_ context.Context, batch []string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches = append(s.batches, append([]string(nil), batch...))
	if over := len(s.batches) - capacity; over > 0 {
		s.batches = append([][]string(nil), s.batches[over:]...)
	}
	return nil
}

// Batches returns a copy of the history, oldest first.
func (s *MemoryStore) Batches(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]string, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]string(nil), b...)
	}
	return out, nil
}
