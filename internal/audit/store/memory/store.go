package memory

import (
	"context"
	"sync"

	"taskboard/internal/audit/emit"
)

// Store is an in-memory audit sink for tests and development.
type Store struct {
	mu      sync.RWMutex
	records []emit.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, record emit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// ListRecent returns the most recent N records, newest first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]emit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > n {
		limit = n
	}
	out := make([]emit.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// ListByUser returns all records for one user, newest first.
func (s *Store) ListByUser(_ context.Context, userID string) ([]emit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []emit.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear drops all records (test isolation).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
