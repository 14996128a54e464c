// Package memory is the in-process counter/block store. It backs tests and
// the degraded mode used when redis is not configured or unreachable.
package memory

import (
	"context"
	"sync"
	"time"

	"taskboard/internal/bruteforce"
)

type counter struct {
	count     int
	expiresAt time.Time
}

// Store implements bruteforce.Store with a mutex-guarded map. Expiry is
// evaluated lazily on access; no background sweeper.
type Store struct {
	mu       sync.Mutex
	counters map[string]*counter
	blocks   map[string]*bruteforce.SecurityBlock
	now      func() time.Time
}

func New() *Store {
	return &Store{
		counters: make(map[string]*counter),
		blocks:   make(map[string]*bruteforce.SecurityBlock),
		now:      time.Now,
	}
}

// WithClock overrides the store's clock for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Increment(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = &counter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (s *Store) Get(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expiresAt) {
		return 0, nil
	}
	return c.count, nil
}

func (s *Store) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

func (s *Store) GetBlock(_ context.Context, identifier string) (*bruteforce.SecurityBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, ok := s.blocks[identifier]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(block.ExpiresAt) {
		delete(s.blocks, identifier)
		return nil, nil
	}
	copied := *block
	return &copied, nil
}

func (s *Store) PutBlock(_ context.Context, block *bruteforce.SecurityBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *block
	s.blocks[block.Identifier] = &copied
	return nil
}

func (s *Store) DeleteBlock(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, identifier)
	return nil
}
