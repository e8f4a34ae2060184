package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore keeps records in process. It is used when no redis is
// configured and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[string]memoryEntry
	nowFn func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  map[string]memoryEntry{},
		nowFn: time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, rec Record, ttl time.Duration) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	if e, ok := s.rows[rec.Key]; ok && now.Before(e.expiresAt) {
		existing := e.rec
		return &existing, false, nil
	}

	rec.State = StatePending
	s.rows[rec.Key] = memoryEntry{rec: rec, expiresAt: now.Add(ttl)}
	return nil, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.State = StateCompleted
	s.rows[rec.Key] = memoryEntry{rec: rec, expiresAt: s.nowFn().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows, key)
	return nil
}
