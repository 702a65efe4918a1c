package memory

import (
	"context"
	"sync"
	"time"

	"github.com/emberwick/storefront/internal/port/outbound"
)

type idempotencyEntry struct {
	data      []byte
	expiresAt time.Time
}

// IdempotencyStore is a process-local idempotency store for single-instance runs.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyEntry
	locks   map[string]time.Time
	now     func() time.Time
}

// NewIdempotencyStore creates an empty idempotency store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]idempotencyEntry),
		locks:   make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.records[key]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.records, key)
		return nil, nil
	}
	return entry.data, nil
}

func (s *IdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until, ok := s.locks[key]; ok && s.now().Before(until) {
		return false, nil
	}
	s.locks[key] = s.now().Add(ttl)
	return true, nil
}

func (s *IdempotencyStore) Unlock(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

func (s *IdempotencyStore) Save(ctx context.Context, key string, record []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = idempotencyEntry{data: append([]byte(nil), record...), expiresAt: s.now().Add(ttl)}
	return nil
}

// Compile-time check
var _ outbound.IdempotencyStorePort = (*IdempotencyStore)(nil)
