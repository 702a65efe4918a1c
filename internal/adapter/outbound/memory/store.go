// Package memory provides process-local implementations of the outbound ports.
// They back the dev profile (storage.driver: memory) and the domain scenario tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/utils/pagination"
	"github.com/google/uuid"
)

// Store is the shared state behind the memory adapters. Every compare-and-set and its
// history row happen under one lock, matching a single database transaction.
type Store struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]*model.Order
	items   map[uuid.UUID]*model.OrderItem
	returns map[uuid.UUID]*model.ReturnRequest
	history []*model.StatusChange
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		orders:  make(map[uuid.UUID]*model.Order),
		items:   make(map[uuid.UUID]*model.OrderItem),
		returns: make(map[uuid.UUID]*model.ReturnRequest),
	}
}

func (s *Store) appendHistory(change *model.StatusChange) {
	if change == nil {
		return
	}
	c := *change
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.history = append(s.history, &c)
}

// paginate returns the page of in, using the same 1-based paging as the SQL adapters.
func paginate[T any](in []T, page, pageSize int) []T {
	start, end := pagination.Bounds(len(in), page, pageSize)
	return in[start:end]
}

func newestFirst[T any](in []T, createdAt func(T) time.Time) {
	sort.SliceStable(in, func(i, j int) bool {
		return createdAt(in[i]).After(createdAt(in[j]))
	})
}
