package memory

import (
	"context"
	"sync"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	"github.com/google/uuid"
)

// ViewCache is a process-local view cache. It is only coherent for a single instance.
type ViewCache struct {
	mu            sync.Mutex
	orders        map[uuid.UUID]*model.Order
	returns       map[uuid.UUID]*model.ReturnRequest
	invalidations []string
}

// NewViewCache creates an empty view cache.
func NewViewCache() *ViewCache {
	return &ViewCache{
		orders:  make(map[uuid.UUID]*model.Order),
		returns: make(map[uuid.UUID]*model.ReturnRequest),
	}
}

func (c *ViewCache) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.orders[id]; ok {
		return o.Clone(), nil
	}
	return nil, nil
}

func (c *ViewCache) SetOrder(ctx context.Context, order *model.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[order.ID] = order.Clone()
	return nil
}

func (c *ViewCache) GetReturn(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.returns[id]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (c *ViewCache) SetReturn(ctx context.Context, ret *model.ReturnRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.returns[ret.ID] = ret.Clone()
	return nil
}

// Invalidate drops the cached view of an entity.
func (c *ViewCache) Invalidate(ctx context.Context, kind model.EntityKind, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case model.EntityOrder:
		delete(c.orders, id)
	case model.EntityReturn:
		delete(c.returns, id)
	}
	c.invalidations = append(c.invalidations, string(kind)+":"+id.String())
	return nil
}

// Invalidations returns the "kind:id" keys invalidated so far, in order.
func (c *ViewCache) Invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidations...)
}

// Compile-time checks
var (
	_ outbound.ViewCachePort       = (*ViewCache)(nil)
	_ outbound.ViewInvalidatorPort = (*ViewCache)(nil)
)
