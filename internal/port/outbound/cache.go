package outbound

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/google/uuid"
)

// ViewCachePort caches rendered entity views for reads.
type ViewCachePort interface {
	// GetOrder returns a cached order view, or nil on miss.
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// SetOrder stores an order view.
	SetOrder(ctx context.Context, order *model.Order) error

	// GetReturn returns a cached return view, or nil on miss.
	GetReturn(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)

	// SetReturn stores a return view.
	SetReturn(ctx context.Context, ret *model.ReturnRequest) error
}

// ViewInvalidatorPort is fired after every committed transition.
type ViewInvalidatorPort interface {
	Invalidate(ctx context.Context, kind model.EntityKind, id uuid.UUID) error
}

// IdempotencyStorePort stores replayable HTTP responses keyed by Idempotency-Key.
type IdempotencyStorePort interface {
	// Get returns the stored record, or nil on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Lock claims key for an in-flight request. It reports false if already claimed.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock releases the claim taken by Lock.
	Unlock(ctx context.Context, key string) error

	// Save stores a record for ttl.
	Save(ctx context.Context, key string, record []byte, ttl time.Duration) error
}
