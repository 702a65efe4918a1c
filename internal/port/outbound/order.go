package outbound

import (
	"context"

	"github.com/emberwick/storefront/internal/model"
	"github.com/google/uuid"
)

// OrderDatabasePort defines the interface for order database operations.
type OrderDatabasePort interface {
	// Create persists an order and its items. Orders are created at checkout confirmation.
	Create(ctx context.Context, order *model.Order) error

	// GetByID returns the order with items, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetItem returns an order item, or nil if it does not exist.
	GetItem(ctx context.Context, itemID uuid.UUID) (*model.OrderItem, error)

	// List returns a page of orders matching filter, newest first.
	List(ctx context.Context, filter *model.OrderFilter, page, pageSize int) ([]*model.Order, int64, error)

	// CompareAndSwap writes the status and refund bookkeeping of order only if the
	// stored status still equals expected, and records change in the same transaction.
	// It reports false when the compare failed.
	CompareAndSwap(ctx context.Context, order *model.Order, expected model.OrderStatus, change *model.StatusChange) (bool, error)
}
