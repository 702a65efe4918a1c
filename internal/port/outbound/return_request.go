package outbound

import (
	"context"

	"github.com/emberwick/storefront/internal/model"
	"github.com/google/uuid"
)

// ReturnDatabasePort defines the interface for return request persistence.
type ReturnDatabasePort interface {
	// Create persists a new return request together with its first history row.
	// A second active return for the same order item yields a conflict error.
	Create(ctx context.Context, ret *model.ReturnRequest, change *model.StatusChange) error

	// GetByID returns the return request, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error)

	// FindActiveByOrderItem returns the non-terminal return for an order item, or nil.
	FindActiveByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*model.ReturnRequest, error)

	// List returns a page of return requests matching filter, newest first.
	List(ctx context.Context, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error)

	// CompareAndSwap writes ret only if the stored status and refund status still equal
	// expected, and records changes in the same transaction.
	// It reports false when the compare failed.
	CompareAndSwap(ctx context.Context, ret *model.ReturnRequest, expected model.ReturnState, changes ...*model.StatusChange) (bool, error)
}

// StatusHistoryDatabasePort reads the transition timeline of an entity.
type StatusHistoryDatabasePort interface {
	ListByEntity(ctx context.Context, kind model.EntityKind, entityID uuid.UUID) ([]*model.StatusChange, error)
}
