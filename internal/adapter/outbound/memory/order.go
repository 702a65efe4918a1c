package memory

import (
	"context"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/google/uuid"
)

// orderAdapter implements outbound.OrderDatabasePort.
type orderAdapter struct {
	store *Store
}

// NewOrderAdapter creates a new in-memory order adapter.
func NewOrderAdapter(store *Store) outbound.OrderDatabasePort {
	return &orderAdapter{store: store}
}

func (a *orderAdapter) Create(ctx context.Context, order *model.Order) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if _, exists := a.store.orders[order.ID]; exists {
		return apperrors.Conflict("order already exists")
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}

	stored := order.Clone()
	stored.Items = make([]*model.OrderItem, len(order.Items))
	for i, item := range order.Items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		copied := *item
		stored.Items[i] = &copied
		a.store.items[item.ID] = &copied
	}
	a.store.orders[order.ID] = stored
	return nil
}

func (a *orderAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	order, ok := a.store.orders[id]
	if !ok {
		return nil, nil
	}
	return order.Clone(), nil
}

func (a *orderAdapter) GetItem(ctx context.Context, itemID uuid.UUID) (*model.OrderItem, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	item, ok := a.store.items[itemID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (a *orderAdapter) List(ctx context.Context, filter *model.OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	var matched []*model.Order
	for _, order := range a.store.orders {
		if filter != nil {
			if filter.UserID != nil && order.UserID != *filter.UserID {
				continue
			}
			if filter.Status != nil && order.Status != *filter.Status {
				continue
			}
		}
		matched = append(matched, order.Clone())
	}
	newestFirst(matched, func(o *model.Order) time.Time { return o.CreatedAt })

	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (a *orderAdapter) CompareAndSwap(ctx context.Context, order *model.Order, expected model.OrderStatus, change *model.StatusChange) (bool, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	current, ok := a.store.orders[order.ID]
	if !ok || current.Status != expected {
		return false, nil
	}

	updated := current.Clone()
	updated.Status = order.Status
	updated.StripeRefundID = order.StripeRefundID
	updated.RefundAmount = order.RefundAmount
	updated.RefundedAt = order.RefundedAt
	updated.UpdatedAt = order.UpdatedAt
	a.store.orders[order.ID] = updated
	a.store.appendHistory(change)
	return true, nil
}

// Compile-time check
var _ outbound.OrderDatabasePort = (*orderAdapter)(nil)
