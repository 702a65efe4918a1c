package memory

import (
	"context"
	"sort"
	"time"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/google/uuid"
)

// returnAdapter implements outbound.ReturnDatabasePort.
type returnAdapter struct {
	store *Store
}

// NewReturnAdapter creates a new in-memory return request adapter.
func NewReturnAdapter(store *Store) outbound.ReturnDatabasePort {
	return &returnAdapter{store: store}
}

func (a *returnAdapter) Create(ctx context.Context, ret *model.ReturnRequest, change *model.StatusChange) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	for _, existing := range a.store.returns {
		if existing.OrderItemID == ret.OrderItemID && existing.Status.IsActive() {
			return apperrors.Conflict("an active return already exists for this order item").
				WithDetails(map[string]any{"return_id": existing.ID.String()})
		}
	}

	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	a.store.returns[ret.ID] = ret.Clone()
	a.store.appendHistory(change)
	return nil
}

func (a *returnAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	ret, ok := a.store.returns[id]
	if !ok {
		return nil, nil
	}
	return ret.Clone(), nil
}

func (a *returnAdapter) FindActiveByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*model.ReturnRequest, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	for _, ret := range a.store.returns {
		if ret.OrderItemID == orderItemID && ret.Status.IsActive() {
			return ret.Clone(), nil
		}
	}
	return nil, nil
}

func (a *returnAdapter) List(ctx context.Context, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	var matched []*model.ReturnRequest
	for _, ret := range a.store.returns {
		if filter != nil {
			if filter.UserID != nil && ret.UserID != *filter.UserID {
				continue
			}
			if filter.Status != nil && ret.Status != *filter.Status {
				continue
			}
			if filter.RefundStatus != nil && ret.RefundStatus != *filter.RefundStatus {
				continue
			}
		}
		matched = append(matched, ret.Clone())
	}
	newestFirst(matched, func(r *model.ReturnRequest) time.Time { return r.CreatedAt })

	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (a *returnAdapter) CompareAndSwap(ctx context.Context, ret *model.ReturnRequest, expected model.ReturnState, changes ...*model.StatusChange) (bool, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	current, ok := a.store.returns[ret.ID]
	if !ok || current.State() != expected {
		return false, nil
	}

	a.store.returns[ret.ID] = ret.Clone()
	for _, change := range changes {
		a.store.appendHistory(change)
	}
	return true, nil
}

// historyAdapter implements outbound.StatusHistoryDatabasePort.
type historyAdapter struct {
	store *Store
}

// NewStatusHistoryAdapter creates a new in-memory status history adapter.
func NewStatusHistoryAdapter(store *Store) outbound.StatusHistoryDatabasePort {
	return &historyAdapter{store: store}
}

func (a *historyAdapter) ListByEntity(ctx context.Context, kind model.EntityKind, entityID uuid.UUID) ([]*model.StatusChange, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	out := []*model.StatusChange{}
	for _, change := range a.store.history {
		if change.EntityKind == kind && change.EntityID == entityID {
			c := *change
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Compile-time checks
var (
	_ outbound.ReturnDatabasePort        = (*returnAdapter)(nil)
	_ outbound.StatusHistoryDatabasePort = (*historyAdapter)(nil)
)
