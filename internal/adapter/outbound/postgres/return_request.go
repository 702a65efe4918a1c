package postgres

import (
	"context"
	"errors"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/emberwick/storefront/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// activeReturnIndex is the partial unique index that keeps one active return per item.
const activeReturnIndex = "idx_return_requests_active_item"

// returnAdapter implements outbound.ReturnDatabasePort.
type returnAdapter struct {
	db *gorm.DB
}

// NewReturnAdapter creates a new return request database adapter.
func NewReturnAdapter(db *gorm.DB) outbound.ReturnDatabasePort {
	return &returnAdapter{db: db}
}

func (a *returnAdapter) Create(ctx context.Context, ret *model.ReturnRequest, change *model.StatusChange) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ret).Error; err != nil {
			return err
		}
		if change != nil {
			if err := tx.Create(change).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == activeReturnIndex {
		conflict := apperrors.Conflict("an active return already exists for this order item")
		if existing, findErr := a.FindActiveByOrderItem(ctx, ret.OrderItemID); findErr == nil && existing != nil {
			return conflict.WithDetails(map[string]any{"return_id": existing.ID.String()})
		}
		return conflict
	}
	return err
}

func (a *returnAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	var ret model.ReturnRequest
	err := a.db.WithContext(ctx).First(&ret, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ret, nil
}

func (a *returnAdapter) FindActiveByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*model.ReturnRequest, error) {
	var ret model.ReturnRequest
	err := a.db.WithContext(ctx).
		Where("order_item_id = ?", orderItemID).
		Where("status NOT IN ?", []string{string(model.ReturnStatusCompleted), string(model.ReturnStatusRejected)}).
		First(&ret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ret, nil
}

func (a *returnAdapter) List(ctx context.Context, filter *model.ReturnFilter, page, pageSize int) ([]*model.ReturnRequest, int64, error) {
	var returns []*model.ReturnRequest
	var total int64

	query := a.db.WithContext(ctx).Model(&model.ReturnRequest{})

	if filter != nil {
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", string(*filter.Status))
		}
		if filter.RefundStatus != nil {
			query = query.Where("refund_status = ?", string(*filter.RefundStatus))
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && pageSize > 0 {
		query = query.Offset(pagination.Offset(page, pageSize)).Limit(pageSize)
	}

	if err := query.Order("created_at DESC").Find(&returns).Error; err != nil {
		return nil, 0, err
	}

	return returns, total, nil
}

func (a *returnAdapter) CompareAndSwap(ctx context.Context, ret *model.ReturnRequest, expected model.ReturnState, changes ...*model.StatusChange) (bool, error) {
	var swapped bool
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Select("*") writes zero values too, so cleared fields are persisted.
		result := tx.Model(&model.ReturnRequest{}).
			Where("id = ? AND status = ? AND refund_status = ?",
				ret.ID, string(expected.Status), string(expected.RefundStatus)).
			Select("*").
			Omit("id", "order_id", "order_item_id", "user_id", "created_at").
			Updates(ret)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		for _, change := range changes {
			if change == nil {
				continue
			}
			if err := tx.Create(change).Error; err != nil {
				return err
			}
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

// historyAdapter implements outbound.StatusHistoryDatabasePort.
type historyAdapter struct {
	db *gorm.DB
}

// NewStatusHistoryAdapter creates a new status history database adapter.
func NewStatusHistoryAdapter(db *gorm.DB) outbound.StatusHistoryDatabasePort {
	return &historyAdapter{db: db}
}

func (a *historyAdapter) ListByEntity(ctx context.Context, kind model.EntityKind, entityID uuid.UUID) ([]*model.StatusChange, error) {
	changes := []*model.StatusChange{}
	err := a.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", string(kind), entityID).
		Order("created_at ASC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// Compile-time checks
var (
	_ outbound.ReturnDatabasePort        = (*returnAdapter)(nil)
	_ outbound.StatusHistoryDatabasePort = (*historyAdapter)(nil)
)
