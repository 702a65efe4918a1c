package order

import (
	"context"
	"fmt"
	"time"

	"github.com/emberwick/storefront/internal/domain/refund"
	"github.com/emberwick/storefront/internal/domain/transition"
	"github.com/emberwick/storefront/internal/infra/events"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/outbound"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/emberwick/storefront/internal/utils/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderDomain defines the interface for order business logic.
type OrderDomain interface {
	// Reads
	GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, actor model.Actor, filter *model.OrderFilter, page, pageSize int) ([]*model.Order, int64, error)
	History(ctx context.Context, actor model.Actor, orderID uuid.UUID) ([]*model.StatusChange, error)

	// Status transitions
	Advance(ctx context.Context, actor model.Actor, orderID uuid.UUID, target model.OrderStatus) (*model.Order, error)
	Cancel(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, *model.RefundOutcome, error)
}

// orderDomain implements OrderDomain.
type orderDomain struct {
	orderDB     outbound.OrderDatabasePort
	historyDB   outbound.StatusHistoryDatabasePort
	refunds     refund.RefundCoordinator
	views       outbound.ViewCachePort
	invalidator outbound.ViewInvalidatorPort
	publisher   outbound.EventPublisherPort
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderDomain creates a new order domain service.
func NewOrderDomain(
	orderDB outbound.OrderDatabasePort,
	historyDB outbound.StatusHistoryDatabasePort,
	refunds refund.RefundCoordinator,
	views outbound.ViewCachePort,
	invalidator outbound.ViewInvalidatorPort,
	publisher outbound.EventPublisherPort,
	m *metrics.Metrics,
	logger *zap.Logger,
) OrderDomain {
	return &orderDomain{
		orderDB:     orderDB,
		historyDB:   historyDB,
		refunds:     refunds,
		views:       views,
		invalidator: invalidator,
		publisher:   publisher,
		metrics:     m,
		logger:      logger.Named("order"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ===== Reads =====

func (d *orderDomain) GetOrder(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	if d.views != nil {
		cached, err := d.views.GetOrder(ctx, orderID)
		if err != nil {
			d.logger.Warn("order view cache read failed", zap.String("order_id", orderID.String()), zap.Error(err))
		}
		if cached != nil {
			if !actor.CanAccess(cached.UserID) {
				return nil, errNotOrderOwner()
			}
			return cached, nil
		}
	}

	order, err := d.loadAccessible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	if d.views != nil {
		if err := d.views.SetOrder(ctx, order); err != nil {
			d.logger.Warn("order view cache write failed", zap.String("order_id", orderID.String()), zap.Error(err))
		}
	}
	return order, nil
}

func (d *orderDomain) ListOrders(ctx context.Context, actor model.Actor, filter *model.OrderFilter, page, pageSize int) ([]*model.Order, int64, error) {
	if filter == nil {
		filter = &model.OrderFilter{}
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, apperrors.Validation("unknown order status").
			WithDetails(map[string]any{"status": string(*filter.Status)})
	}
	// Customers only ever see their own orders.
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	return d.orderDB.List(ctx, filter, page, pageSize)
}

func (d *orderDomain) History(ctx context.Context, actor model.Actor, orderID uuid.UUID) ([]*model.StatusChange, error) {
	if _, err := d.loadAccessible(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return d.historyDB.ListByEntity(ctx, model.EntityOrder, orderID)
}

// ===== Status transitions =====

func (d *orderDomain) Advance(ctx context.Context, actor model.Actor, orderID uuid.UUID, target model.OrderStatus) (*model.Order, error) {
	if !actor.IsAdmin() {
		return nil, errAdminOnly("changing order status")
	}
	if !target.IsValid() {
		return nil, apperrors.Validation("unknown order status").
			WithDetails(map[string]any{"status": string(target)})
	}
	if target == model.OrderStatusCancelled {
		return nil, errUseCancel()
	}

	order, err := d.orderDB.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, errOrderNotFound(orderID)
	}

	next, err := transition.Order(order.Status, target)
	if err != nil {
		return nil, err
	}

	now := d.now()
	updated := order.Clone()
	updated.Status = next
	updated.UpdatedAt = now

	change := model.NewStatusChange(model.EntityOrder, orderID, string(order.Status), string(next), actor, "", now)
	if err := d.commit(ctx, updated, order.Status, change); err != nil {
		return nil, err
	}

	d.afterCommit(ctx, updated, order.Status, actor)
	return updated, nil
}

func (d *orderDomain) Cancel(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, *model.RefundOutcome, error) {
	order, err := d.loadAccessible(ctx, actor, orderID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := transition.Order(order.Status, model.OrderStatusCancelled); err != nil {
		return nil, nil, err
	}

	now := d.now()
	updated := order.Clone()
	var outcome *model.RefundOutcome

	// A zero-total order has nothing to refund.
	if order.Total > 0 {
		if order.StripePaymentIntentID == "" {
			return nil, nil, errMissingPaymentReference(orderID)
		}

		result, err := d.refunds.Refund(ctx, &refund.Request{
			IdempotencyKey:   CancelIdempotencyKey(orderID),
			PaymentReference: order.StripePaymentIntentID,
			Amount:           order.Total,
			MaxAmount:        order.Total,
			Currency:         order.Currency,
			Metadata: map[string]string{
				"order_id": orderID.String(),
				"reason":   "order_cancelled",
			},
		})
		if err != nil {
			if apperrors.IsGateway(err) {
				d.publisher.Publish(events.NewRefundFailed(orderID, "Order", order.UserID, order.Total, refund.FailureReason(err)))
			}
			return nil, nil, err
		}

		refundID := result.GatewayRefundID
		amount := order.Total
		refundedAt := now
		updated.StripeRefundID = &refundID
		updated.RefundAmount = &amount
		updated.RefundedAt = &refundedAt

		outcome = &model.RefundOutcome{
			StripeRefundID: refundID,
			Amount:         amount,
			Status:         string(result.Status),
			RefundedAt:     refundedAt,
		}
	}

	updated.Status = model.OrderStatusCancelled
	updated.UpdatedAt = now

	note := "cancelled without refund"
	if outcome != nil {
		note = "refund " + outcome.StripeRefundID
	}
	change := model.NewStatusChange(model.EntityOrder, orderID, string(order.Status), string(updated.Status), actor, note, now)

	commitCtx := ctx
	if outcome != nil {
		// The refund exists at the gateway now; record it even if the caller went away.
		commitCtx = context.WithoutCancel(ctx)
	}
	if err := d.commit(commitCtx, updated, order.Status, change); err != nil {
		if outcome != nil {
			d.logger.Error("refund issued but order cancellation was not committed",
				zap.String("order_id", orderID.String()),
				zap.String("stripe_refund_id", outcome.StripeRefundID),
				zap.String("idempotency_key", CancelIdempotencyKey(orderID)),
				zap.Error(err),
			)
			if apperrors.IsConflict(err) {
				return nil, nil, d.strandedRefund(commitCtx, orderID, outcome)
			}
		}
		return nil, nil, err
	}

	d.afterCommit(ctx, updated, order.Status, actor)
	if outcome != nil {
		d.publisher.Publish(events.NewRefundCompleted(orderID, "Order", order.UserID, outcome.Amount, outcome.StripeRefundID))
	}
	return updated, outcome, nil
}

// ===== Helpers =====

// strandedRefund builds the conflict returned when the order changed while its refund
// was being issued. The details carry the refund so an operator can reconcile it.
func (d *orderDomain) strandedRefund(ctx context.Context, orderID uuid.UUID, outcome *model.RefundOutcome) error {
	var current model.OrderStatus
	latest, err := d.orderDB.GetByID(ctx, orderID)
	switch {
	case err != nil:
		d.logger.Warn("re-read after lost cancellation failed", zap.String("order_id", orderID.String()), zap.Error(err))
	case latest != nil:
		current = latest.Status
	}
	return errRefundNotRecorded(orderID, current, outcome)
}

func (d *orderDomain) loadAccessible(ctx context.Context, actor model.Actor, orderID uuid.UUID) (*model.Order, error) {
	order, err := d.orderDB.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, errOrderNotFound(orderID)
	}
	if !actor.CanAccess(order.UserID) {
		return nil, errNotOrderOwner()
	}
	return order, nil
}

func (d *orderDomain) commit(ctx context.Context, updated *model.Order, expected model.OrderStatus, change *model.StatusChange) error {
	ok, err := d.orderDB.CompareAndSwap(ctx, updated, expected, change)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if !ok {
		d.metrics.RecordConflict(string(model.EntityOrder))
		return errConcurrentUpdate(updated.ID)
	}
	return nil
}

// afterCommit runs the post-commit hooks. Their failures never undo the transition.
func (d *orderDomain) afterCommit(ctx context.Context, order *model.Order, from model.OrderStatus, actor model.Actor) {
	d.metrics.RecordTransition(string(model.EntityOrder), string(from), string(order.Status))

	if err := d.invalidator.Invalidate(ctx, model.EntityOrder, order.ID); err != nil {
		d.logger.Warn("order view invalidation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	d.publisher.Publish(events.NewOrderStatusChanged(order.ID, order.UserID, string(from), string(order.Status), actor.UserID))

	d.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("actor_role", string(actor.Role)),
	)
}
