package events

import "github.com/google/uuid"

// Lifecycle event types.
const (
	OrderStatusChangedType  = "order.status_changed"
	ReturnStatusChangedType = "return.status_changed"
	RefundCompletedType     = "refund.completed"
	RefundFailedType        = "refund.failed"
)

// StatusChangedEvent is emitted after an order or return transition commits.
type StatusChangedEvent struct {
	BaseEvent

	UserID     uuid.UUID `json:"user_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
}

// NewOrderStatusChanged creates an order.status_changed event.
func NewOrderStatusChanged(orderID, userID uuid.UUID, from, to string, actorID uuid.UUID) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseEvent:  NewBaseEvent(OrderStatusChangedType, orderID, "Order"),
		UserID:     userID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
	}
}

// NewReturnStatusChanged creates a return.status_changed event.
func NewReturnStatusChanged(returnID, userID uuid.UUID, from, to string, actorID uuid.UUID) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseEvent:  NewBaseEvent(ReturnStatusChangedType, returnID, "ReturnRequest"),
		UserID:     userID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
	}
}

// RefundEvent is emitted when a refund settles or fails for an order or return.
type RefundEvent struct {
	BaseEvent

	UserID         uuid.UUID `json:"user_id"`
	Amount         int64     `json:"amount"`
	StripeRefundID string    `json:"stripe_refund_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// NewRefundCompleted creates a refund.completed event.
func NewRefundCompleted(aggregateID uuid.UUID, aggregateType string, userID uuid.UUID, amount int64, refundID string) *RefundEvent {
	return &RefundEvent{
		BaseEvent:      NewBaseEvent(RefundCompletedType, aggregateID, aggregateType),
		UserID:         userID,
		Amount:         amount,
		StripeRefundID: refundID,
	}
}

// NewRefundFailed creates a refund.failed event.
func NewRefundFailed(aggregateID uuid.UUID, aggregateType string, userID uuid.UUID, amount int64, reason string) *RefundEvent {
	return &RefundEvent{
		BaseEvent: NewBaseEvent(RefundFailedType, aggregateID, aggregateType),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
	}
}
