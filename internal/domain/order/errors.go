package order

import (
	"fmt"

	"github.com/emberwick/storefront/internal/model"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/google/uuid"
)

func errOrderNotFound(id uuid.UUID) error {
	return apperrors.NotFound("order").WithDetails(map[string]any{"order_id": id.String()})
}

func errNotOrderOwner() error {
	return apperrors.Forbidden("order belongs to another customer")
}

func errAdminOnly(operation string) error {
	return apperrors.Forbidden(fmt.Sprintf("%s requires an admin", operation))
}

func errUseCancel() error {
	return apperrors.Validation("orders are cancelled through the cancel operation").
		WithDetails(map[string]any{"status": "CANCELLED"})
}

func errMissingPaymentReference(id uuid.UUID) error {
	return apperrors.Validation("order has no payment reference to refund").
		WithDetails(map[string]any{"order_id": id.String()})
}

func errConcurrentUpdate(id uuid.UUID) error {
	return apperrors.Conflict("order was modified concurrently, re-read and retry").
		WithDetails(map[string]any{"order_id": id.String()})
}

func errRefundNotRecorded(id uuid.UUID, current model.OrderStatus, outcome *model.RefundOutcome) error {
	details := map[string]any{
		"order_id":         id.String(),
		"stripe_refund_id": outcome.StripeRefundID,
		"refund_amount":    outcome.Amount,
		"idempotency_key":  CancelIdempotencyKey(id),
	}
	if current != "" {
		details["status"] = string(current)
	}
	return apperrors.Conflict("order changed while its refund was issued, the refund is not recorded on the order").
		WithDetails(details)
}

// CancelIdempotencyKey is the refund idempotency key of an order cancellation.
func CancelIdempotencyKey(orderID uuid.UUID) string {
	return fmt.Sprintf("order-%s-cancel", orderID)
}
