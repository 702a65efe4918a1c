package returns

import (
	"fmt"

	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/google/uuid"
)

// Input limits.
const (
	MaxReasonLength      = 500
	MaxDescriptionLength = 2000
)

func errReturnNotFound(id uuid.UUID) error {
	return apperrors.NotFound("return request").WithDetails(map[string]any{"return_id": id.String()})
}

func errOrderItemNotFound(id uuid.UUID) error {
	return apperrors.NotFound("order item").WithDetails(map[string]any{"order_item_id": id.String()})
}

func errOrderNotFound(id uuid.UUID) error {
	return apperrors.NotFound("order").WithDetails(map[string]any{"order_id": id.String()})
}

func errNotReturnOwner() error {
	return apperrors.Forbidden("return request belongs to another customer")
}

func errAdminOnly(operation string) error {
	return apperrors.Forbidden(fmt.Sprintf("%s requires an admin", operation))
}

func errActiveReturnExists(existing uuid.UUID) error {
	return apperrors.Conflict("an active return already exists for this order item").
		WithDetails(map[string]any{"return_id": existing.String()})
}

func errConcurrentUpdate(id uuid.UUID) error {
	return apperrors.Conflict("return request was modified concurrently, re-read and retry").
		WithDetails(map[string]any{"return_id": id.String()})
}

func errRefundInProgress(id uuid.UUID) error {
	return apperrors.Conflict("a refund is in progress for this return").
		WithDetails(map[string]any{"return_id": id.String()})
}

// RefundIdempotencyKey is the gateway idempotency key of one refund attempt of a
// return request. Retries within an attempt reuse it; an operator reset starts a new one.
func RefundIdempotencyKey(returnID uuid.UUID, attempt int) string {
	if attempt < 1 {
		attempt = 1
	}
	return fmt.Sprintf("return-%s-refund-%d", returnID, attempt)
}
