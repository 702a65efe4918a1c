package outbound

import (
	"context"
	"fmt"

	"github.com/emberwick/storefront/internal/model"
)

// PaymentGatewayPort is the external payment gateway. Implementations must pass the
// idempotency key through to the gateway so that repeated calls refund at most once.
type PaymentGatewayPort interface {
	// Name returns the gateway name.
	Name() string

	// CreateRefund refunds amount against paymentReference. If a refund tagged with the
	// same idempotency key already exists it is returned instead of creating a new one.
	CreateRefund(ctx context.Context, req *model.GatewayRefundRequest) (*model.GatewayRefund, error)
}

// GatewayError is a failure reported by the payment gateway.
type GatewayError struct {
	// StatusCode is the HTTP status returned by the gateway, 0 for transport failures.
	StatusCode int
	// Code is the gateway's machine-readable error code, e.g. "charge_already_refunded".
	Code    string
	Message string
	// Temporary marks failures worth retrying (timeouts, 5xx, rate limiting).
	Temporary bool
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Message)
}

// ClassifyStatus builds a GatewayError whose Temporary flag follows the HTTP status.
func ClassifyStatus(statusCode int, code, message string) *GatewayError {
	return &GatewayError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Temporary:  statusCode == 0 || statusCode == 429 || statusCode >= 500,
	}
}
