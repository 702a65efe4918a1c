package model

// GatewayRefundStatus is the status reported by the payment gateway for a refund.
type GatewayRefundStatus string

const (
	GatewayRefundSucceeded GatewayRefundStatus = "succeeded"
	GatewayRefundPending   GatewayRefundStatus = "pending"
	GatewayRefundFailed    GatewayRefundStatus = "failed"
	GatewayRefundCanceled  GatewayRefundStatus = "canceled"
)

// IsAccepted reports whether the gateway has accepted the refund. Pending refunds
// settle asynchronously at the gateway and count as accepted.
func (s GatewayRefundStatus) IsAccepted() bool {
	return s == GatewayRefundSucceeded || s == GatewayRefundPending
}

// GatewayRefundRequest is a single refund call against the payment gateway.
type GatewayRefundRequest struct {
	PaymentReference string
	Amount           int64
	Currency         string
	IdempotencyKey   string
	Metadata         map[string]string
}

// GatewayRefund is the gateway's record of a refund.
type GatewayRefund struct {
	ID               string              `json:"id"`
	PaymentReference string              `json:"payment_reference"`
	Amount           int64               `json:"amount"`
	Status           GatewayRefundStatus `json:"status"`
	IdempotencyKey   string              `json:"idempotency_key"`
}
