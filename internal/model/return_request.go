package model

import (
	"time"

	"github.com/google/uuid"
)

// ReturnStatus represents where a return request is in the shipping pipeline.
type ReturnStatus string

const (
	ReturnStatusRequested          ReturnStatus = "REQUESTED"
	ReturnStatusInstructionsSent   ReturnStatus = "INSTRUCTIONS_SENT"
	ReturnStatusReturnShippingSent ReturnStatus = "RETURN_SHIPPING_SENT"
	ReturnStatusReturnInTransit    ReturnStatus = "RETURN_IN_TRANSIT"
	ReturnStatusReturnDelivered    ReturnStatus = "RETURN_DELIVERED"
	ReturnStatusProcessing         ReturnStatus = "PROCESSING"
	ReturnStatusCompleted          ReturnStatus = "COMPLETED"
	ReturnStatusRejected           ReturnStatus = "REJECTED"
)

// String returns the string representation of the status.
func (s ReturnStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid return status.
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusRequested, ReturnStatusInstructionsSent, ReturnStatusReturnShippingSent,
		ReturnStatusReturnInTransit, ReturnStatusReturnDelivered, ReturnStatusProcessing,
		ReturnStatusCompleted, ReturnStatusRejected:
		return true
	}
	return false
}

// IsActive reports whether the return still occupies its order item.
func (s ReturnStatus) IsActive() bool {
	return s.IsValid() && s != ReturnStatusCompleted && s != ReturnStatusRejected
}

// RefundStatus is the refund axis of a return, independent of ReturnStatus.
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "PENDING"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusCompleted  RefundStatus = "COMPLETED"
	RefundStatusFailed     RefundStatus = "FAILED"
)

// String returns the string representation of the status.
func (s RefundStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid refund status.
func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundStatusPending, RefundStatusProcessing, RefundStatusCompleted, RefundStatusFailed:
		return true
	}
	return false
}

// ReturnRequest is one customer attempt to return one order item.
type ReturnRequest struct {
	ID                  uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID             uuid.UUID    `gorm:"type:uuid;not null;index" json:"order_id"`
	OrderItemID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"order_item_id"`
	UserID              uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	Reason              string       `gorm:"not null" json:"reason"`
	Description         *string      `json:"description,omitempty"`
	Status              ReturnStatus `gorm:"not null;default:REQUESTED" json:"status"`
	TrackingNumber      *string      `json:"tracking_number,omitempty"`
	Carrier             *string      `json:"carrier,omitempty"`
	TrackingURL         *string      `gorm:"column:tracking_url" json:"tracking_url,omitempty"`
	ReturnInstructions  *string      `json:"return_instructions,omitempty"`
	ReturnAddress       *string      `json:"return_address,omitempty"`
	ReturnDeadline      *time.Time   `json:"return_deadline,omitempty"`
	RejectionReason     *string      `json:"rejection_reason,omitempty"`
	RefundStatus        RefundStatus `gorm:"not null;default:PENDING" json:"refund_status"`
	RefundAmount        *int64       `json:"refund_amount,omitempty"`
	StripeRefundID      *string      `json:"stripe_refund_id,omitempty"`
	RefundFailureReason *string      `json:"refund_failure_reason,omitempty"`
	// RefundAttempt numbers the operator's refund attempts, starting at 1. Each attempt
	// has its own gateway idempotency key.
	RefundAttempt       int          `gorm:"not null;default:1" json:"refund_attempt"`
	ShippedAt           *time.Time   `json:"shipped_at,omitempty"`
	DeliveredAt         *time.Time   `json:"delivered_at,omitempty"`
	RefundedAt          *time.Time   `json:"refunded_at,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// TableName returns the database table name.
func (ReturnRequest) TableName() string {
	return "return_requests"
}

// State returns the pair of statuses a compare-and-set write asserts.
func (r *ReturnRequest) State() ReturnState {
	return ReturnState{Status: r.Status, RefundStatus: r.RefundStatus}
}

// Clone returns a copy of the return request.
func (r *ReturnRequest) Clone() *ReturnRequest {
	c := *r
	return &c
}

// ReturnState is the (status, refund status) pair of a return request.
type ReturnState struct {
	Status       ReturnStatus
	RefundStatus RefundStatus
}

// ReturnFilter represents filters for listing return requests.
type ReturnFilter struct {
	UserID       *uuid.UUID
	Status       *ReturnStatus
	RefundStatus *RefundStatus
}

// TrackingUpdate carries optional shipment details for a tracking transition.
type TrackingUpdate struct {
	TrackingNumber *string
	Carrier        *string
	TrackingURL    *string
}

// ReturnInstructions carries the admin-provided shipping instructions.
type ReturnInstructions struct {
	Instructions string
	Address      string
	Deadline     time.Time
}

// ReturnResponse represents a return request in API responses.
type ReturnResponse struct {
	ID                  uuid.UUID    `json:"id"`
	OrderID             uuid.UUID    `json:"order_id"`
	OrderItemID         uuid.UUID    `json:"order_item_id"`
	Reason              string       `json:"reason"`
	Description         *string      `json:"description,omitempty"`
	Status              ReturnStatus `json:"status"`
	TrackingNumber      *string      `json:"tracking_number,omitempty"`
	Carrier             *string      `json:"carrier,omitempty"`
	TrackingURL         *string      `json:"tracking_url,omitempty"`
	ReturnInstructions  *string      `json:"return_instructions,omitempty"`
	ReturnAddress       *string      `json:"return_address,omitempty"`
	ReturnDeadline      *time.Time   `json:"return_deadline,omitempty"`
	RejectionReason     *string      `json:"rejection_reason,omitempty"`
	RefundStatus        RefundStatus `json:"refund_status"`
	RefundAmount        *int64       `json:"refund_amount,omitempty"`
	StripeRefundID      *string      `json:"stripe_refund_id,omitempty"`
	RefundFailureReason *string      `json:"refund_failure_reason,omitempty"`
	RefundAttempt       int          `json:"refund_attempt"`
	ShippedAt           *time.Time   `json:"shipped_at,omitempty"`
	DeliveredAt         *time.Time   `json:"delivered_at,omitempty"`
	RefundedAt          *time.Time   `json:"refunded_at,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// ToResponse converts a ReturnRequest to ReturnResponse.
func (r *ReturnRequest) ToResponse() *ReturnResponse {
	return &ReturnResponse{
		ID:                  r.ID,
		OrderID:             r.OrderID,
		OrderItemID:         r.OrderItemID,
		Reason:              r.Reason,
		Description:         r.Description,
		Status:              r.Status,
		TrackingNumber:      r.TrackingNumber,
		Carrier:             r.Carrier,
		TrackingURL:         r.TrackingURL,
		ReturnInstructions:  r.ReturnInstructions,
		ReturnAddress:       r.ReturnAddress,
		ReturnDeadline:      r.ReturnDeadline,
		RejectionReason:     r.RejectionReason,
		RefundStatus:        r.RefundStatus,
		RefundAmount:        r.RefundAmount,
		StripeRefundID:      r.StripeRefundID,
		RefundFailureReason: r.RefundFailureReason,
		RefundAttempt:       r.RefundAttempt,
		ShippedAt:           r.ShippedAt,
		DeliveredAt:         r.DeliveredAt,
		RefundedAt:          r.RefundedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}
