package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// String returns the string representation of the status.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsReturnable reports whether items of an order in this status may be returned.
func (s OrderStatus) IsReturnable() bool {
	return s == OrderStatusProcessing || s == OrderStatusShipped || s == OrderStatusDelivered
}

// ShippingAddress is the delivery address captured at checkout.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order represents a confirmed purchase. Money fields are in cents.
type Order struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID                uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status                OrderStatus     `gorm:"not null;default:PENDING" json:"status"`
	Total                 int64           `gorm:"not null" json:"total"`
	Currency              string          `gorm:"default:usd" json:"currency"`
	ShippingAddress       ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	StripePaymentIntentID string          `gorm:"index" json:"stripe_payment_intent_id"`
	StripeRefundID        *string         `json:"stripe_refund_id,omitempty"`
	RefundAmount          *int64          `json:"refund_amount,omitempty"`
	RefundedAt            *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`

	// Relations
	Items []*OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// IsOwnedBy reports whether the order belongs to the given user.
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// IsRefunded reports whether refund bookkeeping has been recorded.
func (o *Order) IsRefunded() bool {
	return o.StripeRefundID != nil && o.RefundedAt != nil
}

// Item returns the order item with the given ID, or nil.
func (o *Order) Item(itemID uuid.UUID) *OrderItem {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// Clone returns a copy of the order that can be mutated without touching the original.
// Items are immutable and shared.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]*OrderItem(nil), o.Items...)
	return &c
}

// OrderItem is a price-frozen line within an order.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ScentID     uuid.UUID `gorm:"type:uuid;not null" json:"scent_id"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	Price       int64     `gorm:"not null" json:"price"` // unit price in cents
	AudioURL    *string   `json:"audio_url,omitempty"`
	TextMessage *string   `json:"text_message,omitempty"`
	QRCode      *string   `gorm:"column:qr_code" json:"qr_code,omitempty"`
}

// TableName returns the database table name.
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns quantity × price as charged at checkout.
func (i *OrderItem) LineTotal() int64 {
	return int64(i.Quantity) * i.Price
}

// OrderFilter represents filters for listing orders.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *OrderStatus
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID              uuid.UUID            `json:"id"`
	UserID          uuid.UUID            `json:"user_id"`
	Status          OrderStatus          `json:"status"`
	Total           int64                `json:"total"`
	Currency        string               `json:"currency"`
	ShippingAddress ShippingAddress      `json:"shipping_address"`
	StripeRefundID  *string              `json:"stripe_refund_id,omitempty"`
	RefundAmount    *int64               `json:"refund_amount,omitempty"`
	RefundedAt      *time.Time           `json:"refunded_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Items           []*OrderItemResponse `json:"items"`
}

// OrderItemResponse represents an order item in API responses.
type OrderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ScentID     uuid.UUID `json:"scent_id"`
	Quantity    int       `json:"quantity"`
	Price       int64     `json:"price"`
	LineTotal   int64     `json:"line_total"`
	AudioURL    *string   `json:"audio_url,omitempty"`
	TextMessage *string   `json:"text_message,omitempty"`
	QRCode      *string   `json:"qr_code,omitempty"`
}

// ToResponse converts an Order to OrderResponse.
func (o *Order) ToResponse() *OrderResponse {
	resp := &OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		Total:           o.Total,
		Currency:        o.Currency,
		ShippingAddress: o.ShippingAddress,
		StripeRefundID:  o.StripeRefundID,
		RefundAmount:    o.RefundAmount,
		RefundedAt:      o.RefundedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           make([]*OrderItemResponse, len(o.Items)),
	}
	for i, item := range o.Items {
		resp.Items[i] = item.ToResponse()
	}
	return resp
}

// ToResponse converts an OrderItem to OrderItemResponse.
func (i *OrderItem) ToResponse() *OrderItemResponse {
	return &OrderItemResponse{
		ID:          i.ID,
		ProductID:   i.ProductID,
		ScentID:     i.ScentID,
		Quantity:    i.Quantity,
		Price:       i.Price,
		LineTotal:   i.LineTotal(),
		AudioURL:    i.AudioURL,
		TextMessage: i.TextMessage,
		QRCode:      i.QRCode,
	}
}

// CancelOrderResponse is returned by the cancel endpoint and carries the refund outcome.
type CancelOrderResponse struct {
	Order  *OrderResponse `json:"order"`
	Refund *RefundOutcome `json:"refund"`
}

// RefundOutcome summarises the gateway refund behind a status change.
type RefundOutcome struct {
	StripeRefundID string    `json:"stripe_refund_id"`
	Amount         int64     `json:"amount"`
	Status         string    `json:"status"`
	RefundedAt     time.Time `json:"refunded_at"`
}
