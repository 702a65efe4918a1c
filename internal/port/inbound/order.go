package inbound

import "github.com/gin-gonic/gin"

// OrderHttpPort defines HTTP handler interface for order operations.
type OrderHttpPort interface {
	// RegisterRoutes mounts the handlers on r.
	RegisterRoutes(r *gin.RouterGroup)

	// ListOrders handles GET /orders
	ListOrders(c *gin.Context)

	// GetOrder handles GET /orders/:id
	GetOrder(c *gin.Context)

	// GetOrderHistory handles GET /orders/:id/history
	GetOrderHistory(c *gin.Context)

	// UpdateOrderStatus handles PATCH /orders/:id/status
	UpdateOrderStatus(c *gin.Context)

	// CancelOrder handles POST /orders/:id/cancel
	CancelOrder(c *gin.Context)
}
