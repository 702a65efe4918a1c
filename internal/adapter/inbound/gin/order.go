package gin

import (
	"net/http"

	"github.com/emberwick/storefront/internal/domain/order"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/inbound"
	"github.com/emberwick/storefront/internal/utils/middleware"
	"github.com/gin-gonic/gin"
)

// orderHandler implements inbound.OrderHttpPort.
type orderHandler struct {
	orderDomain order.OrderDomain
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(orderDomain order.OrderDomain) inbound.OrderHttpPort {
	return &orderHandler{orderDomain: orderDomain}
}

// RegisterRoutes registers order routes on an authenticated group.
func (h *orderHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/history", h.GetOrderHistory)
		orders.PATCH("/:id/status", middleware.RequireAdmin(), h.UpdateOrderStatus)
		orders.POST("/:id/cancel", h.CancelOrder)
	}
}

// ListOrders lists the caller's orders.
//
//	@Summary	List orders
//	@Tags		Orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		status		query		string	false	"Filter by status"
//	@Param		all			query		bool	false	"Admins only: list every customer's orders"
//	@Param		page		query		int		false	"Page"
//	@Param		page_size	query		int		false	"Page size"
//	@Success	200			{object}	model.PaginatedResponse[model.OrderResponse]
//	@Failure	422			{object}	model.ErrorResponse
//	@Router		/orders [get]
func (h *orderHandler) ListOrders(c *gin.Context) {
	actor := middleware.GetActor(c)
	p, ok := bindPagination(c)
	if !ok {
		return
	}

	filter := &model.OrderFilter{Status: optionalQuery[model.OrderStatus](c, "status")}
	// Admins see their own orders unless they ask for all of them.
	if !actor.IsAdmin() || c.Query("all") != "true" {
		userID := actor.UserID
		filter.UserID = &userID
	}

	orders, total, err := h.orderDomain.ListOrders(c.Request.Context(), actor, filter, p.Page, p.Limit())
	if err != nil {
		handleError(c, err)
		return
	}

	responses := make([]model.OrderResponse, len(orders))
	for i, ord := range orders {
		responses[i] = *ord.ToResponse()
	}
	c.JSON(http.StatusOK, model.NewPaginatedResponse(responses, total, p.Page, p.Limit()))
}

// GetOrder returns one order.
//
//	@Summary	Get order
//	@Tags		Orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	model.OrderResponse
//	@Failure	403	{object}	model.ErrorResponse
//	@Failure	404	{object}	model.ErrorResponse
//	@Router		/orders/{id} [get]
func (h *orderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ord, err := h.orderDomain.GetOrder(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ord.ToResponse())
}

// GetOrderHistory returns the order's status timeline, oldest first.
//
//	@Summary	Order status history
//	@Tags		Orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{array}		model.StatusChange
//	@Failure	404	{object}	model.ErrorResponse
//	@Router		/orders/{id}/history [get]
func (h *orderHandler) GetOrderHistory(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	changes, err := h.orderDomain.History(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, changes)
}

type updateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus advances an order one step along its lifecycle.
//
//	@Summary	Advance order status
//	@Tags		Orders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"Order ID"
//	@Param		request	body		updateOrderStatusRequest	true	"Target status"
//	@Success	200		{object}	model.OrderResponse
//	@Failure	409		{object}	model.ErrorResponse	"Invalid transition or concurrent update"
//	@Failure	422		{object}	model.ErrorResponse
//	@Router		/orders/{id}/status [patch]
func (h *orderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ord, err := h.orderDomain.Advance(c.Request.Context(), middleware.GetActor(c), orderID, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ord.ToResponse())
}

// CancelOrder cancels an order and refunds its total.
//
//	@Summary	Cancel order
//	@Tags		Orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id				path		string	true	"Order ID"
//	@Param		Idempotency-Key	header		string	false	"Replay protection key"
//	@Success	200				{object}	model.CancelOrderResponse
//	@Failure	409				{object}	model.ErrorResponse
//	@Failure	502				{object}	model.ErrorResponse	"Refund failed, order unchanged"
//	@Router		/orders/{id}/cancel [post]
func (h *orderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ord, refund, err := h.orderDomain.Cancel(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &model.CancelOrderResponse{
		Order:  ord.ToResponse(),
		Refund: refund,
	})
}

// Compile-time check
var _ inbound.OrderHttpPort = (*orderHandler)(nil)
