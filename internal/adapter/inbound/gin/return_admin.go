package gin

import (
	"context"
	"net/http"
	"time"

	"github.com/emberwick/storefront/internal/domain/returns"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/inbound"
	"github.com/emberwick/storefront/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// returnAdminHandler implements inbound.ReturnAdminHttpPort.
type returnAdminHandler struct {
	returnDomain returns.ReturnDomain
}

// NewReturnAdminHandler creates the admin return workflow handler.
func NewReturnAdminHandler(returnDomain returns.ReturnDomain) inbound.ReturnAdminHttpPort {
	return &returnAdminHandler{returnDomain: returnDomain}
}

// RegisterRoutes registers admin return routes. Every route requires the admin role.
func (h *returnAdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin/returns", middleware.RequireAdmin())
	{
		admin.GET("", h.ListAllReturns)
		admin.PATCH("/:id/instructions", h.SendInstructions)
		admin.PATCH("/:id/tracking", h.UpdateTracking)
		admin.POST("/:id/delivered", h.MarkDelivered)
		admin.POST("/:id/inspection", h.StartInspection)
		admin.POST("/:id/refund", h.ProcessRefund)
		admin.POST("/:id/refund/reset", h.ResetRefund)
		admin.POST("/:id/reject", h.RejectReturn)
	}
}

// ListAllReturns lists every return request.
//
//	@Summary	List all returns
//	@Tags		Admin Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		status			query		string	false	"Filter by status"
//	@Param		refund_status	query		string	false	"Filter by refund status"
//	@Param		page			query		int		false	"Page"
//	@Param		page_size		query		int		false	"Page size"
//	@Success	200				{object}	model.PaginatedResponse[model.ReturnResponse]
//	@Failure	403				{object}	model.ErrorResponse
//	@Router		/admin/returns [get]
func (h *returnAdminHandler) ListAllReturns(c *gin.Context) {
	p, ok := bindPagination(c)
	if !ok {
		return
	}
	filter := &model.ReturnFilter{
		Status:       optionalQuery[model.ReturnStatus](c, "status"),
		RefundStatus: optionalQuery[model.RefundStatus](c, "refund_status"),
	}

	rets, total, err := h.returnDomain.ListAll(c.Request.Context(), middleware.GetActor(c), filter, p.Page, p.Limit())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewPaginatedResponse(toReturnResponses(rets), total, p.Page, p.Limit()))
}

type sendInstructionsRequest struct {
	Instructions string    `json:"instructions"`
	Address      string    `json:"address"`
	Deadline     time.Time `json:"deadline"`
}

// SendInstructions records shipping instructions for a requested return.
//
//	@Summary	Send return instructions
//	@Tags		Admin Returns
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"Return ID"
//	@Param		request	body		sendInstructionsRequest	true	"Instructions"
//	@Success	200		{object}	model.ReturnResponse
//	@Failure	409		{object}	model.ErrorResponse
//	@Failure	422		{object}	model.ErrorResponse
//	@Router		/admin/returns/{id}/instructions [patch]
func (h *returnAdminHandler) SendInstructions(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req sendInstructionsRequest
	if !bindJSON(c, &req) {
		return
	}

	ret, err := h.returnDomain.SendInstructions(c.Request.Context(), middleware.GetActor(c), returnID, model.ReturnInstructions{
		Instructions: req.Instructions,
		Address:      req.Address,
		Deadline:     req.Deadline,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ret.ToResponse())
}

type updateTrackingRequest struct {
	TrackingNumber *string            `json:"tracking_number,omitempty"`
	Carrier        *string            `json:"carrier,omitempty"`
	TrackingURL    *string            `json:"tracking_url,omitempty"`
	Status         model.ReturnStatus `json:"status"`
}

// UpdateTracking moves a return along the shipping leg.
//
//	@Summary	Update return tracking
//	@Tags		Admin Returns
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"Return ID"
//	@Param		request	body		updateTrackingRequest	true	"Tracking update"
//	@Success	200		{object}	model.ReturnResponse
//	@Failure	409		{object}	model.ErrorResponse
//	@Failure	422		{object}	model.ErrorResponse
//	@Router		/admin/returns/{id}/tracking [patch]
func (h *returnAdminHandler) UpdateTracking(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateTrackingRequest
	if !bindJSON(c, &req) {
		return
	}

	update := model.TrackingUpdate{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		TrackingURL:    req.TrackingURL,
	}
	ret, err := h.returnDomain.UpdateTracking(c.Request.Context(), middleware.GetActor(c), returnID, update, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ret.ToResponse())
}

// MarkDelivered records that the returned item reached the warehouse.
//
//	@Summary	Mark return delivered
//	@Tags		Admin Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Return ID"
//	@Success	200	{object}	model.ReturnResponse
//	@Failure	409	{object}	model.ErrorResponse
//	@Router		/admin/returns/{id}/delivered [post]
func (h *returnAdminHandler) MarkDelivered(c *gin.Context) {
	h.simpleTransition(c, h.returnDomain.MarkDelivered)
}

// StartInspection moves a delivered return into inspection.
//
//	@Summary	Start inspection
//	@Tags		Admin Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Return ID"
//	@Success	200	{object}	model.ReturnResponse
//	@Failure	409	{object}	model.ErrorResponse
//	@Router		/admin/returns/{id}/inspection [post]
func (h *returnAdminHandler) StartInspection(c *gin.Context) {
	h.simpleTransition(c, h.returnDomain.StartInspection)
}

type processRefundRequest struct {
	RefundAmount *int64 `json:"refund_amount,omitempty"`
}

// ProcessRefund refunds a delivered return through the payment gateway.
//
//	@Summary	Process refund
//	@Tags		Admin Returns
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id				path		string					true	"Return ID"
//	@Param		Idempotency-Key	header		string					false	"Replay protection key"
//	@Param		request			body		processRefundRequest	false	"Amount in cents; defaults to the item total"
//	@Success	200				{object}	model.ReturnResponse
//	@Failure	409				{object}	model.ErrorResponse
//	@Failure	422				{object}	model.ErrorResponse
//	@Failure	502				{object}	model.ErrorResponse	"Refund failed; refund_status is FAILED"
//	@Router		/admin/returns/{id}/refund [post]
func (h *returnAdminHandler) ProcessRefund(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req processRefundRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ret, err := h.returnDomain.ProcessRefund(c.Request.Context(), middleware.GetActor(c), returnID, req.RefundAmount)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ret.ToResponse())
}

// ResetRefund re-arms a failed refund so it can be processed again.
//
//	@Summary	Reset failed refund
//	@Tags		Admin Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Return ID"
//	@Success	200	{object}	model.ReturnResponse
//	@Failure	409	{object}	model.ErrorResponse
//	@Router		/admin/returns/{id}/refund/reset [post]
func (h *returnAdminHandler) ResetRefund(c *gin.Context) {
	h.simpleTransition(c, h.returnDomain.ResetRefund)
}

type rejectReturnRequest struct {
	Reason string `json:"reason"`
}

// RejectReturn rejects a return request.
//
//	@Summary	Reject return
//	@Tags		Admin Returns
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"Return ID"
//	@Param		request	body		rejectReturnRequest	true	"Rejection reason"
//	@Success	200		{object}	model.ReturnResponse
//	@Failure	409		{object}	model.ErrorResponse
//	@Router		/admin/returns/{id}/reject [post]
func (h *returnAdminHandler) RejectReturn(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req rejectReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	ret, err := h.returnDomain.Reject(c.Request.Context(), middleware.GetActor(c), returnID, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ret.ToResponse())
}

type returnTransition func(ctx context.Context, actor model.Actor, returnID uuid.UUID) (*model.ReturnRequest, error)

func (h *returnAdminHandler) simpleTransition(c *gin.Context, fn returnTransition) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ret, err := fn(c.Request.Context(), middleware.GetActor(c), returnID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ret.ToResponse())
}

// Compile-time check
var _ inbound.ReturnAdminHttpPort = (*returnAdminHandler)(nil)
