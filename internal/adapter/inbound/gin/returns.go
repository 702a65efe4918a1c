package gin

import (
	"net/http"

	"github.com/emberwick/storefront/internal/domain/returns"
	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/port/inbound"
	"github.com/emberwick/storefront/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// returnHandler implements inbound.ReturnHttpPort.
type returnHandler struct {
	returnDomain returns.ReturnDomain
}

// NewReturnHandler creates a new customer return HTTP handler.
func NewReturnHandler(returnDomain returns.ReturnDomain) inbound.ReturnHttpPort {
	return &returnHandler{returnDomain: returnDomain}
}

// RegisterRoutes registers customer return routes on an authenticated group.
func (h *returnHandler) RegisterRoutes(r *gin.RouterGroup) {
	rets := r.Group("/returns")
	{
		rets.POST("", h.CreateReturn)
		rets.GET("", h.ListReturns)
		rets.GET("/:id", h.GetReturn)
		rets.GET("/:id/history", h.GetReturnHistory)
	}
}

type createReturnRequest struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Reason      string    `json:"reason"`
	Description *string   `json:"description,omitempty"`
}

// CreateReturn opens a return request for one order item.
//
//	@Summary	Request a return
//	@Tags		Returns
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		createReturnRequest	true	"Return request"
//	@Success	201		{object}	model.ReturnResponse
//	@Failure	409		{object}	model.ErrorResponse	"An active return exists for the item"
//	@Failure	422		{object}	model.ErrorResponse
//	@Router		/returns [post]
func (h *returnHandler) CreateReturn(c *gin.Context) {
	var req createReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	ret, err := h.returnDomain.Create(c.Request.Context(), middleware.GetActor(c), req.OrderItemID, req.Reason, req.Description)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, returnView(c, ret))
}

// ListReturns lists the caller's return requests.
//
//	@Summary	List my returns
//	@Tags		Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		status		query		string	false	"Filter by status"
//	@Param		page		query		int		false	"Page"
//	@Param		page_size	query		int		false	"Page size"
//	@Success	200			{object}	model.PaginatedResponse[model.ReturnResponse]
//	@Router		/returns [get]
func (h *returnHandler) ListReturns(c *gin.Context) {
	p, ok := bindPagination(c)
	if !ok {
		return
	}
	filter := &model.ReturnFilter{
		Status:       optionalQuery[model.ReturnStatus](c, "status"),
		RefundStatus: optionalQuery[model.RefundStatus](c, "refund_status"),
	}

	rets, total, err := h.returnDomain.ListForUser(c.Request.Context(), middleware.GetActor(c), filter, p.Page, p.Limit())
	if err != nil {
		handleError(c, err)
		return
	}

	views := toReturnResponses(rets)
	if !middleware.GetActor(c).IsAdmin() {
		for i := range views {
			views[i].RefundFailureReason = nil
		}
	}
	c.JSON(http.StatusOK, model.NewPaginatedResponse(views, total, p.Page, p.Limit()))
}

// GetReturn returns one return request.
//
//	@Summary	Get return
//	@Tags		Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Return ID"
//	@Success	200	{object}	model.ReturnResponse
//	@Failure	404	{object}	model.ErrorResponse
//	@Router		/returns/{id} [get]
func (h *returnHandler) GetReturn(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ret, err := h.returnDomain.Get(c.Request.Context(), middleware.GetActor(c), returnID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, returnView(c, ret))
}

// GetReturnHistory returns the status and refund timeline of a return.
//
//	@Summary	Return status history
//	@Tags		Returns
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Return ID"
//	@Success	200	{array}		model.StatusChange
//	@Router		/returns/{id}/history [get]
func (h *returnHandler) GetReturnHistory(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	changes, err := h.returnDomain.History(c.Request.Context(), middleware.GetActor(c), returnID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, changes)
}

// returnView renders ret for the caller. Gateway failure details are for admins only.
func returnView(c *gin.Context, ret *model.ReturnRequest) *model.ReturnResponse {
	view := ret.ToResponse()
	if !middleware.GetActor(c).IsAdmin() {
		view.RefundFailureReason = nil
	}
	return view
}

func toReturnResponses(rets []*model.ReturnRequest) []model.ReturnResponse {
	out := make([]model.ReturnResponse, len(rets))
	for i, ret := range rets {
		out[i] = *ret.ToResponse()
	}
	return out
}

// Compile-time check
var _ inbound.ReturnHttpPort = (*returnHandler)(nil)
