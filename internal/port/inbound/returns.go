package inbound

import "github.com/gin-gonic/gin"

// ReturnHttpPort defines HTTP handler interface for customer return operations.
type ReturnHttpPort interface {
	// RegisterRoutes mounts the handlers on r.
	RegisterRoutes(r *gin.RouterGroup)

	// CreateReturn handles POST /returns
	CreateReturn(c *gin.Context)

	// ListReturns handles GET /returns
	ListReturns(c *gin.Context)

	// GetReturn handles GET /returns/:id
	GetReturn(c *gin.Context)

	// GetReturnHistory handles GET /returns/:id/history
	GetReturnHistory(c *gin.Context)
}

// ReturnAdminHttpPort defines HTTP handler interface for the admin return workflow.
type ReturnAdminHttpPort interface {
	// RegisterRoutes mounts the handlers on r.
	RegisterRoutes(r *gin.RouterGroup)

	// ListAllReturns handles GET /admin/returns
	ListAllReturns(c *gin.Context)

	// SendInstructions handles PATCH /admin/returns/:id/instructions
	SendInstructions(c *gin.Context)

	// UpdateTracking handles PATCH /admin/returns/:id/tracking
	UpdateTracking(c *gin.Context)

	// MarkDelivered handles POST /admin/returns/:id/delivered
	MarkDelivered(c *gin.Context)

	// StartInspection handles POST /admin/returns/:id/inspection
	StartInspection(c *gin.Context)

	// ProcessRefund handles POST /admin/returns/:id/refund
	ProcessRefund(c *gin.Context)

	// ResetRefund handles POST /admin/returns/:id/refund/reset
	ResetRefund(c *gin.Context)

	// RejectReturn handles POST /admin/returns/:id/reject
	RejectReturn(c *gin.Context)
}
