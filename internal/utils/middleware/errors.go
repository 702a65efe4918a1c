package middleware

import (
	"github.com/emberwick/storefront/internal/model"
	"github.com/gin-gonic/gin"
)

// abort stops the chain with the standard error body.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Code: code, Message: message})
}
