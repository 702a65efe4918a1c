package gin

import (
	"errors"
	"net/http"

	"github.com/emberwick/storefront/internal/model"
	"github.com/emberwick/storefront/internal/shared/logger"
	apperrors "github.com/emberwick/storefront/internal/utils/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleError maps domain errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	log := logger.FromContext(c.Request.Context(), nil)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode >= http.StatusInternalServerError && appErr.StatusCode != http.StatusBadGateway {
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    apperrors.CodeInternal,
			Message: "Internal server error",
		})
		return
	}

	if appErr.StatusCode == http.StatusBadGateway {
		log.Warn("payment gateway failure", zap.Error(err))
	}
	c.JSON(appErr.StatusCode, model.ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: detailsOrNil(appErr.Details),
	})
}

// badRequest writes a 400 for input that could not be decoded.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Code:    apperrors.CodeBadRequest,
		Message: message,
	})
}

func detailsOrNil(details map[string]any) any {
	if len(details) == 0 {
		return nil
	}
	return details
}
