package gin

import (
	"github.com/emberwick/storefront/internal/utils/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseIDParam parses a UUID path parameter, writing a 400 on failure.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the request body, writing a 400 on malformed input.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		badRequest(c, "malformed request body: "+err.Error())
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, obj)
}

// bindPagination reads page and page_size query parameters.
func bindPagination(c *gin.Context) (*pagination.Pagination, bool) {
	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		badRequest(c, "invalid pagination: "+err.Error())
		return nil, false
	}
	return p, true
}

func optionalQuery[T ~string](c *gin.Context, key string) *T {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil
	}
	t := T(v)
	return &t
}
