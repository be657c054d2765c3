package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/inventory/internal/errs"
)

// writeError maps a service error onto an HTTP response.
func writeError(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
}

// queryID parses an optional numeric id query parameter. Absent or
// malformed values are treated as not provided.
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pathID parses a numeric id path parameter. A second return of false
// means the response has already been written.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(c, errs.Newf(errs.KindValidation, "invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}
