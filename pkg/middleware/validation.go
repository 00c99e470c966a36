package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/richxcame/geoippro/pkg/validation"
)

// BindAndValidate decodes the JSON body into req and validates it.
// It writes a 400 response and returns false when either step fails.
func BindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := validation.ValidateStruct(req); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			common.ErrorResponseWithDetails(c, http.StatusBadRequest, "validation failed", verr.Errors)
			return false
		}
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// MaxBodySize caps the request body. Reads past the limit fail with *http.MaxBytesError.
func MaxBodySize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}
