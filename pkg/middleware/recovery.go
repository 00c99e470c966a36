package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/richxcame/geoippro/pkg/errtrack"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns handler panics into a 500 and reports them.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				ctx := c.Request.Context()
				logger.WithContext(ctx).Error("Panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)
				errtrack.CaptureRecovered(ctx, r)

				common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
