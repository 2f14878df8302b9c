package middleware

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"recipe-resolver/internal/pkg/common"
	"go.uber.org/zap"
)

// Logger emits one structured line per completed request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestid.Get(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		common.LogInfo("request completed", fields...)
	}
}

// Recovery converts panics into 500 responses instead of killing the
// process.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				common.LogError("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", requestid.Get(c)),
				)
				c.AbortWithStatusJSON(common.ErrInternalError.Status, common.ErrorResponse{
					Code:    common.ErrInternalError.Code,
					Message: common.ErrInternalError.Message,
				})
			}
		}()
		c.Next()
	}
}
