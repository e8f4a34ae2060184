package middleware

import (
	"clinic-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached with c.Error. Errors that are not a
// BaseError leave only a generic message on the wire.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		be, ok := errutil.As(last.Err)
		if !ok {
			be, _ = errutil.As(errutil.Internal("internal error", last.Err))
		}

		if be.Code.HTTPStatus() >= 500 {
			zap.L().Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(last.Err),
			)
		}

		c.AbortWithStatusJSON(be.Code.HTTPStatus(), be.JSON())
	}
}
