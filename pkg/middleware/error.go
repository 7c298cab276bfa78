package middleware

import (
	"errors"
	"net/http"

	"creditshop/pkg/errutil"
	"creditshop/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type jsonError interface {
	Status() errutil.CoreStatus
	JSON() interface{}
}

// Error renders the last handler error. Typed errors keep their status and
// message; anything else becomes an opaque 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var typed jsonError
		if errors.As(last.Err, &typed) {
			status := typed.Status().HTTPStatus()
			if status >= http.StatusInternalServerError {
				logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(last.Err))
			}
			c.JSON(status, typed.JSON())
			return
		}

		logger.FromContext(c.Request.Context()).Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(last.Err),
		)
		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "Internal server error",
		}.JSON())
	}
}
