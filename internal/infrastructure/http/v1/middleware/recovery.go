// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"medstock/internal/core/apperror"
	"medstock/pkg/logger"
)

// Recovery converts panics into 500 responses. The stack trace goes to the
// log only; the client sees the generic internal-error body produced by
// ErrorHandler.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error(c.Request.Context(), "panic recovered",
				"error", r,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", r)))
			c.Abort()
		}()

		c.Next()
	}
}
