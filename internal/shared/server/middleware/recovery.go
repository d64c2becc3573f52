package middleware

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dochub/internal/shared/server/respond"
	"dochub/internal/shared/telemetry"
)

// Recovery turns a handler panic into a logged 500 with the standard error
// body. Broken client connections are dropped by gin without a response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Logger().Error("http.panic",
			zap.String("request_id", RequestIDFromContext(c)),
			zap.String("user_id", UserIDFromContext(c)),
			zap.String("document_id", c.GetString("documentId")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", rec),
			zap.Stack("stack"),
		)
		if c.Writer.Written() {
			c.Abort()
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
	})
}
