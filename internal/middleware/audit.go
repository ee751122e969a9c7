package middleware

import (
	"user-rates/internal/bootstrap"

	"github.com/gin-gonic/gin"
)

// Audit records a trace entry for a mutating endpoint after the request
// completes, including the outcome status. It runs regardless of success so
// rejected writes are traceable too.
func Audit(logger bootstrap.AuditLogger, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Log(c.Request.Context(), bootstrap.AuditLog{
			Action:  action,
			Message: c.Request.Method + " " + c.FullPath(),
			Meta: map[string]any{
				"status":    c.Writer.Status(),
				"client_ip": c.ClientIP(),
			},
		})
	}
}
