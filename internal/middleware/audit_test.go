package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"user-rates/internal/bootstrap"
	"user-rates/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recordingAuditLogger struct {
	entries []bootstrap.AuditLog
}

func (l *recordingAuditLogger) Log(_ context.Context, entry bootstrap.AuditLog) {
	l.entries = append(l.entries, entry)
}

func TestAudit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("successful mutation is recorded with its status", func(t *testing.T) {
		logger := &recordingAuditLogger{}
		router := gin.New()
		router.POST("/api/v1/rates", middleware.Audit(logger, "RATE_CREATE"), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rates", nil))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, logger.entries, 1)
		assert.Equal(t, "RATE_CREATE", logger.entries[0].Action)
		assert.Equal(t, "POST /api/v1/rates", logger.entries[0].Message)
		assert.Equal(t, http.StatusCreated, logger.entries[0].Meta["status"])
	})

	t.Run("rejected mutation is recorded too", func(t *testing.T) {
		logger := &recordingAuditLogger{}
		router := gin.New()
		router.PATCH("/api/v1/rates", middleware.Audit(logger, "RATE_UPDATE"), func(c *gin.Context) {
			c.AbortWithStatus(http.StatusConflict)
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/rates", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Len(t, logger.entries, 1)
		assert.Equal(t, "RATE_UPDATE", logger.entries[0].Action)
		assert.Equal(t, http.StatusConflict, logger.entries[0].Meta["status"])
	})
}
