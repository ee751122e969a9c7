package rate

import (
	"user-rates/internal/bootstrap"
	"user-rates/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rdb *redis.Client,
	audit bootstrap.AuditLogger,
) {
	// Roster projection endpoint kept under its historical path.
	r.GET("/dayoff-hourly-rates", handler.GetCurrent)

	rates := r.Group("/rates")
	{
		rates.GET("/:userId", handler.GetHistory)
		rates.GET("/:userId/proposal", handler.GetProposal)
		rates.POST("",
			middleware.RateLimitByIP(1, 3),
			middleware.Idempotency(rdb),
			middleware.Audit(audit, "RATE_CREATE"),
			handler.Create,
		)
		rates.PATCH("",
			middleware.RateLimitByIP(1, 3),
			middleware.Audit(audit, "RATE_UPDATE"),
			handler.Update,
		)
	}
}
