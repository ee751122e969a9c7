package app

import (
	"database/sql"
	"net/http"

	"user-rates/internal/bootstrap"
	"user-rates/internal/config"
	"user-rates/internal/messaging/kafka"
	"user-rates/internal/middleware"
	"user-rates/internal/rate"
	"user-rates/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cfg *config.Config,
) error {
	// --- Repositories ---
	userRepo := user.NewRepository(gormDB)
	rateRepo := rate.NewRepository(gormDB, db)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	rateService := rate.NewServiceWithOutbox(db, rateRepo, userRepo, outboxRepo)

	// --- Handlers ---
	rosterCache := rate.NewRosterCache(rdb, cfg.Redis.RosterCacheTTL)
	rateHandler := rate.NewHandlerWithCache(rateService, rosterCache, rdb)
	auditLogger := bootstrap.NewStdoutAuditLogger()

	// --- Routes ---
	router.Use(middleware.RequestID())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	api := router.Group("/api/v1")
	{
		rate.RegisterRoutes(api, rateHandler, rdb, auditLogger)
	}

	return nil
}
