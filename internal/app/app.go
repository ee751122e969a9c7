package app

import (
	"context"

	"user-rates/internal/config"
	"user-rates/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BuildApp(router *gin.Engine, cfg *config.Config) error {
	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, 5)
	if err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, 5)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	zap.L().Info("infrastructure ready, registering modules")

	return registerModules(router, sqlDB, gormDB, redisClient, cfg)
}

// Load reads configuration once at boot.
func Load(ctx context.Context) (*config.Config, error) {
	return config.Load(ctx)
}
