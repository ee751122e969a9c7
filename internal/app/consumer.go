package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"user-rates/internal/config"
	"user-rates/internal/rate"
	"user-rates/internal/shared/connection"

	"go.uber.org/zap"
)

// RunConsumer reacts to rate_changed events by invalidating the cached
// roster projection.
func RunConsumer() error {
	logger := zap.L().Named("app.consumer")

	cfg, err := config.Load(context.Background())
	if err != nil {
		return err
	}

	if cfg.Kafka.Broker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, 5)
	if err != nil {
		return err
	}

	rosterCache := rate.NewRosterCache(redisClient, cfg.Redis.RosterCacheTTL)

	consumer := rate.NewRateChangedConsumer(
		cfg.Kafka.Broker,
		cfg.Kafka.GroupID,
		rosterCache,
		logger,
	)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("consumer shutting down")
	cancel()

	return nil
}
