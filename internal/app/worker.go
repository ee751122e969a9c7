package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"user-rates/internal/config"
	"user-rates/internal/messaging/kafka"
	"user-rates/internal/messaging/kafka/producer"
	"user-rates/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker relays committed outbox events to Kafka.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

	cfg, err := config.Load(context.Background())
	if err != nil {
		return err
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, 5)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Kafka.Broker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		cfg.Kafka.PollInterval,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}
