package rate

import (
	"context"
	"encoding/json"
	"time"

	"user-rates/internal/events"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RateChangedConsumer reacts to committed rate writes by invalidating the
// cached roster projection, so the next roster fetch sees fresh data.
type RateChangedConsumer struct {
	reader *kafka.Reader
	cache  *RosterCache
	logger *zap.Logger
}

func NewRateChangedConsumer(
	broker string,
	groupID string,
	cache *RosterCache,
	logger ...*zap.Logger,
) *RateChangedConsumer {
	l := zap.L().Named("rate.consumer")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rate.consumer")
	}

	return &RateChangedConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{broker},
			Topic:          events.RateChangedTopic,
			GroupID:        groupID,
			CommitInterval: time.Second,
			StartOffset:    kafka.FirstOffset,
		}),
		cache:  cache,
		logger: l,
	}
}

func (c *RateChangedConsumer) Run(ctx context.Context) {
	c.logger.Info("rate changed consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("rate changed consumer stopped")
				return
			}
			c.logger.Error("fetch rate_changed message failed", zap.Error(err))
			continue
		}

		var event events.RateChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("decode rate_changed event failed", zap.Error(err))
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		if err := c.cache.Invalidate(ctx); err != nil {
			// Leave the message uncommitted so invalidation is retried.
			c.logger.Error("invalidate roster cache failed",
				zap.String("user_id", event.UserID),
				zap.Error(err),
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit rate_changed message failed", zap.Error(err))
			continue
		}

		c.logger.Info("roster cache invalidated",
			zap.String("event_type", event.EventType),
			zap.String("user_id", event.UserID),
			zap.String("effective_from", event.EffectiveFrom),
		)
	}
}

func (c *RateChangedConsumer) Close() error {
	return c.reader.Close()
}
