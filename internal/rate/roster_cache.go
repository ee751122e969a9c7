package rate

import (
	"context"
	"encoding/json"
	"time"

	"user-rates/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rosterCacheKey = "user_rates:roster:current"

// RosterCache holds the serialized roster projection in redis. The TTL only
// bounds staleness if an invalidation event is lost; normal invalidation is
// event-driven via the rate_changed consumer.
type RosterCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRosterCache(rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) *RosterCache {
	l := zap.L().Named("rate.roster_cache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rate.roster_cache")
	}

	return &RosterCache{rdb: rdb, ttl: ttl, logger: l}
}

func (c *RosterCache) Get(ctx context.Context) ([]CurrentRateResponse, bool) {
	val, err := c.rdb.Get(ctx, rosterCacheKey).Result()
	if err != nil {
		metrics.RosterCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var rows []CurrentRateResponse
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		c.logger.Warn("decode cached roster failed, dropping entry", zap.Error(err))
		_ = c.rdb.Del(ctx, rosterCacheKey).Err()
		metrics.RosterCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.RosterCacheTotal.WithLabelValues("hit").Inc()
	return rows, true
}

func (c *RosterCache) Set(ctx context.Context, rows []CurrentRateResponse) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, rosterCacheKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("store roster cache failed", zap.Error(err))
	}
}

func (c *RosterCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, rosterCacheKey).Err()
}
