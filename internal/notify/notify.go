// Package notify is the presentation boundary for operator feedback: every
// success or failure in a rate workflow is reported as a (summary, detail)
// pair with a severity, and the UI decides how to render it.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
)

type Message struct {
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// ZapNotifier writes notifications to the service log.
type ZapNotifier struct {
	logger *zap.Logger
}

func NewZapNotifier(logger ...*zap.Logger) *ZapNotifier {
	l := zap.L().Named("notify")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notify")
	}
	return &ZapNotifier{logger: l}
}

func (n *ZapNotifier) Notify(_ context.Context, msg Message) {
	fields := []zap.Field{
		zap.String("summary", msg.Summary),
		zap.String("detail", msg.Detail),
	}

	switch msg.Severity {
	case SeverityError:
		n.logger.Error("notification", fields...)
	case SeverityWarn:
		n.logger.Warn("notification", fields...)
	default:
		n.logger.Info("notification", fields...)
	}
}

const toastChannel = "notifications:toasts"

// RedisNotifier publishes notifications on a pub/sub channel so a UI bridge
// can render them as toasts. Publish failures are logged and swallowed; a
// lost toast must never fail the workflow that produced it.
type RedisNotifier struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(rdb *redis.Client, logger ...*zap.Logger) *RedisNotifier {
	l := zap.L().Named("notify.redis")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notify.redis")
	}
	return &RedisNotifier{rdb: rdb, logger: l}
}

func (n *RedisNotifier) Notify(ctx context.Context, msg Message) {
	payload, err := json.Marshal(struct {
		Message
		At time.Time `json:"at"`
	}{Message: msg, At: time.Now().UTC()})
	if err != nil {
		return
	}

	if err := n.rdb.Publish(ctx, toastChannel, string(payload)).Err(); err != nil {
		n.logger.Warn("publish notification failed", zap.Error(err))
	}
}
