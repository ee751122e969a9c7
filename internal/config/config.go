package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port string `env:"PORT, default=3000"`
	Env  string `env:"ENV,  default=development"`

	DB    DBConfig
	Redis RedisConfig
	Kafka KafkaConfig
}

type DBConfig struct {
	Host     string `env:"DB_HOST,     default=localhost"`
	User     string `env:"DB_USER,     default=postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME,     default=user_rates"`
	Port     string `env:"DB_PORT,     default=5432"`
	SSLMode  string `env:"DB_SSLMODE,  default=disable"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`

	// RosterCacheTTL bounds staleness if an invalidation event is ever lost.
	RosterCacheTTL time.Duration `env:"ROSTER_CACHE_TTL, default=5m"`
}

type KafkaConfig struct {
	Broker       string        `env:"KAFKA_BROKER"`
	GroupID      string        `env:"KAFKA_GROUP_ID,      default=user-rates-roster"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL, default=3s"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
