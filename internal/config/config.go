package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN           string `env:"DATABASE_DSN,required=true"`
	RedisURL              string `env:"REDIS_URL,required=true"`
	TelegramBotToken      string `env:"TELEGRAM_BOT_TOKEN"`
	APIPort               int    `env:"API_PORT,default=8080"`
	LogLevel              string `env:"LOG_LEVEL,default=info"`
	Environment           string `env:"ENVIRONMENT,default=production"`
	ReminderIntervalSec   int    `env:"REMINDER_INTERVAL_SEC,default=30"`
	MonitorIntervalSec    int    `env:"MONITOR_INTERVAL_SEC,default=15"`
	DispatcherConcurrency int    `env:"DISPATCHER_CONCURRENCY,default=4"`
	RateLimitPerSec       int    `env:"RATE_LIMIT_PER_SEC,default=25"`
	StatusCacheTTLSec     int    `env:"STATUS_CACHE_TTL_SEC,default=10"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// IsProduction gates destructive maintenance endpoints.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
