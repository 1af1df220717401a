package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string  `env:"DATABASE_DSN,required=true"`
	RabbitMQURL         string  `env:"RABBITMQ_URL,required=true"`
	RedisURL            string  `env:"REDIS_URL,required=true"`
	WorkerConcurrency   int     `env:"WORKER_CONCURRENCY,default=5"`
	SchedulerIntervalMS int     `env:"SCHEDULER_INTERVAL_MS,default=5000"`
	SchedulerBatchLimit int     `env:"SCHEDULER_BATCH_LIMIT,default=100"`
	DeliveryTimeoutSec  int     `env:"DELIVERY_TIMEOUT_SEC,default=30"`
	RetryBaseDelayMS    int     `env:"RETRY_BASE_DELAY_MS,default=1000"`
	RetryMultiplier     float64 `env:"RETRY_MULTIPLIER,default=2"`
	MaxAttempts         int     `env:"MAX_ATTEMPTS,default=3"`
	APIPort             int     `env:"API_PORT,default=8080"`
	LogLevel            string  `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalMS) * time.Millisecond
}

func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSec) * time.Second
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}
