package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// PlaceholderConnectionString is the default connection string. It points at
// no real host and is reported by IsPlaceholder.
const PlaceholderConnectionString = "redis://your-redis-host:6379/0"

const minBatchBytes = 1024

// Config holds host, producer and client settings.
type Config struct {
	ConnectionString string `env:"QUEUE_CONNECTION_STRING" envDefault:"redis://your-redis-host:6379/0"`
	QueueName        string `env:"QUEUE_NAME" envDefault:"task-queue"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"INFO"`

	WorkerCount      int           `env:"WORKER_COUNT" envDefault:"5"`
	ReceiveWait      time.Duration `env:"RECEIVE_WAIT" envDefault:"2s"`
	HandlerTimeout   time.Duration `env:"HANDLER_TIMEOUT" envDefault:"30s"`
	MaxDeliveryCount int           `env:"MAX_DELIVERY_COUNT" envDefault:"10"`
	MaxBatchBytes    int           `env:"MAX_BATCH_BYTES" envDefault:"262144"`

	// DatabaseURL enables the execution ledger when set.
	DatabaseURL string `env:"DATABASE_URL"`

	ServerAddr      string        `env:"SERVER_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads the given env files (".env" when none are given), then the
// process environment, and validates the result. Missing env files are not
// an error; variables already set in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsPlaceholder reports whether the connection string was never configured.
func (c *Config) IsPlaceholder() bool {
	return strings.Contains(c.ConnectionString, "your-redis-host")
}

// DeadLetterQueue returns the name of the queue's dead-letter list.
func (c *Config) DeadLetterQueue() string {
	return c.QueueName + ":deadletter"
}

func (c *Config) validate() error {
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log level '%s': must be DEBUG, INFO, WARN or ERROR", c.LogLevel)
	}

	if strings.TrimSpace(c.ConnectionString) == "" {
		return fmt.Errorf("queue connection string cannot be empty")
	}

	c.QueueName = strings.TrimSpace(c.QueueName)
	if c.QueueName == "" {
		return fmt.Errorf("queue name cannot be empty")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("invalid worker count %d: must be at least 1", c.WorkerCount)
	}

	if c.ReceiveWait <= 0 {
		return fmt.Errorf("invalid receive wait %v: must be positive", c.ReceiveWait)
	}

	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("invalid handler timeout %v: must be positive", c.HandlerTimeout)
	}

	if c.MaxDeliveryCount < 1 {
		return fmt.Errorf("invalid max delivery count %d: must be at least 1", c.MaxDeliveryCount)
	}

	if c.MaxBatchBytes < minBatchBytes {
		return fmt.Errorf("invalid max batch bytes %d: must be at least %d", c.MaxBatchBytes, minBatchBytes)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout)
	}

	return nil
}
