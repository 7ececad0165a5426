// Package config defines process configuration and how it is loaded.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load(ctx) layers a YAML file and ODYSSEY_ environment variables on top.
// - Errors wrap this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the listen address of the /metrics and /healthz endpoint.
	MetricsAddr string `koanf:"metrics_addr"`

	// WorkerCount is the number of calculation workers. Each user is pinned
	// to one of them.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds each worker's pending calculations.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize is how many request ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// CalculationTimeoutMS aborts a calculation before its write.
	CalculationTimeoutMS int `koanf:"calculation_timeout_ms"`

	// MaxPoints is the score ceiling of every entity.
	MaxPoints float64 `koanf:"max_points"`

	// CatalogPath points at the YAML reference catalog.
	CatalogPath string `koanf:"catalog_path"`

	// Store selects the rank store: memory or postgres.
	Store string `koanf:"store"`

	// PostgresDSN is required when Store is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// FeedTopic is the topic rank-up events are published on.
	FeedTopic string `koanf:"feed_topic"`

	// RequestTopic is the topic calculation requests are consumed from.
	RequestTopic string `koanf:"request_topic"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		MetricsAddr:          ":9090",
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            1024,
		DedupeSize:           100_000,
		CalculationTimeoutMS: 5000,
		MaxPoints:            5000,
		CatalogPath:          "catalog.yaml",
		Store:                StoreMemory,
		FeedTopic:            "rank_ups",
		RequestTopic:         "calculation_requests",
	}
}

// CalculationTimeout returns the per-calculation deadline.
func (c *Config) CalculationTimeout() time.Duration {
	return time.Duration(c.CalculationTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.MetricsAddr == "":
		return fmt.Errorf("%w: metrics_addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.CalculationTimeoutMS <= 0:
		return fmt.Errorf("%w: calculation_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxPoints <= 0:
		return fmt.Errorf("%w: max_points must be positive", ErrInvalidConfig)
	case c.CatalogPath == "":
		return fmt.Errorf("%w: catalog_path must not be empty", ErrInvalidConfig)
	case c.FeedTopic == "":
		return fmt.Errorf("%w: feed_topic must not be empty", ErrInvalidConfig)
	case c.RequestTopic == "":
		return fmt.Errorf("%w: request_topic must not be empty", ErrInvalidConfig)
	case c.RequestTopic == c.FeedTopic:
		return fmt.Errorf("%w: request_topic and feed_topic must differ", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	return nil
}
