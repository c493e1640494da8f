// Package config loads the server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all tunables for the broadcast server. Every field has a
// working default so a bare process comes up without any environment set.
type Config struct {
	Addr            string        `env:"PULSE_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"PULSE_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"PULSE_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Dispatch engine.
	DispatchInterval  time.Duration `env:"PULSE_DISPATCH_INTERVAL" envDefault:"100ms"`
	DispatchBatchSize int           `env:"PULSE_DISPATCH_BATCH" envDefault:"100"`
	SendBuffer        int           `env:"PULSE_SEND_BUFFER" envDefault:"256"`

	// Metrics sampling. Counters reset on the longer period so rates reflect
	// a rolling window.
	SampleInterval       time.Duration `env:"PULSE_METRICS_SAMPLE_INTERVAL" envDefault:"1s"`
	ResetInterval        time.Duration `env:"PULSE_METRICS_RESET_INTERVAL" envDefault:"60s"`
	SystemMetricInterval time.Duration `env:"PULSE_SYSTEM_METRIC_INTERVAL" envDefault:"10s"`

	// Connection lifecycle.
	IdleTimeout      time.Duration `env:"PULSE_IDLE_TIMEOUT" envDefault:"5m"`
	EvictionInterval time.Duration `env:"PULSE_EVICTION_INTERVAL" envDefault:"60s"`

	// Event cache.
	CacheTTL        time.Duration `env:"PULSE_CACHE_TTL" envDefault:"1h"`
	MemoryCacheSize int           `env:"PULSE_MEMORY_CACHE_SIZE" envDefault:"1024"`

	// Redis, used for both the event cache and the cross-instance relay.
	RedisAddr     string `env:"PULSE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"PULSE_REDIS_PASSWORD"`
	RedisDB       int    `env:"PULSE_REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"PULSE_REDIS_PREFIX" envDefault:"pulse:"`

	// Query monitor. Empty DATABASE_URL disables the system-metric producer.
	DatabaseURL        string        `env:"DATABASE_URL"`
	SlowQueryThreshold time.Duration `env:"PULSE_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`
}

// Load reads .env files (the default ./.env if none given, missing files are
// fine) and parses the environment into a Config.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("config: load env files: %w", err)
		}
	} else {
		// Default .env is optional.
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with no environment applied.
func Default() *Config {
	return &Config{
		Addr:                 ":8080",
		LogLevel:             "info",
		ShutdownTimeout:      10 * time.Second,
		DispatchInterval:     100 * time.Millisecond,
		DispatchBatchSize:    100,
		SendBuffer:           256,
		SampleInterval:       time.Second,
		ResetInterval:        60 * time.Second,
		SystemMetricInterval: 10 * time.Second,
		IdleTimeout:          5 * time.Minute,
		EvictionInterval:     60 * time.Second,
		CacheTTL:             time.Hour,
		MemoryCacheSize:      1024,
		RedisAddr:            "localhost:6379",
		RedisPrefix:          "pulse:",
		SlowQueryThreshold:   200 * time.Millisecond,
	}
}
