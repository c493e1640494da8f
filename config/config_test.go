package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.DispatchInterval)
	assert.Equal(t, 100, cfg.DispatchBatchSize)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.Equal(t, time.Minute, cfg.ResetInterval)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "pulse:", cfg.RedisPrefix)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PULSE_ADDR", ":9999")
	t.Setenv("PULSE_LOG_LEVEL", "debug")
	t.Setenv("PULSE_DISPATCH_INTERVAL", "250ms")
	t.Setenv("PULSE_DISPATCH_BATCH", "10")
	t.Setenv("PULSE_IDLE_TIMEOUT", "30s")
	t.Setenv("PULSE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("DATABASE_URL", "postgres://pulse:pw@db/pulse")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.DispatchInterval)
	assert.Equal(t, 10, cfg.DispatchBatchSize)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, "postgres://pulse:pw@db/pulse", cfg.DatabaseURL)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("PULSE_DISPATCH_INTERVAL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.env")
	assert.Error(t, err)
}

func TestDefaultMatchesEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, *Default(), *loaded)
}
