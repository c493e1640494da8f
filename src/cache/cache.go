package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is absent. Callers treat a miss as
// "no data yet", not a failure.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is a byte-oriented key-value store with per-entry TTL on Set.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
