package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ Cache = (*Memory)(nil)

// Memory is an in-process Cache used when Redis is not configured or not
// reachable. The LRU applies one cache-wide TTL fixed at construction, so
// the per-call ttl argument is ignored.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates an in-process cache holding up to size entries, each
// expiring ttl after it was written.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 1024
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get fetches a key. Absent or expired keys return ErrCacheMiss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

// Set stores a key. The entry expires after the cache-wide TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}
