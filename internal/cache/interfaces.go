package cache

import (
	"context"
	"time"
)

// Cache is the object cache tier holding immutable match and timeline blobs.
// Implementations: MemoryCache for tests and single-instance runs, RedisCache in production.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)
}

// CacheError is a constant error type for cache sentinels.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

// DefaultObjectTTL is the coarse expiry for match and timeline objects.
// Both are immutable once the match has ended.
const DefaultObjectTTL = 365 * 24 * time.Hour
