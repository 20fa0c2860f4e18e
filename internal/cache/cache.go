package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable indicates the cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache: backend unavailable")
)

// Cache defines the primitive operations for a key-value cache.
// T is the type of value stored (e.g. int64 for point balances).
type Cache[T any] interface {
	// Get retrieves a value. Returns ErrCacheMiss if the key does not
	// exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a value with TTL.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// GetWithFetch is a cache-aside helper: on miss it calls fetch, stores the
// result, and returns it. Fetch errors are returned without caching.
func GetWithFetch[T any](
	ctx context.Context,
	c Cache[T],
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	value, err := c.Get(ctx, key)
	if err == nil {
		return value, nil
	}

	value, err = fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	// Best-effort store; a cache write failure must not fail the read.
	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}
