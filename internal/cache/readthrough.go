package cache

import (
	"context"
	"time"
)

// ReadThrough wraps a Manager with a fetch function: a miss triggers exactly
// one network read and the result is cached under the key.
type ReadThrough[V any, I any] struct {
	cache           Manager[string, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool
}

// NewReadThrough creates a read-through wrapper over cache using fn to
// resolve misses.
func NewReadThrough[V any, I any](
	cache Manager[string, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThrough[V, I] {
	return &ReadThrough[V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
	}
}

// Get returns the cached value or fetches, caches and returns it.
func (r *ReadThrough[V, I]) Get(ctx context.Context, key string, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)

	return value, nil
}
