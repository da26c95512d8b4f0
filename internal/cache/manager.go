// Package cache holds the client-side request/response cache and the
// reconciler that keeps it honest across mutations. Keys are logical
// resource identities; after any completed mutation every dependent key is
// either rewritten or invalidated, so a reader never sees a stale value past
// its next read.
package cache

import (
	"context"
	"strings"
	"time"
)

// Manager is a typed keyed cache.
type Manager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}

// Invalidator is the untyped slice of a Manager the Reconciler targets.
type Invalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// Flusher clears a whole cache; every store registers with the Reconciler so
// logout can wipe them all.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Key builds a logical cache key from resource identity parts, e.g.
// Key("vehicles") for the list and Key("vehicles", id) for one record.
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}
