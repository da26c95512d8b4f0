package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pitstophq/pitstop/internal/api"
	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/notice"
)

// Invalidation names the keys within one store that a mutation makes stale.
type Invalidation struct {
	Store Invalidator
	Keys  []string
}

// Mutation describes one reconciled write: the network call plus the exact
// key set it invalidates on success. No local write happens before the call
// completes, so failure needs no rollback.
type Mutation struct {
	// Name identifies the mutation in logs.
	Name string

	// Call performs the network request.
	Call func(ctx context.Context) error

	// Invalidates lists every cache key whose contents may be stale once
	// Call succeeds. Keys untouched by the mutation must not appear here.
	Invalidates []Invalidation

	// Fallback is the notice text when the server gives no usable message.
	Fallback string
}

// Reconciler applies the mutate-then-invalidate protocol and, for the few
// callers that need zero-latency feedback, the optimistic write path.
// Concurrent mutations over overlapping keys get no ordering guarantee
// beyond last settled write wins.
type Reconciler struct {
	notices *notice.Broker

	mu     sync.Mutex
	stores []Flusher
}

// NewReconciler creates a Reconciler publishing failures on notices.
func NewReconciler(notices *notice.Broker) *Reconciler {
	return &Reconciler{notices: notices}
}

// Register adds stores to the set wiped by FlushAll.
func (r *Reconciler) Register(stores ...Flusher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, stores...)
}

// FlushAll clears every registered store. Called on logout, after the
// transport has been disconnected.
func (r *Reconciler) FlushAll(ctx context.Context) {
	r.mu.Lock()
	stores := make([]Flusher, len(r.stores))
	copy(stores, r.stores)
	r.mu.Unlock()

	for _, store := range stores {
		if err := store.Flush(ctx); err != nil {
			log.ErrorErr(log.CatCache, "flush failed", err)
		}
	}
	log.Info(log.CatCache, "flushed all stores", "count", len(stores))
}

// Mutate runs the mutation. On success every listed key is invalidated; on
// failure the cache is left untouched and the failure surfaces only as a
// notice.
func (r *Reconciler) Mutate(ctx context.Context, m Mutation) error {
	if err := m.Call(ctx); err != nil {
		log.ErrorErr(log.CatCache, "mutation failed", err, "mutation", m.Name)
		notice.Error(r.notices, api.UserMessage(err, m.Fallback))
		return err
	}

	for _, inv := range m.Invalidates {
		if inv.Store == nil || len(inv.Keys) == 0 {
			continue
		}
		if err := inv.Store.Delete(ctx, inv.Keys...); err != nil {
			log.ErrorErr(log.CatCache, "invalidation failed", err, "mutation", m.Name, "keys", inv.Keys)
		}
	}
	log.Debug(log.CatCache, "mutation reconciled", "mutation", m.Name)
	return nil
}

// Optimistic is an in-flight optimistic write. It remembers the pre-update
// snapshot so a later Rollback can undo the write without waiting for the
// server.
type Optimistic[V any] struct {
	store    Manager[string, V]
	key      string
	ttl      time.Duration
	snapshot V
	had      bool
	restore  func(snapshot V) V
}

// ApplyOptimistic rewrites the cached value under key through update before
// any network call completes. restore, when non-nil, recomputes the value to
// reinstate on rollback from the pre-update snapshot; when nil, rollback
// falls back to invalidating the key so the next read re-fetches.
func ApplyOptimistic[V any](
	ctx context.Context,
	store Manager[string, V],
	key string,
	ttl time.Duration,
	update func(current V) V,
	restore func(snapshot V) V,
) *Optimistic[V] {
	snapshot, had := store.Get(ctx, key)
	store.Set(ctx, key, update(snapshot), ttl)

	return &Optimistic[V]{
		store:    store,
		key:      key,
		ttl:      ttl,
		snapshot: snapshot,
		had:      had,
		restore:  restore,
	}
}

// Rollback undoes the optimistic write. With a restore function the
// snapshot is reinstated through it; otherwise the key is invalidated and
// the next reader pays for a fresh fetch.
func (o *Optimistic[V]) Rollback(ctx context.Context) {
	if o.restore != nil && o.had {
		o.store.Set(ctx, o.key, o.restore(o.snapshot), o.ttl)
		return
	}
	if err := o.store.Delete(ctx, o.key); err != nil {
		log.ErrorErr(log.CatCache, "optimistic rollback invalidation failed", err, "key", o.key)
	}
}
