package chat

import (
	"context"
	"strconv"
	"time"

	"github.com/pitstophq/pitstop/internal/cache"
	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/pubsub"
	"github.com/pitstophq/pitstop/internal/transport"
)

// badgeCap is the largest count shown literally; anything above renders as
// "9+". Display only: the cached numeric value is never clamped.
const badgeCap = 9

// dedupeTTL is how long a pushed message ID is remembered. A redelivered
// event inside this window is dropped instead of double-counted.
const dedupeTTL = 10 * time.Minute

// CountFetcher resolves the authoritative unread count for a visit.
type CountFetcher func(ctx context.Context, visitID string) (int, error)

// Projection derives per-visit unread counts. The polled REST count is the
// source of truth; push events only adjust the cached value between polls.
type Projection struct {
	counts cache.Manager[string, int]
	reads  *cache.ReadThrough[int, string]
	seen   cache.Manager[string, struct{}]
	ttl    time.Duration
}

// NewProjection creates a projection over the shared counts store. ttl is
// the revalidation cadence for polled reads.
func NewProjection(counts cache.Manager[string, int], fetch CountFetcher, ttl time.Duration) *Projection {
	return &Projection{
		counts: counts,
		reads: cache.NewReadThrough[int, string](counts, func(ctx context.Context, visitID string) (int, error) {
			return fetch(ctx, visitID)
		}, false),
		seen: cache.NewInMemory[struct{}]("unread-dedupe", dedupeTTL, cache.DefaultCleanupInterval),
		ttl:  ttl,
	}
}

// CountKey is the cache key for one visit's unread count.
func CountKey(visitID string) string {
	return cache.Key("unread", visitID)
}

// Count returns the unread count for a visit. A missing identifier or a
// failed read yields zero ("no badge"), never an error.
func (p *Projection) Count(ctx context.Context, visitID string) int {
	if visitID == "" {
		return 0
	}
	n, err := p.reads.Get(ctx, CountKey(visitID), visitID, p.ttl)
	if err != nil {
		log.Debug(log.CatChat, "unread read failed, showing no badge", "visit", visitID, "error", err)
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// Apply folds one transport event into the projection. Idempotent: the same
// message event applied twice counts once.
func (p *Projection) Apply(ctx context.Context, event pubsub.Event[transport.Event]) {
	switch event.Type {
	case pubsub.MessageEvent:
		p.applyMessage(ctx, event.Payload.Message)
	case pubsub.ReadEvent:
		if visitID := event.Payload.Message.VisitID; visitID != "" {
			p.counts.Set(ctx, CountKey(visitID), 0, p.ttl)
		}
	}
}

// Watch applies transport events from the broker until ctx is cancelled.
func (p *Projection) Watch(ctx context.Context, events pubsub.Subscriber[transport.Event]) {
	ch := events.Subscribe(ctx)
	go func() {
		for event := range ch {
			p.Apply(ctx, event)
		}
	}()
}

func (p *Projection) applyMessage(ctx context.Context, msg transport.Message) {
	if msg.VisitID == "" {
		return
	}
	if msg.ID == "" {
		// Nothing to dedupe on: drop the cached count so the next read
		// refetches instead of guessing.
		_ = p.counts.Delete(ctx, CountKey(msg.VisitID))
		return
	}
	if _, dup := p.seen.Get(ctx, msg.ID); dup {
		return
	}
	p.seen.Set(ctx, msg.ID, struct{}{}, dedupeTTL)

	// Only bump an already-cached count. An absent entry stays absent: the
	// next read fetches a total that includes this message anyway.
	if current, ok := p.counts.Get(ctx, CountKey(msg.VisitID)); ok {
		p.counts.Set(ctx, CountKey(msg.VisitID), current+1, p.ttl)
	}
}

// Badge renders a count for display: empty for zero, "9+" above the cap.
func Badge(count int) string {
	if count <= 0 {
		return ""
	}
	if count > badgeCap {
		return strconv.Itoa(badgeCap) + "+"
	}
	return strconv.Itoa(count)
}
