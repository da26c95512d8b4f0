package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/pitstophq/pitstop/internal/cache"
	"github.com/pitstophq/pitstop/internal/pubsub"
	"github.com/pitstophq/pitstop/internal/transport"
)

func newCountsStore() cache.Manager[string, int] {
	return cache.NewInMemory[int]("unread", cache.DefaultExpiration, cache.DefaultCleanupInterval)
}

func messageEvent(id, visitID string) pubsub.Event[transport.Event] {
	return pubsub.Event[transport.Event]{
		Type:    pubsub.MessageEvent,
		Payload: transport.Event{Message: transport.Message{ID: id, VisitID: visitID}},
	}
}

func TestProjection_CountFetchesThroughCache(t *testing.T) {
	calls := 0
	p := NewProjection(newCountsStore(), func(ctx context.Context, visitID string) (int, error) {
		calls++
		require.Equal(t, "v-42", visitID)
		return 3, nil
	}, time.Minute)

	ctx := context.Background()
	require.Equal(t, 3, p.Count(ctx, "v-42"))
	require.Equal(t, 3, p.Count(ctx, "v-42"))
	require.Equal(t, 1, calls, "second read must come from cache")
}

func TestProjection_NoVisitMeansNoBadge(t *testing.T) {
	p := NewProjection(newCountsStore(), func(ctx context.Context, visitID string) (int, error) {
		t.Fatal("must not fetch without an identifier")
		return 0, nil
	}, time.Minute)

	require.Equal(t, 0, p.Count(context.Background(), ""))
}

func TestProjection_ReadFailureMeansNoBadge(t *testing.T) {
	p := NewProjection(newCountsStore(), func(ctx context.Context, visitID string) (int, error) {
		return 0, errors.New("network down")
	}, time.Minute)

	// No badge, no panic, no error escaping.
	require.Equal(t, 0, p.Count(context.Background(), "v-42"))
}

func TestProjection_NegativeServerCountYieldsNoBadge(t *testing.T) {
	p := NewProjection(newCountsStore(), func(ctx context.Context, visitID string) (int, error) {
		return -2, nil
	}, time.Minute)

	require.Equal(t, 0, p.Count(context.Background(), "v-42"))
}

func TestProjection_ApplyMessageIsIdempotent(t *testing.T) {
	counts := newCountsStore()
	p := NewProjection(counts, func(ctx context.Context, visitID string) (int, error) {
		return 1, nil
	}, time.Minute)

	ctx := context.Background()
	require.Equal(t, 1, p.Count(ctx, "v-42"))

	event := messageEvent("m-1", "v-42")
	p.Apply(ctx, event)
	p.Apply(ctx, event)

	require.Equal(t, 2, p.Count(ctx, "v-42"), "duplicate event must not double-count")
}

func TestProjection_ApplyBumpsOnlyCachedCounts(t *testing.T) {
	counts := newCountsStore()
	fetched := 5
	p := NewProjection(counts, func(ctx context.Context, visitID string) (int, error) {
		return fetched, nil
	}, time.Minute)

	ctx := context.Background()

	// No cached value yet: the push is a no-op and the next read gets the
	// server total, which already includes the pushed message.
	p.Apply(ctx, messageEvent("m-1", "v-42"))
	require.Equal(t, 5, p.Count(ctx, "v-42"))
}

func TestProjection_MessageWithoutIDInvalidatesInsteadOfGuessing(t *testing.T) {
	counts := newCountsStore()
	fetched := 1
	p := NewProjection(counts, func(ctx context.Context, visitID string) (int, error) {
		return fetched, nil
	}, time.Minute)

	ctx := context.Background()
	require.Equal(t, 1, p.Count(ctx, "v-42"))

	fetched = 2
	p.Apply(ctx, pubsub.Event[transport.Event]{
		Type:    pubsub.MessageEvent,
		Payload: transport.Event{Message: transport.Message{VisitID: "v-42"}},
	})

	require.Equal(t, 2, p.Count(ctx, "v-42"), "count must be refetched")
}

func TestProjection_ReadEventZeroesCount(t *testing.T) {
	counts := newCountsStore()
	p := NewProjection(counts, func(ctx context.Context, visitID string) (int, error) {
		return 4, nil
	}, time.Minute)

	ctx := context.Background()
	require.Equal(t, 4, p.Count(ctx, "v-42"))

	p.Apply(ctx, pubsub.Event[transport.Event]{
		Type:    pubsub.ReadEvent,
		Payload: transport.Event{Message: transport.Message{VisitID: "v-42"}},
	})

	require.Equal(t, 0, p.Count(ctx, "v-42"))
}

// Any interleaving of duplicate deliveries yields the same count as one
// delivery per distinct message.
func TestProjection_DuplicateDeliveryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		counts := newCountsStore()
		p := NewProjection(counts, func(ctx context.Context, visitID string) (int, error) {
			return 0, nil
		}, time.Minute)

		ctx := context.Background()
		require.Equal(t, 0, p.Count(ctx, "v-1"))

		ids := rapid.SliceOfNDistinct(rapid.StringMatching(`m-[0-9]{1,4}`), 1, 8, rapid.ID[string]).Draw(t, "ids")
		repeats := rapid.IntRange(1, 4).Draw(t, "repeats")

		for r := 0; r < repeats; r++ {
			for _, id := range ids {
				p.Apply(ctx, messageEvent(id, "v-1"))
			}
		}

		if got := p.Count(ctx, "v-1"); got != len(ids) {
			t.Fatalf("count = %d, want %d distinct messages", got, len(ids))
		}
	})
}

func TestProjection_WatchAppliesBrokerEvents(t *testing.T) {
	counts := newCountsStore()
	p := NewProjection(counts, func(ctx context.Context, visitID string) (int, error) {
		return 0, nil
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.Equal(t, 0, p.Count(ctx, "v-1"))

	broker := pubsub.NewBroker[transport.Event]()
	defer broker.Close()

	p.Watch(ctx, broker)
	broker.Publish(pubsub.MessageEvent, transport.Event{Message: transport.Message{ID: "m-1", VisitID: "v-1"}})

	require.Eventually(t, func() bool {
		return p.Count(ctx, "v-1") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBadge(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{count: -1, want: ""},
		{count: 0, want: ""},
		{count: 1, want: "1"},
		{count: 9, want: "9"},
		{count: 10, want: "9+"},
		{count: 250, want: "9+"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Badge(tt.count), "count %d", tt.count)
	}
}
