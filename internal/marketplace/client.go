package marketplace

import (
	"context"
	"time"

	"github.com/pitstophq/pitstop/internal/api"
	"github.com/pitstophq/pitstop/internal/cache"
)

// Cache keys. A mutation lists exactly the keys it stales and nothing else.
func vehiclesKey() string { return cache.Key("vehicles") }

func visitsKey() string { return cache.Key("visits") }

func reviewsKey(providerID string) string { return cache.Key("reviews", providerID) }

func settingsKey() string { return cache.Key("settings") }

// Client bundles the resource endpoints with their caches.
type Client struct {
	api        *api.Client
	reconciler *cache.Reconciler
	ttl        time.Duration

	vehicles *cache.InMemory[[]Vehicle]
	visits   *cache.InMemory[[]Visit]
	reviews  *cache.InMemory[[]Review]
	settings *cache.InMemory[Settings]

	vehicleReads  *cache.ReadThrough[[]Vehicle, struct{}]
	visitReads    *cache.ReadThrough[[]Visit, struct{}]
	reviewReads   *cache.ReadThrough[[]Review, string]
	settingsReads *cache.ReadThrough[Settings, struct{}]
}

// NewClient creates the marketplace client. Its stores register with the
// reconciler so a logout flush wipes them along with everything else.
func NewClient(apiClient *api.Client, reconciler *cache.Reconciler, ttl time.Duration) *Client {
	c := &Client{
		api:        apiClient,
		reconciler: reconciler,
		ttl:        ttl,
		vehicles:   cache.NewInMemory[[]Vehicle]("vehicles", cache.DefaultExpiration, cache.DefaultCleanupInterval),
		visits:     cache.NewInMemory[[]Visit]("visits", cache.DefaultExpiration, cache.DefaultCleanupInterval),
		reviews:    cache.NewInMemory[[]Review]("reviews", cache.DefaultExpiration, cache.DefaultCleanupInterval),
		settings:   cache.NewInMemory[Settings]("settings", cache.DefaultExpiration, cache.DefaultCleanupInterval),
	}

	c.vehicleReads = cache.NewReadThrough[[]Vehicle, struct{}](c.vehicles, func(ctx context.Context, _ struct{}) ([]Vehicle, error) {
		var out []Vehicle
		return out, c.api.Get(ctx, "/v1/vehicles", &out)
	}, false)
	c.visitReads = cache.NewReadThrough[[]Visit, struct{}](c.visits, func(ctx context.Context, _ struct{}) ([]Visit, error) {
		var out []Visit
		return out, c.api.Get(ctx, "/v1/visits", &out)
	}, false)
	c.reviewReads = cache.NewReadThrough[[]Review, string](c.reviews, func(ctx context.Context, providerID string) ([]Review, error) {
		var out []Review
		return out, c.api.Get(ctx, "/v1/providers/"+providerID+"/reviews", &out)
	}, false)
	c.settingsReads = cache.NewReadThrough[Settings, struct{}](c.settings, func(ctx context.Context, _ struct{}) (Settings, error) {
		var out Settings
		return out, c.api.Get(ctx, "/v1/settings", &out)
	}, false)

	reconciler.Register(c.vehicles, c.visits, c.reviews, c.settings)
	return c
}

// Vehicles returns the customer's vehicles, cached.
func (c *Client) Vehicles(ctx context.Context) ([]Vehicle, error) {
	return c.vehicleReads.Get(ctx, vehiclesKey(), struct{}{}, c.ttl)
}

// Visits returns the customer's visits, cached.
func (c *Client) Visits(ctx context.Context) ([]Visit, error) {
	return c.visitReads.Get(ctx, visitsKey(), struct{}{}, c.ttl)
}

// Reviews returns one provider's reviews, cached per provider.
func (c *Client) Reviews(ctx context.Context, providerID string) ([]Review, error) {
	return c.reviewReads.Get(ctx, reviewsKey(providerID), providerID, c.ttl)
}

// Settings returns the account settings, cached.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	return c.settingsReads.Get(ctx, settingsKey(), struct{}{}, c.ttl)
}

// CreateVehicle adds a vehicle and stales the vehicles list.
func (c *Client) CreateVehicle(ctx context.Context, input VehicleInput) error {
	return c.reconciler.Mutate(ctx, cache.Mutation{
		Name: "create-vehicle",
		Call: func(ctx context.Context) error {
			return c.api.Post(ctx, "/v1/vehicles", input, nil)
		},
		Invalidates: []cache.Invalidation{
			{Store: c.vehicles, Keys: []string{vehiclesKey()}},
		},
		Fallback: "Could not save the vehicle.",
	})
}

// DeleteVehicle removes a vehicle and stales the vehicles list.
func (c *Client) DeleteVehicle(ctx context.Context, id string) error {
	return c.reconciler.Mutate(ctx, cache.Mutation{
		Name: "delete-vehicle",
		Call: func(ctx context.Context) error {
			return c.api.Delete(ctx, "/v1/vehicles/"+id)
		},
		Invalidates: []cache.Invalidation{
			{Store: c.vehicles, Keys: []string{vehiclesKey()}},
		},
		Fallback: "Could not remove the vehicle.",
	})
}

// BookVisit books a visit and stales the visits list.
func (c *Client) BookVisit(ctx context.Context, input VisitInput) error {
	return c.reconciler.Mutate(ctx, cache.Mutation{
		Name: "book-visit",
		Call: func(ctx context.Context) error {
			return c.api.Post(ctx, "/v1/visits", input, nil)
		},
		Invalidates: []cache.Invalidation{
			{Store: c.visits, Keys: []string{visitsKey()}},
		},
		Fallback: "Could not book the visit.",
	})
}

// CancelVisit cancels a visit and stales the visits list.
func (c *Client) CancelVisit(ctx context.Context, id string) error {
	return c.reconciler.Mutate(ctx, cache.Mutation{
		Name: "cancel-visit",
		Call: func(ctx context.Context) error {
			return c.api.Post(ctx, "/v1/visits/"+id+"/cancel", nil, nil)
		},
		Invalidates: []cache.Invalidation{
			{Store: c.visits, Keys: []string{visitsKey()}},
		},
		Fallback: "Could not cancel the visit.",
	})
}

// CreateReview posts a review and stales that provider's review list only.
func (c *Client) CreateReview(ctx context.Context, providerID string, input ReviewInput) error {
	return c.reconciler.Mutate(ctx, cache.Mutation{
		Name: "create-review",
		Call: func(ctx context.Context) error {
			return c.api.Post(ctx, "/v1/providers/"+providerID+"/reviews", input, nil)
		},
		Invalidates: []cache.Invalidation{
			{Store: c.reviews, Keys: []string{reviewsKey(providerID)}},
		},
		Fallback: "Could not post the review.",
	})
}

// UpdateSettings saves settings and stales the settings entry.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) error {
	return c.reconciler.Mutate(ctx, cache.Mutation{
		Name: "update-settings",
		Call: func(ctx context.Context) error {
			return c.api.Patch(ctx, "/v1/settings", s, nil)
		},
		Invalidates: []cache.Invalidation{
			{Store: c.settings, Keys: []string{settingsKey()}},
		},
		Fallback: "Could not update settings.",
	})
}
