// Package marketplace holds the thin resource clients for the booking
// marketplace: vehicles, visits, reviews and settings. Every mutation runs
// through the cache reconciler with its exact invalidation set; reads come
// through the shared cache.
package marketplace

// Vehicle is a customer vehicle on file.
type Vehicle struct {
	ID    string `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Plate string `json:"plate"`
}

// VehicleInput is the payload for creating a vehicle.
type VehicleInput struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Plate string `json:"plate"`
}

// Visit is a booked service visit.
type Visit struct {
	ID          string `json:"id"`
	VehicleID   string `json:"vehicle_id"`
	ProviderID  string `json:"provider_id"`
	ServiceName string `json:"service_name"`
	Status      string `json:"status"`
	ScheduledAt string `json:"scheduled_at"`
}

// VisitInput is the payload for booking a visit.
type VisitInput struct {
	VehicleID   string `json:"vehicle_id"`
	ProviderID  string `json:"provider_id"`
	ServiceName string `json:"service_name"`
	ScheduledAt string `json:"scheduled_at"`
}

// Review is a provider review left by the customer.
type Review struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Rating     int    `json:"rating"`
	Body       string `json:"body"`
}

// ReviewInput is the payload for posting a review.
type ReviewInput struct {
	Rating int    `json:"rating"`
	Body   string `json:"body"`
}

// Settings are the customer account settings.
type Settings struct {
	Notifications bool   `json:"notifications"`
	Locale        string `json:"locale"`
	Provider      string `json:"provider"`
}
