package api

import (
	"context"

	"github.com/pitstophq/pitstop/internal/log"
)

// Track sends a best-effort telemetry event. Failures are logged and
// swallowed: tracking must never surface to the user or be retried.
func (c *Client) Track(ctx context.Context, event string, payload any) {
	body := struct {
		Event   string `json:"event"`
		Payload any    `json:"payload,omitempty"`
	}{Event: event, Payload: payload}

	if err := c.Do(ctx, "POST", "/v1/track", body, nil); err != nil {
		log.Debug(log.CatAPI, "tracking call dropped", "event", event, "error", err)
	}
}
