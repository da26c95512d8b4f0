// Package api is the request/response client for the marketplace REST API.
// It owns the response-envelope normalization, the request timeout, and the
// process-wide logout broadcast on authentication failure.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/pubsub"
)

// DefaultTimeout bounds REST calls when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Credential reads the current bearer token. The token is owned by the
// authentication layer; the client only reads it. An empty string means
// the request goes out unauthenticated.
type Credential func() string

// AuthBroker carries process-wide authentication signals. The payload is a
// short reason string for logging.
type AuthBroker = pubsub.Broker[string]

// NewAuthBroker creates the auth signal broker.
func NewAuthBroker() *AuthBroker {
	return pubsub.NewBroker[string]()
}

// Client is a thin REST client. All reads pass through the same envelope
// normalization so callers only ever see unwrapped payloads.
type Client struct {
	base       string
	http       *http.Client
	credential Credential
	auth       *AuthBroker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client for the given base URL. credential may be nil for an
// unauthenticated client; auth may be nil when no one listens for logouts.
func New(baseURL string, credential Credential, auth *AuthBroker, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: DefaultTimeout},
		credential: credential,
		auth:       auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Auth returns the auth broker the client publishes logout signals on.
func (c *Client) Auth() *AuthBroker {
	return c.auth
}

// Get issues a GET and decodes the (possibly enveloped) response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do issues a request. body is JSON-encoded when non-nil; out, when non-nil,
// receives the normalized response payload.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != nil {
		if token := c.credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.ErrorErr(log.CatAPI, "request failed", err, "method", method, "path", path)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{
			Code:    resp.StatusCode,
			Message: serverMessage(data),
		}
		log.Warn(log.CatAPI, "request rejected", "method", method, "path", path, "status", resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized && c.auth != nil {
			// Fired before returning so the connection manager and cache
			// react even when the caller drops the error.
			c.auth.Publish(pubsub.LoggedOutEvent, fmt.Sprintf("%s %s unauthorized", method, path))
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := decode(data, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

// envelope is the optional `{success, data}` wrapper some endpoints return.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// decode normalizes both response shapes: an envelope with data present is
// unwrapped, anything else is decoded as-is.
func decode(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil && env.Data != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("decoding envelope data: %w", err)
			}
			return nil
		}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// serverMessage extracts a human-readable message from an error body, from
// either the envelope message field or a bare `{message}` object.
func serverMessage(data []byte) string {
	var probe struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	if probe.Message != "" {
		return probe.Message
	}
	return probe.Error
}
