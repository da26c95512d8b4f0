// Package config provides configuration types and defaults for pitstop.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all configuration options for pitstop.
type Config struct {
	// APIURL is the base URL of the marketplace REST API.
	APIURL string `mapstructure:"api_url"`

	// SocketURL is the websocket endpoint for the real-time transport.
	// Derived from APIURL when empty.
	SocketURL string `mapstructure:"socket_url"`

	// RequestTimeout bounds every REST call.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// UnreadPollInterval is the revalidation cadence for unread counts.
	// Push events only shortcut this; the polled value is authoritative.
	UnreadPollInterval time.Duration `mapstructure:"unread_poll_interval"`

	// Provider is the last selected service provider, persisted as a UI
	// preference.
	Provider string `mapstructure:"provider"`

	UI    UIConfig    `mapstructure:"ui"`
	Theme ThemeConfig `mapstructure:"theme"`
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowUnreadBadge   bool `mapstructure:"show_unread_badge"`
	ShowConnectivity  bool `mapstructure:"show_connectivity"`
	MessagePageSize   int  `mapstructure:"message_page_size"`
	ToastDurationSecs int  `mapstructure:"toast_duration_secs"`
}

// ThemeConfig holds theme customization options.
type ThemeConfig struct {
	Highlight string `mapstructure:"highlight"`
	Subtle    string `mapstructure:"subtle"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		APIURL:             "https://api.pitstop.example",
		RequestTimeout:     10 * time.Second,
		UnreadPollInterval: 30 * time.Second,
		UI: UIConfig{
			ShowUnreadBadge:   true,
			ShowConnectivity:  true,
			MessagePageSize:   50,
			ToastDurationSecs: 4,
		},
		Theme: ThemeConfig{
			Highlight: "#7D56F4",
			Subtle:    "#696969",
			Error:     "#FF6B6B",
			Success:   "#73F59F",
		},
	}
}

// Validate checks the config for values the client cannot run with.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if _, err := url.Parse(c.APIURL); err != nil {
		return fmt.Errorf("invalid api_url: %w", err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.UnreadPollInterval <= 0 {
		return fmt.Errorf("unread_poll_interval must be positive")
	}
	return nil
}

// ResolveSocketURL returns the websocket endpoint, deriving it from the API
// URL when not set explicitly (https -> wss, http -> ws, path /ws).
func (c Config) ResolveSocketURL() (string, error) {
	if c.SocketURL != "" {
		return c.SocketURL, nil
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "", fmt.Errorf("deriving socket url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("deriving socket url: unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}
