package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pitstophq/pitstop/internal/log"
)

// fileConfig mirrors Config with yaml tags for writing the default file.
// Viper reads with mapstructure tags; writing goes through yaml.v3 so the
// generated file round-trips.
type fileConfig struct {
	APIURL             string         `yaml:"api_url"`
	SocketURL          string         `yaml:"socket_url,omitempty"`
	RequestTimeout     string         `yaml:"request_timeout"`
	UnreadPollInterval string         `yaml:"unread_poll_interval"`
	Provider           string         `yaml:"provider,omitempty"`
	UI                 fileUIConfig   `yaml:"ui"`
	Theme              fileThemeColor `yaml:"theme"`
}

type fileUIConfig struct {
	ShowUnreadBadge   bool `yaml:"show_unread_badge"`
	ShowConnectivity  bool `yaml:"show_connectivity"`
	MessagePageSize   int  `yaml:"message_page_size"`
	ToastDurationSecs int  `yaml:"toast_duration_secs"`
}

type fileThemeColor struct {
	Highlight string `yaml:"highlight"`
	Subtle    string `yaml:"subtle"`
	Error     string `yaml:"error"`
	Success   string `yaml:"success"`
}

// WriteDefaultConfig writes the default configuration to the given path,
// creating parent directories as needed. Existing files are left untouched.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := Defaults()
	out := fileConfig{
		APIURL:             defaults.APIURL,
		RequestTimeout:     defaults.RequestTimeout.String(),
		UnreadPollInterval: defaults.UnreadPollInterval.String(),
		UI: fileUIConfig{
			ShowUnreadBadge:   defaults.UI.ShowUnreadBadge,
			ShowConnectivity:  defaults.UI.ShowConnectivity,
			MessagePageSize:   defaults.UI.MessagePageSize,
			ToastDurationSecs: defaults.UI.ToastDurationSecs,
		},
		Theme: fileThemeColor{
			Highlight: defaults.Theme.Highlight,
			Subtle:    defaults.Theme.Subtle,
			Error:     defaults.Theme.Error,
			Success:   defaults.Theme.Success,
		},
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // config file is not sensitive
		return fmt.Errorf("writing default config: %w", err)
	}

	log.Info(log.CatConfig, "wrote default config", "path", path)
	return nil
}
