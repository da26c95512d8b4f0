package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pitstophq/pitstop/internal/api"
	"github.com/pitstophq/pitstop/internal/app"
	"github.com/pitstophq/pitstop/internal/cache"
	"github.com/pitstophq/pitstop/internal/chat"
	"github.com/pitstophq/pitstop/internal/config"
	"github.com/pitstophq/pitstop/internal/connection"
	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/marketplace"
	"github.com/pitstophq/pitstop/internal/notice"
	"github.com/pitstophq/pitstop/internal/ui/chatwindow"
	"github.com/pitstophq/pitstop/internal/ui/styles"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	debug   bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "pitstop",
	Short:   "A terminal client for the PitStop service marketplace",
	Long:    `A terminal client for booking vehicle service visits and chatting with providers in real time.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/pitstop/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"write a debug log to .pitstop/debug.log")
	rootCmd.Flags().String("api-url", "",
		"marketplace API base URL")

	_ = viper.BindPFlag("api_url", rootCmd.Flags().Lookup("api-url"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("api_url", defaults.APIURL)
	viper.SetDefault("request_timeout", defaults.RequestTimeout)
	viper.SetDefault("unread_poll_interval", defaults.UnreadPollInterval)
	viper.SetDefault("ui.show_unread_badge", defaults.UI.ShowUnreadBadge)
	viper.SetDefault("ui.show_connectivity", defaults.UI.ShowConnectivity)
	viper.SetDefault("ui.message_page_size", defaults.UI.MessagePageSize)
	viper.SetDefault("ui.toast_duration_secs", defaults.UI.ToastDurationSecs)
	viper.SetDefault("theme.highlight", defaults.Theme.Highlight)
	viper.SetDefault("theme.subtle", defaults.Theme.Subtle)
	viper.SetDefault("theme.error", defaults.Theme.Error)
	viper.SetDefault("theme.success", defaults.Theme.Success)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .pitstop/config.yaml (current directory)
		// 2. ~/.config/pitstop/config.yaml (user config)
		if _, err := os.Stat(".pitstop/config.yaml"); err == nil {
			viper.SetConfigFile(".pitstop/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "pitstop"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .pitstop/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".pitstop/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if debug || os.Getenv("PITSTOP_DEBUG") != "" {
		if cleanup, err := log.Init(".pitstop/debug.log"); err == nil {
			defer cleanup()
		}
	}

	styles.ApplyTheme(cfg.Theme.Subtle, cfg.Theme.Error, cfg.Theme.Success)

	socketURL, err := cfg.ResolveSocketURL()
	if err != nil {
		return err
	}

	// The token lives outside this process; we only read it.
	token := os.Getenv("PITSTOP_TOKEN")

	auth := api.NewAuthBroker()
	apiClient := api.New(cfg.APIURL, func() string { return token }, auth,
		api.WithTimeout(cfg.RequestTimeout))

	notices := notice.NewBroker()
	defer notices.Close()

	reconciler := cache.NewReconciler(notices)
	market := marketplace.NewClient(apiClient, reconciler, cache.DefaultExpiration)

	counts := cache.NewInMemory[int]("unread", cache.DefaultExpiration, cache.DefaultCleanupInterval)
	reconciler.Register(counts)
	projection := chat.NewProjection(counts, chat.UnreadCountFetcher(apiClient), cfg.UnreadPollInterval)

	manager := connection.NewManager(connection.TransportDialer(socketURL))
	defer manager.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logout tears the transport down before the caches flush.
	manager.WatchAuth(ctx, auth, reconciler.FlushAll)
	projection.Watch(ctx, manager.Events())

	if token != "" {
		manager.Connect(token)
	}

	registry := chat.NewRegistry()
	service := chat.NewService(apiClient, manager, counts, notices)
	window := chatwindow.New(registry, manager, projection, service, notices)

	model := app.New(app.Deps{
		Config:   cfg,
		Market:   market,
		Registry: registry,
		Manager:  manager,
		Unread:   projection,
		Window:   window,
		Notices:  notices,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
