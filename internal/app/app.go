// Package app is the top-level Bubble Tea model: page navigation, the visits
// list, and the floating chat window overlaid on whatever page is showing.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pitstophq/pitstop/internal/chat"
	"github.com/pitstophq/pitstop/internal/config"
	"github.com/pitstophq/pitstop/internal/connection"
	"github.com/pitstophq/pitstop/internal/marketplace"
	"github.com/pitstophq/pitstop/internal/notice"
	"github.com/pitstophq/pitstop/internal/ui/chatwindow"
	"github.com/pitstophq/pitstop/internal/ui/styles"
)

const (
	routeDashboard = "/dashboard"
	routeSupport   = "/support"
)

// visitsMsg delivers the visits list for the dashboard.
type visitsMsg struct {
	visits []marketplace.Visit
	err    error
}

// badgesMsg delivers refreshed unread badges, keyed by visit ID.
type badgesMsg map[string]string

// pollMsg fires on the unread revalidation cadence.
type pollMsg struct{}

// Deps is everything the app model composes.
type Deps struct {
	Config   config.Config
	Market   *marketplace.Client
	Registry *chat.Registry
	Manager  *connection.Manager
	Unread   *chat.Projection
	Window   chatwindow.Model
	Notices  *notice.Broker
}

// Model is the application root.
type Model struct {
	deps   Deps
	window chatwindow.Model

	route   string
	visits  []marketplace.Visit
	badges  map[string]string
	cursor  int
	loadErr error

	width  int
	height int
}

// New creates the app model.
func New(deps Deps) Model {
	return Model{
		deps:   deps,
		window: deps.Window,
		route:  routeDashboard,
		badges: map[string]string{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	var cmd tea.Cmd
	m.window, cmd = m.window.Mount()
	return tea.Batch(cmd, m.loadVisits(), m.schedulePoll())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		var cmd tea.Cmd
		m.window, cmd = m.window.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.onKey(msg)

	case visitsMsg:
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		m.loadErr = nil
		m.visits = msg.visits
		if m.cursor >= len(m.visits) {
			m.cursor = 0
		}
		return m, m.refreshBadges()

	case badgesMsg:
		m.badges = msg
		return m, nil

	case pollMsg:
		return m, tea.Batch(m.refreshBadges(), m.schedulePoll())
	}

	var cmd tea.Cmd
	m.window, cmd = m.window.Update(msg)
	return m, cmd
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys first; everything else routes to the chat window while it
	// is open so typing never moves the list cursor.
	switch msg.String() {
	case "ctrl+c", "q":
		if msg.String() == "q" && m.window.Visible() {
			break
		}
		m.window = m.window.Unmount()
		return m, tea.Quit

	case "tab":
		if m.route == routeDashboard {
			m.route = routeSupport
		} else {
			m.route = routeDashboard
		}
		m.window = m.window.SetRoute(m.route)
		return m, nil
	}

	if m.window.Visible() {
		var cmd tea.Cmd
		m.window, cmd = m.window.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visits)-1 {
			m.cursor++
		}
	case "enter":
		if m.route == routeDashboard && m.cursor < len(m.visits) {
			visit := m.visits[m.cursor]
			m.deps.Registry.OpenVisit(visit.ID, visit.ServiceName)
		}
	case "s":
		m.deps.Registry.OpenAdmin("support", "Support")
	case "r":
		return m, m.loadVisits()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var page string
	switch m.route {
	case routeSupport:
		page = m.supportPage()
	default:
		page = m.dashboardPage()
	}

	return m.window.Overlay(page)
}

func (m Model) dashboardPage() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("PitStop · Visits"))
	b.WriteString("\n\n")

	switch {
	case m.loadErr != nil:
		b.WriteString(styles.StatusBarStyle.Render("Could not load visits. Press r to retry."))
	case len(m.visits) == 0:
		b.WriteString(styles.StatusBarStyle.Render("No visits booked."))
	default:
		for i, visit := range m.visits {
			prefix := "  "
			if i == m.cursor {
				prefix = "> "
			}
			line := fmt.Sprintf("%s%s · %s", prefix, visit.ServiceName, visit.Status)
			if badge := m.badges[visit.ID]; badge != "" {
				line += " " + styles.BadgeStyle.Render(badge)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBarStyle.Render("enter: chat · s: support · tab: support page · q: quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) supportPage() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("PitStop · Support"))
	b.WriteString("\n\n")
	b.WriteString(styles.StatusBarStyle.Render("The support page embeds its own conversation;"))
	b.WriteString("\n")
	b.WriteString(styles.StatusBarStyle.Render("the floating chat window stays hidden here."))
	b.WriteString("\n\n")
	b.WriteString(styles.StatusBarStyle.Render("tab: back to visits · q: quit"))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) loadVisits() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.Config.RequestTimeout)
		defer cancel()
		visits, err := m.deps.Market.Visits(ctx)
		return visitsMsg{visits: visits, err: err}
	}
}

func (m Model) refreshBadges() tea.Cmd {
	visits := m.visits
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.deps.Config.RequestTimeout)
		defer cancel()

		badges := badgesMsg{}
		for _, visit := range visits {
			if badge := chat.Badge(m.deps.Unread.Count(ctx, visit.ID)); badge != "" {
				badges[visit.ID] = badge
			}
		}
		return badges
	}
}

func (m Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.pollInterval(), func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// Window exposes the chat window for teardown after the program exits.
func (m Model) Window() chatwindow.Model {
	return m.window
}

// pollInterval falls back to the default cadence when the configured value
// is unset or invalid.
func (m Model) pollInterval() time.Duration {
	if m.deps.Config.UnreadPollInterval <= 0 {
		return 30 * time.Second
	}
	return m.deps.Config.UnreadPollInterval
}
