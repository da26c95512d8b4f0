// Package toaster provides the notification toast overlay. It is the
// presentation end of the notice channel: every recovered failure the client
// reports to the user is rendered here.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pitstophq/pitstop/internal/notice"
	"github.com/pitstophq/pitstop/internal/ui/overlay"
	"github.com/pitstophq/pitstop/internal/ui/styles"
)

// DefaultDuration is how long a toast stays up before auto-dismissing.
const DefaultDuration = 4 * time.Second

// Model holds the toaster state.
type Model struct {
	message string
	level   notice.Level
	visible bool
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays a toast for the given notice.
func (m Model) Show(n notice.Notice) Model {
	m.message = n.Text
	m.level = n.Level
	m.visible = true
	return m
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// View renders the toast box. The emoji matches the notice level:
// ✅ success, ❌ error, ⚠️ warn, ℹ️ info.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	var content string
	switch m.level {
	case notice.LevelError:
		style = style.BorderForeground(styles.ToastBorderErrorColor)
		content = "❌ " + m.message
	case notice.LevelWarn:
		style = style.BorderForeground(styles.ToastBorderWarnColor)
		content = "⚠️ " + m.message
	case notice.LevelSuccess:
		style = style.BorderForeground(styles.ToastBorderSuccessColor)
		content = "✅ " + m.message
	default: // notice.LevelInfo
		style = style.BorderForeground(styles.ToastBorderInfoColor)
		content = "ℹ️ " + m.message
	}

	return style.Render(content)
}

// Overlay renders the toast on top of a background view, bottom-center with
// padding from the bottom edge.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}

	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.Bottom,
		PadY:     1,
	}, m.View(), bg)
}

// DismissMsg signals that the toast should be dismissed.
type DismissMsg struct{}

// ScheduleDismiss returns a command that dismisses the toast after a duration.
func ScheduleDismiss(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return DismissMsg{}
	})
}
