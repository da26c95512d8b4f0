package toaster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitstophq/pitstop/internal/notice"
)

func TestNew(t *testing.T) {
	m := New()

	require.False(t, m.Visible())
	require.Empty(t, m.View())
}

func TestShow(t *testing.T) {
	m := New().Show(notice.Notice{Level: notice.LevelSuccess, Text: "Saved"})

	require.True(t, m.Visible())
	require.Contains(t, m.View(), "Saved")
}

func TestHide(t *testing.T) {
	m := New().Show(notice.Notice{Level: notice.LevelSuccess, Text: "Saved"}).Hide()

	require.False(t, m.Visible())
	require.Empty(t, m.View())
}

func TestShow_ReplacesExisting(t *testing.T) {
	m := New().
		Show(notice.Notice{Level: notice.LevelSuccess, Text: "First"}).
		Show(notice.Notice{Level: notice.LevelError, Text: "Second"})

	require.True(t, m.Visible())
	require.Contains(t, m.View(), "Second")
	require.NotContains(t, m.View(), "First")
}

func TestView_LevelEmoji(t *testing.T) {
	tests := []struct {
		name  string
		level notice.Level
		emoji string
	}{
		{name: "success", level: notice.LevelSuccess, emoji: "✅"},
		{name: "error", level: notice.LevelError, emoji: "❌"},
		{name: "warn", level: notice.LevelWarn, emoji: "⚠️"},
		{name: "info", level: notice.LevelInfo, emoji: "ℹ️"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := New().Show(notice.Notice{Level: tt.level, Text: "message"}).View()

			require.Contains(t, view, tt.emoji)
			require.Contains(t, view, "message")
			require.Contains(t, view, "╭") // Rounded border corner
		})
	}
}

func TestView_EmptyWhenMessageEmpty(t *testing.T) {
	m := Model{visible: true, message: ""}

	require.Empty(t, m.View())
}

func TestOverlay_NotVisibleReturnsBackground(t *testing.T) {
	bg := "Background\nContent"

	require.Equal(t, bg, New().Overlay(bg, 20, 10))
}

func TestOverlay_VisiblePlacesAtBottom(t *testing.T) {
	m := New().Show(notice.Notice{Level: notice.LevelError, Text: "Toast"})
	bg := strings.TrimSuffix(strings.Repeat(strings.Repeat(".", 20)+"\n", 10), "\n")

	result := m.Overlay(bg, 20, 10)

	lines := strings.Split(result, "\n")
	found := false
	for _, line := range lines[len(lines)-5:] {
		if strings.Contains(line, "Toast") {
			found = true
			break
		}
	}
	require.True(t, found, "toast should land near the bottom")
}

func TestShow_ImmutableModel(t *testing.T) {
	m1 := New()
	m2 := m1.Show(notice.Notice{Level: notice.LevelInfo, Text: "Hello"})

	require.False(t, m1.Visible())
	require.True(t, m2.Visible())
}

func TestScheduleDismiss(t *testing.T) {
	require.NotNil(t, ScheduleDismiss(0))
}
