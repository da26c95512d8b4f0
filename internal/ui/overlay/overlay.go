// Package overlay renders floating content on top of a background view
// without clearing the screen. The chat window and the toaster both sit on
// top of whatever page is behind them.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position specifies where to place the overlay content.
type Position int

const (
	// Center places the overlay in the center of the viewport.
	Center Position = iota
	// Bottom places the overlay at the bottom center of the viewport.
	Bottom
	// BottomRight anchors the overlay to the bottom-right corner, the
	// floating chat window's home position.
	BottomRight
)

// Config controls overlay rendering behavior.
type Config struct {
	// Width and Height are the total viewport dimensions.
	Width  int
	Height int
	// Position specifies where to place the overlay.
	Position Position
	// PadX and PadY add padding from the nearest edges.
	PadX int
	PadY int
}

// Place renders foreground content on top of background. ANSI-aware so
// styling survives in both layers.
func Place(cfg Config, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")

	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}

	startX, startY := position(cfg, lipgloss.Width(fg), len(fgLines))

	for i, fgLine := range fgLines {
		bgY := startY + i
		if bgY >= len(bgLines) {
			break
		}

		bgLine := bgLines[bgY]
		fgLineWidth := ansi.StringWidth(fgLine)

		left := ansi.Truncate(bgLine, startX, "")
		if leftWidth := ansi.StringWidth(left); leftWidth < startX {
			left += strings.Repeat(" ", startX-leftWidth)
		}

		var right string
		if endX := startX + fgLineWidth; endX < ansi.StringWidth(bgLine) {
			right = ansi.TruncateLeft(bgLine, endX, "")
		}

		bgLines[bgY] = left + fgLine + right
	}

	return strings.Join(bgLines, "\n")
}

func position(cfg Config, fgWidth, fgHeight int) (x, y int) {
	switch cfg.Position {
	case Bottom:
		x = (cfg.Width - fgWidth) / 2
		y = cfg.Height - fgHeight - cfg.PadY
	case BottomRight:
		x = cfg.Width - fgWidth - cfg.PadX
		y = cfg.Height - fgHeight - cfg.PadY
	default: // Center
		x = (cfg.Width - fgWidth) / 2
		y = (cfg.Height - fgHeight) / 2
	}

	return max(x, 0), max(y, 0)
}
