package overlay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlace_Center(t *testing.T) {
	bg := "AAAAA\nAAAAA\nAAAAA"
	fg := "XX\nXX"

	result := Place(Config{Width: 5, Height: 3, Position: Center}, fg, bg)

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "XX")
}

func TestPlace_BottomRight(t *testing.T) {
	bg := "AAAAAA\nAAAAAA\nAAAAAA\nAAAAAA"
	fg := "XX\nXX"

	result := Place(Config{Width: 6, Height: 4, Position: BottomRight, PadX: 1, PadY: 1}, fg, bg)

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "AAAXXA", lines[1])
	require.Equal(t, "AAAXXA", lines[2])
	require.Equal(t, "AAAAAA", lines[3])
}

func TestPlace_ForegroundLargerThanViewport(t *testing.T) {
	bg := "AAA\nAAA\nAAA"
	fg := "XXXXX\nXXXXX"

	// Must clamp to the origin instead of panicking.
	result := Place(Config{Width: 3, Height: 3, Position: BottomRight}, fg, bg)

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[1], "XXXXX"))
}

func TestPlace_PadsShortBackground(t *testing.T) {
	result := Place(Config{Width: 4, Height: 3, Position: Bottom}, "XX", "AAAA")

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[2], "XX")
}
