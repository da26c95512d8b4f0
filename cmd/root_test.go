package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitstophq/pitstop/internal/config"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3 (commit: abc, built: today)")

	require.Equal(t, "1.2.3 (commit: abc, built: today)", rootCmd.Version)
}

// First run with no config anywhere should leave a usable default file
// behind, so the next run picks it up from the working directory.
func TestWriteDefaultConfig_FirstRun(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".pitstop", "config.yaml")

	require.NoError(t, config.WriteDefaultConfig(path))

	data, err := os.ReadFile(path) //nolint:gosec // test-owned path
	require.NoError(t, err)
	require.Contains(t, string(data), "api_url:")
	require.Contains(t, string(data), "unread_poll_interval:")
}
