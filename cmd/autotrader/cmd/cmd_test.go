package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "autotrader version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "XAUUSD Scalping")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("trading:\n  strategy: Martingale\n"), 0o644))
	_, err = execute(t, "config", "validate", "-f", bad)
	assert.ErrorContains(t, err, "validation failed")
}

func TestSessionCommands(t *testing.T) {
	out, err := execute(t, "session", "schedule")
	require.NoError(t, err)
	assert.Contains(t, out, "London")
	assert.Contains(t, out, "Overlap_London_NY")

	out, err = execute(t, "session", "status", "--at", "2026-03-10T10:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Market open:   true")
	assert.Contains(t, out, "Session:       London")
	assert.Contains(t, out, "Optimal:       true (XAUUSD)")
	assert.Contains(t, out, "Next news:     2026-03-10T12:30:00Z")

	out, err = execute(t, "session", "status", "--at", "2026-03-14T10:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Market open:   false")
}

func TestBacktestRandomWalk(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.AI.Enabled = false
	cfg.Journal.Type = "none"
	cfgPath := filepath.Join(dir, "bot.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))
	org := filepath.Join(dir, "report.org")

	out, err := execute(t, "backtest", "-f", cfgPath, "--bars", "300", "--seed", "5",
		"--start", "2026-03-10T10:00:00Z", "--org", org)
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Bars:          300")
	assert.FileExists(t, org)

	report, err := os.ReadFile(org)
	require.NoError(t, err)
	assert.Contains(t, string(report), "* BACKTEST: Scalping XAUUSD")
}

func TestJournalDayBounds(t *testing.T) {
	t.Parallel()

	start, end, err := dayBounds(time.UTC, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), end)

	_, _, err = dayBounds(time.UTC, "10/03/2026")
	assert.Error(t, err)
}
