package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustyeddy/autotrader/notify"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/session"
	"github.com/rustyeddy/autotrader/strategies"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "XAUUSD", cfg.Trading.Symbol)
	assert.Equal(t, "Scalping", cfg.Trading.Strategy)
	assert.Equal(t, 0.01, cfg.Trading.LotSize)
	assert.True(t, cfg.Trading.AutoLot)
	assert.Equal(t, 1.0, cfg.Trading.RiskPercent)
	assert.Equal(t, 0.75, cfg.AI.Confidence)
	assert.Equal(t, 3*time.Second, cfg.Connection.Delay())

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, strategies.Scalping, kind)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"lot too small", func(c *Config) { c.Trading.LotSize = 0.001 }, "trading.lot_size"},
		{"lot too large", func(c *Config) { c.Trading.LotSize = 150 }, "trading.lot_size"},
		{"risk too high", func(c *Config) { c.Trading.RiskPercent = 60 }, "trading.risk_percent"},
		{"unknown strategy", func(c *Config) { c.Trading.Strategy = "Martingale" }, "trading.strategy"},
		{"bad tp unit", func(c *Config) { c.Trading.TPUnit = "bananas" }, "trading.tp_unit"},
		{"daily loss zero", func(c *Config) { c.Risk.MaxDailyLoss = 0 }, "risk.max_daily_loss"},
		{"confidence low", func(c *Config) { c.AI.Confidence = 0.4 }, "ai.confidence"},
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency"},
		{"unknown symbol", func(c *Config) { c.Trading.Symbol = "DOGEUSD" }, "trading.symbol"},
		{"gold alias", func(c *Config) { c.Trading.Symbol = "GOLD" }, ""},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true }, "telegram.token"},
		{"telegram without chat", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.Token = "123:abc"
		}, "telegram.chat_id"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "trades_file"},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }, "db_path"},
		{"no journal", func(c *Config) { c.Journal = JournalConfig{Type: "none"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Trading.Strategy = "HFT"
			cfg.Sessions.Asia = false
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  strategy: Intraday\n  auto_lot: false\nai:\n  enabled: false\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Intraday", cfg.Trading.Strategy)
	assert.False(t, cfg.Trading.AutoLot)
	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, "XAUUSD", cfg.Trading.Symbol)
	assert.Equal(t, 10, cfg.Risk.MaxPositions)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  lot_size: 500\n"), 0o600))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv(EnvTelegramToken, "999:token")
	t.Setenv(EnvTelegramChatID, "4242")

	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  enabled: true\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "999:token", cfg.Telegram.Token)
	assert.Equal(t, "4242", cfg.Telegram.ChatID)
}

func TestLoadEnv(t *testing.T) {
	const key = "AUTOTRADER_TEST_ENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestStoreAdapters(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Trading.SLUnit = "percent"
	cfg.Trading.TrailingStop = true
	cfg.Sessions.Asia = false
	s := NewStore(cfg, "")

	assert.Equal(t, risk.Limits{
		MaxDailyLossPct:      5,
		DailyProfitTargetPct: 10,
		MaxDrawdownPct:       5,
		AutoStopDrawdown:     true,
		MaxPositions:         10,
		MaxLossStreak:        3,
		EmergencyStopPct:     20,
	}, s.RiskLimits())

	s.SetRiskPercent(0.8)
	assert.Equal(t, 0.8, s.RiskPercent())
	assert.Equal(t, 0.8, s.Sizing().RiskPercent)
	assert.Equal(t, risk.UnitPercent, s.Sizing().SLUnit)

	ex := s.Exits()
	assert.Equal(t, risk.UnitPips, ex.TPUnit)
	assert.Equal(t, 50.0, ex.TPValue)
	assert.True(t, ex.Trailing)
	assert.Equal(t, 15.0, ex.TrailingDistance)

	assert.Equal(t, notify.Routes{Trades: true, Errors: true, DailySummary: true}, s.Notifications())

	live := s.Get()
	sessions := live.SessionFlags()
	assert.False(t, sessions[session.Asia])
	assert.True(t, sessions[session.Overlap])

	snap := s.Get()
	snap.Trading.Symbol = "EURUSD"
	assert.Equal(t, "XAUUSD", s.Get().Trading.Symbol)
}

func TestStoreSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.yaml")
	s := NewStore(Default(), path)
	s.Update(func(c *Config) { c.Trading.Symbol = "EURUSD" })
	require.NoError(t, s.Save())

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", loaded.Trading.Symbol)
	assert.NoError(t, NewStore(nil, "").Save())
}

func TestStoreReloadKeepsAdaptedRisk(t *testing.T) {
	t.Parallel()

	s := NewStore(Default(), "")
	s.SetRiskPercent(0.64)

	edited := *Default()
	edited.Sessions.Asia = !edited.Sessions.Asia
	live := s.Reload(edited)
	assert.Equal(t, 0.64, live.Trading.RiskPercent)
	assert.Equal(t, 0.64, s.RiskPercent())
	assert.Equal(t, edited.Sessions.Asia, s.Get().Sessions.Asia)

	edited.Trading.RiskPercent = 1.5
	assert.Equal(t, 1.5, s.Reload(edited).Trading.RiskPercent)

	s.SetRiskPercent(1.2)
	assert.Equal(t, 1.2, s.Reload(edited).Trading.RiskPercent, "file value unchanged since last reload")
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, Default().SaveToFile(path))

	store := NewStore(Default(), path)
	store.SetRiskPercent(0.8)
	w, err := NewWatcher(path, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan Config, 4)
	w.OnChange(func(c Config) {
		select {
		case changed <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	toggled := Default()
	toggled.Sessions.Asia = !toggled.Sessions.Asia
	require.NoError(t, toggled.SaveToFile(path))

	select {
	case c := <-changed:
		assert.Equal(t, toggled.Sessions.Asia, c.Sessions.Asia)
		assert.Equal(t, 0.8, c.Trading.RiskPercent, "adapted risk kept")
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	assert.Equal(t, 0.8, store.RiskPercent())

	next := Default()
	next.Trading.RiskPercent = 2.5
	require.NoError(t, next.SaveToFile(path))

	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-changed:
			reloaded = c.Trading.RiskPercent == 2.5
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
	assert.Equal(t, 2.5, store.RiskPercent())

	require.NoError(t, os.WriteFile(path, []byte("trading:\n  lot_size: 500\n"), 0o600))
	time.Sleep(4 * debounce)
	assert.Equal(t, 2.5, store.RiskPercent())
	assert.Equal(t, 0.01, store.Get().Trading.LotSize)
}
