package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "paper", cfg.Environment)
	assert.False(t, cfg.Armed, "defaults must start disarmed")
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad environment", func(c *Config) { c.Environment = "prod" }, "environment"},
		{"zero risk per trade", func(c *Config) { c.Risk.MaxRiskPerTrade = 0 }, "max_risk_per_trade"},
		{"zero contracts", func(c *Config) { c.Risk.MaxContracts = 0 }, "max_contracts"},
		{"zero trades per day", func(c *Config) { c.Risk.MaxTradesPerDay = 0 }, "max_trades_per_day"},
		{"zero daily loss", func(c *Config) { c.Risk.MaxDailyLoss = 0 }, "max_daily_loss"},
		{"trim order inverted", func(c *Config) { c.Exits.Trim1.TriggerPct = 60 }, "trigger_pct"},
		{"sell pct over 100", func(c *Config) { c.Exits.Trim1.SellPct = 150 }, "sell_pct"},
		{"zero hard stop", func(c *Config) { c.Exits.HardStopPct = 0 }, "hard_stop"},
		{"zero trailing stop", func(c *Config) { c.Exits.TrailingStopPct = 0 }, "trailing_stop"},
		{"atr enabled without multiplier", func(c *Config) { c.Exits.ATRTrailing.Multiplier = 0 }, "multiplier"},
		{"negative dte", func(c *Config) { c.Exits.CloseAtDTE = -1 }, "close_at_dte"},
		{"bad cutoff time", func(c *Config) { c.Exits.ForceClose0DTETime = "half past three" }, "HH:MM"},
		{"bad poll interval", func(c *Config) { c.Engine.PollInterval = "soon" }, "poll_interval"},
		{"csv without files", func(c *Config) { c.Journal.ActionsFile = "" }, "actions_file"},
		{"unknown journal type", func(c *Config) { c.Journal.Type = "parquet" }, "journal.type"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndLoad_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := Default()
	cfg.Armed = true
	cfg.Risk.MaxDailyLoss = 250

	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, got.Armed)
	assert.Equal(t, 250.0, got.Risk.MaxDailyLoss)
	assert.Equal(t, cfg.Exits, got.Exits)
}

func TestSaveAndLoad_JSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := Default()
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Risk, got.Risk)
	assert.Equal(t, cfg.Journal, got.Journal)
}

func TestLoadFromFile_InvalidContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: [not, a, string]"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParsePollInterval(t *testing.T) {
	t.Parallel()

	e := EngineConfig{}
	d, err := e.ParsePollInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d, "empty interval defaults to 30s")

	e.PollInterval = "1m30s"
	d, err = e.ParsePollInterval()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}
