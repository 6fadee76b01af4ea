package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/optexec/internal/logger"
	"github.com/rustyeddy/optexec/risk"
)

// Config is the single source of truth for all trading behavior. No
// hard-coded thresholds anywhere else.
type Config struct {
	Environment string `json:"environment" yaml:"environment"` // paper | live
	Armed       bool   `json:"armed" yaml:"armed"`

	Risk    RiskConfig    `json:"risk" yaml:"risk"`
	Exits   ExitConfig    `json:"exits" yaml:"exits"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Logging logger.Config `json:"logging" yaml:"logging"`
}

// RiskConfig holds the governor's caps.
type RiskConfig struct {
	MaxRiskPerTrade float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxContracts    int     `json:"max_contracts" yaml:"max_contracts"`
	MaxTradesPerDay int     `json:"max_trades_per_day" yaml:"max_trades_per_day"`
	MaxDailyLoss    float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	KillSwitch      bool    `json:"kill_switch" yaml:"kill_switch"`
}

// Limits maps the config onto the governor's limit struct.
func (r RiskConfig) Limits() risk.Limits {
	return risk.Limits{
		MaxRiskPerTrade: r.MaxRiskPerTrade,
		MaxContracts:    r.MaxContracts,
		MaxTradesPerDay: r.MaxTradesPerDay,
		MaxDailyLoss:    r.MaxDailyLoss,
	}
}

// TrimConfig is one profit-taking level.
type TrimConfig struct {
	TriggerPct float64 `json:"trigger_pct" yaml:"trigger_pct"`
	SellPct    float64 `json:"sell_pct" yaml:"sell_pct"`
}

// ATRTrailingConfig controls the volatility trailing stop applied to
// single-contract lots.
type ATRTrailingConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Period     int     `json:"period" yaml:"period"`
}

// ExitConfig holds the non-negotiable exit rules.
type ExitConfig struct {
	Trim1              TrimConfig        `json:"trim_1" yaml:"trim_1"`
	Trim2              TrimConfig        `json:"trim_2" yaml:"trim_2"`
	TrailingStopPct    float64           `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`
	HardStopPct        float64           `json:"hard_stop_pct" yaml:"hard_stop_pct"`
	ATRTrailing        ATRTrailingConfig `json:"atr_trailing" yaml:"atr_trailing"`
	CloseAtDTE         int               `json:"close_at_dte" yaml:"close_at_dte"`
	ForceClose0DTETime string            `json:"force_close_0dte_time" yaml:"force_close_0dte_time"`
}

// EngineConfig holds runtime settings for the poll loop.
type EngineConfig struct {
	PollInterval string `json:"poll_interval" yaml:"poll_interval"` // e.g. "30s"
	MarketOpen   string `json:"market_open" yaml:"market_open"`
	MarketClose  string `json:"market_close" yaml:"market_close"`
}

// ParsePollInterval converts the poll interval to a duration.
func (e EngineConfig) ParsePollInterval() (time.Duration, error) {
	if e.PollInterval == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(e.PollInterval)
}

// JournalConfig selects where action and position records go.
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv" or "sqlite"
	ActionsFile   string `json:"actions_file,omitempty" yaml:"actions_file,omitempty"`
	PositionsFile string `json:"positions_file,omitempty" yaml:"positions_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content; YAML is tried first).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is sane enough to trade on.
func (c *Config) Validate() error {
	if c.Environment != "paper" && c.Environment != "live" {
		return fmt.Errorf("environment must be 'paper' or 'live'")
	}
	if c.Risk.MaxRiskPerTrade <= 0 {
		return fmt.Errorf("risk.max_risk_per_trade must be positive")
	}
	if c.Risk.MaxContracts <= 0 {
		return fmt.Errorf("risk.max_contracts must be positive")
	}
	if c.Risk.MaxTradesPerDay <= 0 {
		return fmt.Errorf("risk.max_trades_per_day must be positive")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive")
	}
	if c.Exits.Trim1.TriggerPct <= 0 || c.Exits.Trim2.TriggerPct <= 0 {
		return fmt.Errorf("exit trim triggers must be positive")
	}
	if c.Exits.Trim1.TriggerPct >= c.Exits.Trim2.TriggerPct {
		return fmt.Errorf("exits.trim_1.trigger_pct must be below exits.trim_2.trigger_pct")
	}
	if c.Exits.Trim1.SellPct <= 0 || c.Exits.Trim1.SellPct > 100 ||
		c.Exits.Trim2.SellPct <= 0 || c.Exits.Trim2.SellPct > 100 {
		return fmt.Errorf("exit trim sell_pct must be in (0, 100]")
	}
	if c.Exits.HardStopPct <= 0 {
		return fmt.Errorf("exits.hard_stop_pct must be positive")
	}
	if c.Exits.TrailingStopPct <= 0 {
		return fmt.Errorf("exits.trailing_stop_pct must be positive")
	}
	if c.Exits.ATRTrailing.Enabled {
		if c.Exits.ATRTrailing.Multiplier <= 0 {
			return fmt.Errorf("exits.atr_trailing.multiplier must be positive")
		}
		if c.Exits.ATRTrailing.Period <= 0 {
			return fmt.Errorf("exits.atr_trailing.period must be positive")
		}
	}
	if c.Exits.CloseAtDTE < 0 {
		return fmt.Errorf("exits.close_at_dte must not be negative")
	}
	var hour, minute int
	if _, err := fmt.Sscanf(c.Exits.ForceClose0DTETime, "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("exits.force_close_0dte_time must be HH:MM")
	}
	if _, err := c.Engine.ParsePollInterval(); err != nil {
		return fmt.Errorf("engine.poll_interval: %w", err)
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.ActionsFile == "" || c.Journal.PositionsFile == "" {
			return fmt.Errorf("journal actions_file and positions_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with conservative paper-trading defaults.
func Default() *Config {
	return &Config{
		Environment: "paper",
		Armed:       false,
		Risk: RiskConfig{
			MaxRiskPerTrade: 200,
			MaxContracts:    1,
			MaxTradesPerDay: 2,
			MaxDailyLoss:    100,
		},
		Exits: ExitConfig{
			Trim1:           TrimConfig{TriggerPct: 25, SellPct: 50},
			Trim2:           TrimConfig{TriggerPct: 50, SellPct: 100},
			TrailingStopPct: 25,
			HardStopPct:     50,
			ATRTrailing: ATRTrailingConfig{
				Enabled:    true,
				Multiplier: 2.0,
				Period:     14,
			},
			CloseAtDTE:         1,
			ForceClose0DTETime: "15:30",
		},
		Engine: EngineConfig{
			PollInterval: "30s",
			MarketOpen:   "09:30",
			MarketClose:  "16:00",
		},
		Journal: JournalConfig{
			Type:          "csv",
			ActionsFile:   "./actions.csv",
			PositionsFile: "./positions.csv",
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "console",
		},
	}
}
