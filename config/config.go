// Package config loads and validates the simulation configuration. The
// Config object is passed explicitly into the engine and scheduler at
// construction time; there is no process-wide mutable state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backsim/market"
)

// Config is the complete simulation configuration.
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Scheduler  SchedulerConfig  `json:"scheduler" yaml:"scheduler"`
	Risk       RiskConfig       `json:"risk,omitempty" yaml:"risk,omitempty"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
	Leverage float64 `json:"leverage" yaml:"leverage"`
}

// SimulationConfig describes the historical span to replay. When TicksFile
// is empty a deterministic random walk is generated from the other fields.
type SimulationConfig struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Start      string  `json:"start" yaml:"start"` // RFC3339
	Steps      int     `json:"steps" yaml:"steps"` // span length in seconds
	InitialBid float64 `json:"initial_bid" yaml:"initial_bid"`
	InitialAsk float64 `json:"initial_ask" yaml:"initial_ask"`
	StepSize   float64 `json:"step_size,omitempty" yaml:"step_size,omitempty"`
	Seed       int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	TicksFile  string  `json:"ticks_file,omitempty" yaml:"ticks_file,omitempty"`
	CloseEnd   bool    `json:"close_end" yaml:"close_end"`
}

// StartTime parses the configured span start.
func (s SimulationConfig) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, s.Start)
}

// StrategyConfig contains sample-strategy parameters.
type StrategyConfig struct {
	Name         string  `json:"name" yaml:"name"`
	Symbol       string  `json:"symbol" yaml:"symbol"`
	Volume       float64 `json:"volume" yaml:"volume"`
	Fast         int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow         int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	StopPoints   float64 `json:"stop_points,omitempty" yaml:"stop_points,omitempty"`
	TargetPoints float64 `json:"target_points,omitempty" yaml:"target_points,omitempty"`
}

// SchedulerConfig bounds the task queue.
type SchedulerConfig struct {
	Workers     int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	Timeout     string `json:"timeout,omitempty" yaml:"timeout,omitempty"`           // aggregate, e.g. "30s"; empty = unbounded
	ItemTimeout string `json:"item_timeout,omitempty" yaml:"item_timeout,omitempty"` // per item; empty = unbounded
}

func (s SchedulerConfig) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Timeout)
}

func (s SchedulerConfig) ItemTimeoutDuration() (time.Duration, error) {
	if s.ItemTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.ItemTimeout)
}

// RiskConfig contains pre-trade policy limits. Zero values disable the
// corresponding check; an all-zero section disables the risk layer entirely.
type RiskConfig struct {
	MaxVolume        float64 `json:"max_volume,omitempty" yaml:"max_volume,omitempty"`
	MaxOpenPositions int     `json:"max_open_positions,omitempty" yaml:"max_open_positions,omitempty"`
	MaxRiskPct       float64 `json:"max_risk_pct,omitempty" yaml:"max_risk_pct,omitempty"`
	MinRR            float64 `json:"min_rr,omitempty" yaml:"min_rr,omitempty"`
	MaxMarginPct     float64 `json:"max_margin_pct,omitempty" yaml:"max_margin_pct,omitempty"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	DealsFile  string `json:"deals_file,omitempty" yaml:"deals_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoggingConfig selects level and formatter.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // logrus levels
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML (.yaml/.yml) or JSON.
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

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Account.Leverage < 0 {
		return fmt.Errorf("account.leverage must not be negative")
	}

	if c.Simulation.Symbol == "" {
		return fmt.Errorf("simulation.symbol is required")
	}
	if _, ok := market.Symbols[c.Simulation.Symbol]; !ok {
		return fmt.Errorf("unknown symbol: %s", c.Simulation.Symbol)
	}
	if _, err := c.Simulation.StartTime(); err != nil {
		return fmt.Errorf("simulation.start: %w", err)
	}
	if c.Simulation.TicksFile == "" {
		if c.Simulation.Steps <= 0 {
			return fmt.Errorf("simulation.steps must be positive")
		}
		if c.Simulation.InitialBid <= 0 || c.Simulation.InitialAsk <= 0 {
			return fmt.Errorf("simulation initial prices must be positive")
		}
		if c.Simulation.InitialAsk <= c.Simulation.InitialBid {
			return fmt.Errorf("simulation initial_ask must be greater than initial_bid")
		}
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.Volume <= 0 {
		return fmt.Errorf("strategy.volume must be positive")
	}

	if _, err := c.Scheduler.TimeoutDuration(); err != nil {
		return fmt.Errorf("scheduler.timeout: %w", err)
	}
	if _, err := c.Scheduler.ItemTimeoutDuration(); err != nil {
		return fmt.Errorf("scheduler.item_timeout: %w", err)
	}

	if c.Risk.MaxVolume < 0 || c.Risk.MaxOpenPositions < 0 || c.Risk.MaxRiskPct < 0 ||
		c.Risk.MinRR < 0 || c.Risk.MaxMarginPct < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.DealsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal deals_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
			Leverage: 100,
		},
		Simulation: SimulationConfig{
			Symbol:     "EURUSD",
			Start:      "2024-01-01T00:00:00Z",
			Steps:      86400,
			InitialBid: 1.0849,
			InitialAsk: 1.0851,
			StepSize:   0.0001,
			Seed:       1,
			CloseEnd:   true,
		},
		Strategy: StrategyConfig{
			Name:         "ema-cross",
			Symbol:       "EURUSD",
			Volume:       0.1,
			Fast:         20,
			Slow:         50,
			StopPoints:   200,
			TargetPoints: 400,
		},
		Scheduler: SchedulerConfig{
			Workers: 4,
			Timeout: "5m",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backsim.sqlite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
