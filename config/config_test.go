package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
account:
  id: TEST-1
  currency: USD
  balance: 5000
  leverage: 50
simulation:
  symbol: GBPUSD
  start: "2024-03-01T00:00:00Z"
  steps: 3600
  initial_bid: 1.2649
  initial_ask: 1.2651
  seed: 7
strategy:
  name: open-once
  symbol: GBPUSD
  volume: 0.05
scheduler:
  workers: 2
  timeout: 90s
journal:
  type: none
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "TEST-1", cfg.Account.ID)
	assert.Equal(t, 5000.0, cfg.Account.Balance)
	assert.Equal(t, "GBPUSD", cfg.Simulation.Symbol)
	assert.Equal(t, 3600, cfg.Simulation.Steps)
	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, "open-once", cfg.Strategy.Name)
	assert.Equal(t, 2, cfg.Scheduler.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	start, err := cfg.Simulation.StartTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)

	d, err := cfg.Scheduler.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			orig := Default()
			require.NoError(t, orig.SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, orig, got)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		c := Default()
		fn(c)
		return c
	}

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"missing currency", mutate(func(c *Config) { c.Account.Currency = "" })},
		{"non-positive balance", mutate(func(c *Config) { c.Account.Balance = 0 })},
		{"negative leverage", mutate(func(c *Config) { c.Account.Leverage = -1 })},
		{"missing symbol", mutate(func(c *Config) { c.Simulation.Symbol = "" })},
		{"unknown symbol", mutate(func(c *Config) { c.Simulation.Symbol = "DOGEUSD" })},
		{"bad start time", mutate(func(c *Config) { c.Simulation.Start = "yesterday" })},
		{"non-positive steps", mutate(func(c *Config) { c.Simulation.Steps = 0 })},
		{"inverted quotes", mutate(func(c *Config) { c.Simulation.InitialAsk = c.Simulation.InitialBid })},
		{"missing strategy name", mutate(func(c *Config) { c.Strategy.Name = "" })},
		{"non-positive volume", mutate(func(c *Config) { c.Strategy.Volume = 0 })},
		{"bad scheduler timeout", mutate(func(c *Config) { c.Scheduler.Timeout = "soon" })},
		{"negative risk limit", mutate(func(c *Config) { c.Risk.MaxRiskPct = -0.01 })},
		{"bad item timeout", mutate(func(c *Config) { c.Scheduler.ItemTimeout = "later" })},
		{"csv journal without files", mutate(func(c *Config) { c.Journal = JournalConfig{Type: "csv"} })},
		{"sqlite journal without path", mutate(func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} })},
		{"unknown journal type", mutate(func(c *Config) { c.Journal.Type = "parquet" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestTicksFileSkipsWalkValidation(t *testing.T) {
	c := Default()
	c.Simulation.TicksFile = "ticks.csv"
	c.Simulation.Steps = 0
	c.Simulation.InitialBid = 0
	c.Simulation.InitialAsk = 0

	assert.NoError(t, c.Validate())
}

func TestEmptySchedulerTimeoutsMeanUnbounded(t *testing.T) {
	var s SchedulerConfig

	d, err := s.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	d, err = s.ItemTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)
}
