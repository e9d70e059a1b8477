package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backsim",
	Short: "A broker-faithful backtesting engine with a concurrent strategy scheduler",
	Long: `Backsim replays historical tick data through a simulated brokerage:
a monotonic clock over a fixed span, terminal-compatible order matching
with netting, and three mutually-consistent ledgers (orders, positions,
deals). Strategies run as scheduled units on a priority-aware task queue.

It provides tools for:
  - Running backtests from a YAML/JSON configuration
  - Generating deterministic synthetic tick data or replaying CSV ticks
  - Journaling deals and equity curves to SQLite or CSV
  - Querying journaled runs`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
