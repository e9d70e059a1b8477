package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backsim/backtest"
	"github.com/rustyeddy/backsim/config"
	"github.com/rustyeddy/backsim/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a configuration file",
	Long: `Run replays the configured span through the simulation engine and
prints a summary of the run.

Example:
  backsim run -c backsim.yaml`,
	RunE: runBacktest,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "./backsim.yaml", "path to configuration file")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	runner, jrnl, err := backtest.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	res, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("run      %s\n", res.RunID)
	fmt.Printf("span     %s .. %s\n", res.Start.Format("2006-01-02 15:04:05"), res.End.Format("2006-01-02 15:04:05"))
	fmt.Printf("deals    %d (wins %d, losses %d)\n", res.Deals, res.Wins, res.Losses)
	fmt.Printf("balance  %.2f %s\n", res.Balance, cfg.Account.Currency)
	fmt.Printf("equity   %.2f %s\n", res.Equity, cfg.Account.Currency)
	return nil
}
