package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backsim/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled deal records",
	Long: `Query and display deal records from a SQLite journal.

Examples:
  backsim journal deal 42
  backsim journal day 2024-01-15
  backsim journal run 01J9ZK3V5E...`,
}

var journalDealCmd = &cobra.Command{
	Use:   "deal <ticket>",
	Short: "Get a single deal by ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDeal,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List deals executed on a day (UTC)",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "List all deals of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalDealCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalRunCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./backsim.sqlite", "path to SQLite journal DB")
}

func runJournalDeal(cmd *cobra.Command, args []string) error {
	ticket, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad ticket %q", args[0])
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	d, err := j.GetDeal(ticket)
	if err != nil {
		return err
	}
	printDeal(d)
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	day, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("bad day %q, want YYYY-MM-DD", args[0])
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	deals, err := j.ListDealsBetween(day, day.Add(24*time.Hour-time.Second))
	if err != nil {
		return err
	}
	for _, d := range deals {
		printDeal(d)
	}
	fmt.Printf("%d deals\n", len(deals))
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	deals, err := j.ListDealsByRun(args[0])
	if err != nil {
		return err
	}
	for _, d := range deals {
		printDeal(d)
	}
	fmt.Printf("%d deals\n", len(deals))
	return nil
}

func printDeal(d journal.DealRecord) {
	fmt.Printf("%s  #%d %s %s %s %.2f @ %.5f profit %.2f (order %d, position %d)\n",
		d.Time.UTC().Format(time.RFC3339), d.Ticket, d.Symbol, d.Side, d.Entry,
		d.Volume, d.Price, d.Profit, d.Order, d.Position)
}
