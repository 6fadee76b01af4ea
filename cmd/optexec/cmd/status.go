package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optexec/config"
	"github.com/rustyeddy/optexec/journal"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize today's trading from the journal",
	Long: `Read the configured SQLite journal and summarize the current day:
actions taken, positions closed, and realized P&L.

Example:
  optexec status -f examples/configs/sqlite.yaml`,
	RunE: runStatus,
}

var statusConfigPath string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusConfigPath, "config", "f", "", "path to config file (required)")
	statusCmd.MarkFlagRequired("config")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(statusConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Journal.Type != "sqlite" {
		return fmt.Errorf("status needs a sqlite journal; config uses %q", cfg.Journal.Type)
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	actions, err := j.ListActions(start, now)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	closed, err := j.ListPositions(start, now)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	executed := 0
	for _, a := range actions {
		if a.Executed {
			executed++
		}
	}
	var realized float64
	for _, p := range closed {
		realized += p.RealizedPnL
	}

	fmt.Printf("Status for %s (journal: %s)\n", start.Format("2006-01-02"), cfg.Journal.DBPath)
	fmt.Printf("  Actions: %d (%d executed)\n", len(actions), executed)
	fmt.Printf("  Positions closed: %d\n", len(closed))
	fmt.Printf("  Realized P&L: $%.2f\n", realized)
	for _, p := range closed {
		fmt.Printf("    %s %s $%.2f x%d: $%.2f (%s)\n",
			p.Ticker, p.OptionType, p.Strike, p.Contracts, p.RealizedPnL, p.State)
	}
	return nil
}
