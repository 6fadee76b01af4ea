package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optexec/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect a SQLite action journal",
	Long: `List the actions recorded in a SQLite journal, oldest first.

Examples:
  optexec journal -d optexec.db
  optexec journal -d optexec.db --days 7`,
	RunE: runJournal,
}

var (
	journalDBPath string
	journalDays   int
)

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal (required)")
	journalCmd.Flags().IntVar(&journalDays, "days", 1, "how many days back to list")
	journalCmd.MarkFlagRequired("db")
}

func runJournal(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	to := time.Now()
	from := to.AddDate(0, 0, -journalDays)

	actions, err := j.ListActions(from, to)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	if len(actions) == 0 {
		fmt.Printf("No actions between %s and %s\n",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
		return nil
	}

	fmt.Printf("%-20s %-18s %-6s %9s %10s %8s %5s\n",
		"TIME", "TYPE", "TICKER", "CONTRACTS", "PRICE", "PNL%", "EXEC")
	for _, a := range actions {
		exec := "no"
		if a.Executed {
			exec = "yes"
		}
		if a.DryRun {
			exec = "dry"
		}
		fmt.Printf("%-20s %-18s %-6s %9d %10.2f %8.1f %5s\n",
			a.Time.Format("2006-01-02 15:04:05"), a.Type, a.Ticker,
			a.Contracts, a.Price, a.PnLPct, exec)
	}
	return nil
}
