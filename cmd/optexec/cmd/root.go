package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "optexec",
	Short: "Options position lifecycle engine with hard risk limits",
	Long: `Optexec babysits open option positions so a human doesn't have to.

It provides:
  - A poll loop that reconciles positions against the broker
  - A fixed-priority exit table: hard stop, time-based closes,
    trailing stops, then profit trims
  - A risk governor with daily loss lockout and a kill switch
  - Trade journaling to CSV or SQLite

Complete documentation is available at https://github.com/rustyeddy/optexec`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
