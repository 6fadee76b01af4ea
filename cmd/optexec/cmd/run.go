package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optexec/config"
	"github.com/rustyeddy/optexec/engine"
	"github.com/rustyeddy/optexec/internal/logger"
	"github.com/rustyeddy/optexec/journal"
	"github.com/rustyeddy/optexec/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the position lifecycle engine",
	Long: `Start the poll loop against the paper broker.

Each cycle the engine syncs positions from the broker, walks the exit
table, and journals every action. Stop with Ctrl-C; shutdown is clean.

Example:
  optexec run -f examples/configs/paper.yaml
  optexec run -f examples/configs/paper.yaml --dry-run`,
	RunE: runRun,
}

var (
	runConfigPath string
	runDryRun     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "log what would be done without placing orders")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Environment == "live" {
		return fmt.Errorf("no live broker is wired up; set environment: paper")
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	cash := 10_000.0
	if v := os.Getenv("OPTEXEC_STARTING_CASH"); v != "" {
		cash, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("OPTEXEC_STARTING_CASH: %w", err)
		}
	}
	b := sim.NewEngine(cash)

	eng, err := engine.New(engine.Options{
		Config:  cfg,
		Broker:  b,
		Journal: j,
		Logger:  log,
		DryRun:  runDryRun,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return eng.Run(ctx)
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	if jc.Type == "sqlite" {
		return journal.NewSQLite(jc.DBPath)
	}
	return journal.NewCSV(jc.ActionsFile, jc.PositionsFile)
}
