package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optexec/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the lifecycle engine.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  optexec config init -o paper.yaml
  optexec config validate -f paper.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with conservative paper-trading
defaults. The file starts disarmed; arm it deliberately.

Example:
  optexec config init -o paper.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  optexec config validate -f paper.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "paper.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  optexec run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Environment: %s (armed: %v)\n", cfg.Environment, cfg.Armed)
	fmt.Printf("  Risk: $%.2f/trade, %d contracts, %d trades/day, $%.2f daily loss\n",
		cfg.Risk.MaxRiskPerTrade, cfg.Risk.MaxContracts, cfg.Risk.MaxTradesPerDay, cfg.Risk.MaxDailyLoss)
	fmt.Printf("  Exits: trim %g%%/%g%%, trail %g%%, hard stop %g%%\n",
		cfg.Exits.Trim1.TriggerPct, cfg.Exits.Trim2.TriggerPct,
		cfg.Exits.TrailingStopPct, cfg.Exits.HardStopPct)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}
