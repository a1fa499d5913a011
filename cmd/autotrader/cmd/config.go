package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/autotrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage bot configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  autotrader config init -o autotrader.yaml
  autotrader config validate -f autotrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "autotrader.yaml", "output config file path (.yaml, .yml or .json)")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  autotrader run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Account:  %d@%s ($%.2f %s, 1:%d)\n", cfg.Account.Login, cfg.Account.Server, cfg.Account.Balance, cfg.Account.Currency, cfg.Account.Leverage)
	fmt.Fprintf(out, "  Trading:  %s %s (risk %.1f%%, auto lot %v)\n", cfg.Trading.Symbol, cfg.Trading.Strategy, cfg.Trading.RiskPercent, cfg.Trading.AutoLot)
	fmt.Fprintf(out, "  Exits:    TP %g %s, SL %g %s\n", cfg.Trading.TPValue, cfg.Trading.TPUnit, cfg.Trading.SLValue, cfg.Trading.SLUnit)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram.Enabled)
	fmt.Fprintf(out, "  Journal:  %s\n", cfg.Journal.Type)
	return nil
}
