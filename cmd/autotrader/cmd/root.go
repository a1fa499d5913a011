package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/internal/logging"
	"github.com/rustyeddy/autotrader/journal"
)

var rootCmd = &cobra.Command{
	Use:   "autotrader",
	Short: "Automated gold and FX trading bot",
	Long: `Autotrader runs a risk-gated trading loop against a simulated MT5-style
terminal.

It provides tools for:
  - Running the live loop with hot-reloaded configuration
  - Backtesting strategies on historical or synthetic M1 candles
  - Querying the trade journal
  - Inspecting trading sessions and Telegram delivery`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFiles...); err != nil {
			return err
		}
		l, err := logging.New(logLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	logLevel string
	envFiles []string
	logger   = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")
}

// loadConfig reads path, or returns the defaults with environment
// credentials applied when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		config.ApplyEnv(cfg)
		return cfg, nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	var (
		j   journal.Journal
		err error
	)
	switch cfg.Type {
	case "none":
		return journal.Nop{}, nil
	case "csv":
		j, err = journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	default:
		j, err = journal.NewSQLite(cfg.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	return j, nil
}
