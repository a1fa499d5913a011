package cmd

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/autotrader/backtest"
	"github.com/rustyeddy/autotrader/bot"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/pkg/id"
	"github.com/rustyeddy/autotrader/sim"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay M1 candles through the trading loop",
	Long: `Backtest replays M1 candles through the simulated terminal and the bot
on a simulated clock. Cool-downs, sessions and risk days follow the bar
times.

Candles come from a CSV file (time,symbol,open,high,low,close[,volume]) or
from a seeded random walk.

Examples:
  autotrader backtest -f autotrader.yaml --csv data/xauusd_m1.csv
  autotrader backtest --bars 5000 --seed 42 --org report.org`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btCSVPath    string
	btFrom       string
	btTo         string
	btBars       int
	btSeed       uint64
	btStart      string
	btPrice      float64
	btWarmup     int
	btCloseEnd   bool
	btOrgPath    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to config file (defaults when empty)")
	backtestCmd.Flags().StringVar(&btCSVPath, "csv", "", "M1 candle CSV to replay")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "first bar time to replay (RFC3339)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "replay bars before this time (RFC3339)")
	backtestCmd.Flags().IntVar(&btBars, "bars", 2000, "random walk: number of bars")
	backtestCmd.Flags().Uint64Var(&btSeed, "seed", 1, "random walk: seed")
	backtestCmd.Flags().StringVar(&btStart, "start", "2026-03-10T07:00:00Z", "random walk: first bar time (RFC3339)")
	backtestCmd.Flags().Float64Var(&btPrice, "price", 2000, "random walk: starting price")
	backtestCmd.Flags().IntVar(&btWarmup, "warmup", 200, "bars applied before the bot starts stepping")
	backtestCmd.Flags().BoolVar(&btCloseEnd, "close-end", true, "close open positions after the last bar")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode report here")
}

func parseTimeFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(btConfigPath)
	if err != nil {
		return err
	}
	// Telegram stays quiet during replays.
	cfg.Telegram.Enabled = false

	var (
		feed    backtest.CandleFeed
		dataset string
	)
	if btCSVPath != "" {
		from, err := parseTimeFlag("from", btFrom)
		if err != nil {
			return err
		}
		to, err := parseTimeFlag("to", btTo)
		if err != nil {
			return err
		}
		if feed, err = backtest.NewCSVCandleFeed(btCSVPath, from, to); err != nil {
			return fmt.Errorf("open candles: %w", err)
		}
		dataset = btCSVPath
	} else {
		start, err := parseTimeFlag("start", btStart)
		if err != nil {
			return err
		}
		feed = backtest.NewRandomWalkFeed(cfg.Trading.Symbol, start, btPrice, btBars, btSeed)
		dataset = fmt.Sprintf("random walk (%d bars, seed %d)", btBars, btSeed)
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	clock := backtest.NewClock(time.Time{})
	runID := id.New()
	terminal := sim.NewEngine(sim.Config{
		Login:    cfg.Account.Login,
		Server:   "Sim-Backtest",
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
		Leverage: cfg.Account.Leverage,
	}, j, logger, sim.WithClock(clock.Now), sim.WithRunID(runID), sim.WithRand(rand.New(rand.NewPCG(btSeed, btSeed>>1))))

	store := config.NewStore(cfg, "")
	b := bot.New(store, terminal, logger, bot.WithClock(clock.Now), bot.WithRunID(runID))
	terminal.SetCloseListener(b)

	r := &backtest.Runner{
		Engine: terminal,
		Bot:    b,
		Feed:   feed,
		Clock:  clock,
		Options: backtest.Options{
			Warmup:   btWarmup,
			CloseEnd: btCloseEnd,
		},
	}
	res, err := r.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	res.Print(cmd.OutOrStdout())

	if btOrgPath != "" {
		rep := res.Report(cfg.Trading.Strategy, dataset)
		rep.RiskPct = cfg.Trading.RiskPercent
		if cfg.Trading.SLUnit == "pips" {
			rep.SLPips = cfg.Trading.SLValue
		}
		if cfg.Trading.TPUnit == "pips" {
			rep.TPPips = cfg.Trading.TPValue
		}
		if err := rep.WriteOrgFile(btOrgPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", btOrgPath)
	}
	return nil
}
