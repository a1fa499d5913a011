package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/ai"
	"github.com/rustyeddy/autotrader/bot"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/internal/metrics"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/notify"
	"github.com/rustyeddy/autotrader/pkg/id"
	"github.com/rustyeddy/autotrader/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop against the simulated terminal",
	Long: `Run connects the bot to the simulated terminal and trades until
interrupted (Ctrl-C) or until the emergency stop fires.

The config file is watched and reloaded on change. Prometheus metrics are
served on /metrics when --metrics-addr is set.

Example:
  autotrader run -f autotrader.yaml --metrics-addr :9090`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runMetricsAddr string
	runSeed        uint64
	runTick        time.Duration
	runHistory     int
	runDetectGold  bool
	runCloseOnExit bool
	runExportDir   string
	runManual      string
	runStatusEvery time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "listen address for /metrics (disabled when empty)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "price generator seed (0 = time based)")
	runCmd.Flags().DurationVar(&runTick, "tick", 500*time.Millisecond, "simulated quote interval")
	runCmd.Flags().IntVar(&runHistory, "history", 500, "M1 bars of seeded history")
	runCmd.Flags().BoolVar(&runDetectGold, "detect-gold", false, "replace the configured symbol with the terminal's gold alias")
	runCmd.Flags().BoolVar(&runCloseOnExit, "close-on-exit", false, "close the bot's positions on shutdown")
	runCmd.Flags().StringVar(&runExportDir, "export-dir", "", "write the trade log as CSV here on shutdown")
	runCmd.Flags().StringVar(&runManual, "manual", "", "place a manual buy or sell on the configured symbol at start")
	runCmd.Flags().DurationVar(&runStatusEvery, "status-every", 0, "log account performance at this interval (0 = off)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}
	store := config.NewStore(cfg, runConfigPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if runMetricsAddr != "" {
		srv := &http.Server{Addr: runMetricsAddr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.WithoutCancel(ctx))
		logger.Info("serving metrics", zap.String("addr", runMetricsAddr))
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	seed := runSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	runID := id.New()
	terminal := sim.NewEngine(sim.Config{
		Login:    cfg.Account.Login,
		Server:   cfg.Account.Server,
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
		Leverage: cfg.Account.Leverage,
	}, j, logger, sim.WithRand(rand.New(rand.NewPCG(seed, seed>>1))), sim.WithRunID(runID))
	if err := terminal.Seed(cfg.Trading.Symbol, runHistory); err != nil {
		return fmt.Errorf("seed %s: %w", cfg.Trading.Symbol, err)
	}

	var sender notify.Sender
	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		sender = notify.NewTelegram(cfg.Telegram.Token)
	}
	svc := notify.NewService(sender, cfg.Telegram.ChatID, logger, notify.WithRoutes(store), notify.WithMetrics(m))
	if err := svc.Start(ctx); err != nil {
		logger.Warn("telegram unavailable", zap.Error(err))
	}
	defer svc.Close()

	b := bot.New(store, terminal, logger,
		bot.WithClassifier(ai.NewGenerator(logger)),
		bot.WithNotifier(svc),
		bot.WithMetrics(m),
		bot.WithRunID(runID),
	)
	terminal.SetCloseListener(b)

	w, err := config.NewWatcher(runConfigPath, store, logger)
	if err != nil {
		return err
	}
	defer w.Close()
	w.OnChange(func(c config.Config) {
		b.Reload(c)
		logger.Info("config reloaded", zap.String("strategy", c.Trading.Strategy), zap.String("symbol", c.Trading.Symbol))
	})
	if err := w.Start(ctx); err != nil {
		return err
	}

	if runDetectGold {
		if err := terminal.Connect(ctx); err != nil {
			return err
		}
		sym, err := b.AutoDetectGoldSymbol(ctx)
		if err != nil {
			return err
		}
		store.Update(func(c *config.Config) { c.Trading.Symbol = sym })
	}

	if runManual != "" {
		side, err := market.ParseSide(runManual)
		if err != nil {
			return fmt.Errorf("--manual: %w", err)
		}
		if err := terminal.Connect(ctx); err != nil {
			return err
		}
		if _, err := b.ManualTrade(ctx, side, ""); err != nil {
			return fmt.Errorf("manual trade: %w", err)
		}
	}
	if runStatusEvery > 0 {
		go logStatus(ctx, b, runStatusEvery)
	}

	go func() {
		if err := terminal.Run(ctx, runTick); err != nil {
			logger.Error("price feed stopped", zap.Error(err))
		}
	}()

	logger.Info("bot started",
		zap.String("run_id", runID),
		zap.String("symbol", store.Get().Trading.Symbol),
		zap.String("strategy", store.Get().Trading.Strategy),
	)
	runErr := b.Run(ctx)

	shutdown := context.WithoutCancel(ctx)
	if runCloseOnExit {
		if n, err := b.CloseAll(shutdown); err != nil {
			logger.Error("close on exit", zap.Int("closed", n), zap.Error(err))
		}
	}
	if runExportDir != "" {
		if path, err := b.ExportCSV(runExportDir); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Trades exported to %s\n", path)
		} else if !errors.Is(err, bot.ErrNoTrades) {
			logger.Error("export trades", zap.Error(err))
		}
	}
	if perf, err := b.Performance(shutdown); err == nil {
		printPerformance(cmd, perf)
	}
	if acct, err := b.AccountInfo(shutdown); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Account:       %d@%s (%s, 1:%d, margin level %.1f%%)\n",
			acct.Login, acct.Server, acct.Currency, acct.Leverage, acct.MarginLevel)
	}
	return runErr
}

func logStatus(ctx context.Context, b *bot.Engine, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p, err := b.Performance(ctx)
			if err != nil {
				logger.Warn("status unavailable", zap.Error(err))
				continue
			}
			logger.Info("status",
				zap.Duration("uptime", p.Uptime),
				zap.Int("orders", p.OrdersPlaced),
				zap.Int("closed", p.ClosedTrades),
				zap.Float64("win_rate", p.WinRate),
				zap.Float64("profit", p.TotalProfit),
				zap.Float64("balance", p.Balance),
				zap.Float64("equity", p.Equity),
				zap.Float64("daily_profit_pct", p.Risk.DailyProfitPct),
				zap.Float64("exposure_pct", p.Risk.RiskExposurePct),
				zap.Float64("margin_level", p.Risk.MarginLevel),
				zap.Int("loss_streak", p.Risk.ConsecutiveLosses),
				zap.Float64("risk_pct", p.Risk.RiskPercent),
			)
		}
	}
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	return mux
}

func printPerformance(cmd *cobra.Command, p bot.Performance) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Session Performance")
	fmt.Fprintln(out, "--------------------------------------------------")
	fmt.Fprintf(out, "Uptime:        %s\n", p.Uptime.Round(time.Second))
	fmt.Fprintf(out, "Orders:        %d\n", p.OrdersPlaced)
	fmt.Fprintf(out, "Closed:        %d (%d won, %d lost)\n", p.ClosedTrades, p.WinningTrades, p.LosingTrades)
	fmt.Fprintf(out, "Win Rate:      %.2f%%\n", p.WinRate)
	fmt.Fprintf(out, "Total P/L:     %.2f\n", p.TotalProfit)
	fmt.Fprintf(out, "Balance:       %.2f (start %.2f)\n", p.Balance, p.StartBalance)
	fmt.Fprintf(out, "Equity:        %.2f\n", p.Equity)
	fmt.Fprintf(out, "Today:         %+.2f%% over %d trades\n", p.Risk.DailyProfitPct, p.Risk.TradesToday)
	fmt.Fprintf(out, "Exposure:      %.2f%% (%d open)\n", p.Risk.RiskExposurePct, p.Risk.CurrentPositions)
	fmt.Fprintf(out, "Risk/trade:    %.2f%% (loss streak %d)\n", p.Risk.RiskPercent, p.Risk.ConsecutiveLosses)
}
