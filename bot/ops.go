package bot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/strategies"
)

const ManualStrategy = "Manual"

var (
	ErrNoTrades      = errors.New("no trades to export")
	ErrNoGoldSymbol  = errors.New("no gold symbol found")
	goldCandidates   = []string{"XAUUSD", "GOLD", "GOLDUSD", "XAU/USD", "Gold"}
	exportCSVHeaders = []string{"time", "ticket", "symbol", "action", "volume", "price", "tp", "sl", "strategy", "confidence"}
)

// ManualTrade places an operator order at full confidence. It skips the
// signal filters and the risk gate but is sized like any other trade. An
// empty symbol means the configured one.
func (e *Engine) ManualTrade(ctx context.Context, side market.Side, symbol string) (OrderIntent, error) {
	if side != market.Buy && side != market.Sell {
		return OrderIntent{}, newError(KindValidation, "manual trade", fmt.Errorf("invalid side %v", side))
	}
	if symbol == "" {
		symbol = e.store.Get().Trading.Symbol
	}
	sig := strategies.Signal{
		Side:       side,
		Symbol:     symbol,
		Strategy:   ManualStrategy,
		Confidence: 1.0,
		Reason:     "Manual trade",
		Time:       e.now(),
	}

	e.tradeMu.Lock()
	defer e.tradeMu.Unlock()

	snap, err := e.snapshot(ctx)
	if err != nil {
		return OrderIntent{}, err
	}
	intent, err := e.size(ctx, &snap, sig)
	if err != nil {
		return OrderIntent{}, err
	}
	e.log.Info("manual trade", zap.String("symbol", symbol), zap.String("side", side.String()), zap.Float64("lot", intent.Volume))
	e.announce(intent)
	return intent, nil
}

// CloseAll closes every position carrying the bot's magic number and
// returns how many closed. Per-position failures are joined.
func (e *Engine) CloseAll(ctx context.Context) (int, error) {
	positions, err := e.broker.Positions(ctx, "")
	if err != nil {
		return 0, brokerError("close all", err)
	}

	var (
		n    int
		errs []error
	)
	for _, p := range positions {
		if p.Magic != Magic {
			continue
		}
		res, err := e.broker.ClosePosition(ctx, p.Ticket)
		if err != nil {
			errs = append(errs, fmt.Errorf("close %d: %w", p.Ticket, err))
			continue
		}
		if !res.Retcode.OK() {
			errs = append(errs, fmt.Errorf("close %d: %s", p.Ticket, res.Retcode))
			continue
		}
		n++
	}
	e.log.Info("closed all positions", zap.Int("closed", n), zap.Int("failed", len(errs)))
	return n, errors.Join(errs...)
}

func (e *Engine) AccountInfo(ctx context.Context) (broker.Account, error) {
	acct, err := e.broker.Account(ctx)
	if err != nil {
		return broker.Account{}, brokerError("account info", err)
	}
	return acct, nil
}

// AutoDetectGoldSymbol returns the first gold alias the terminal knows.
func (e *Engine) AutoDetectGoldSymbol(ctx context.Context) (string, error) {
	for _, s := range goldCandidates {
		if _, err := e.broker.SymbolInfo(ctx, s); err != nil {
			if errors.Is(err, broker.ErrNotConnected) {
				return "", brokerError("detect gold", err)
			}
			continue
		}
		e.log.Info("gold symbol detected", zap.String("symbol", s))
		return s, nil
	}
	return "", ErrNoGoldSymbol
}

// Performance is the session scorecard: orders placed plus the outcome of
// every position closed since start.
type Performance struct {
	StartedAt     time.Time
	Uptime        time.Duration
	OrdersPlaced  int
	ClosedTrades  int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	ProfitFactor  float64
	BestTrade     float64
	WorstTrade    float64
	StartBalance  float64
	Balance       float64
	Equity        float64
	Risk          risk.Metrics
}

// RiskMetrics is the gate's view of the account and the open exposure.
func (e *Engine) RiskMetrics(ctx context.Context) (risk.Metrics, error) {
	snap, positions, err := e.accountState(ctx)
	if err != nil {
		return risk.Metrics{}, err
	}
	open := make([]risk.Exposure, len(positions))
	for i, p := range positions {
		open[i] = risk.Exposure{Volume: p.Volume, PriceOpen: p.PriceOpen}
	}
	return e.gate.Metrics(snap, open), nil
}

func (e *Engine) Performance(ctx context.Context) (Performance, error) {
	rm, err := e.RiskMetrics(ctx)
	if err != nil {
		return Performance{}, err
	}

	e.mu.Lock()
	stats := journal.Summarize(e.closed)
	start, startBal := e.startedAt, e.startBalance
	e.mu.Unlock()
	if startBal == 0 {
		startBal = rm.Balance
	}

	return Performance{
		StartedAt:     start,
		Uptime:        e.now().Sub(start),
		OrdersPlaced:  e.exec.TotalTrades(),
		ClosedTrades:  stats.Trades,
		WinningTrades: stats.Wins,
		LosingTrades:  stats.Losses,
		WinRate:       stats.WinRate,
		TotalProfit:   stats.NetProfit,
		ProfitFactor:  stats.ProfitFactor,
		BestTrade:     stats.BestTrade,
		WorstTrade:    stats.WorstTrade,
		StartBalance:  startBal,
		Balance:       rm.Balance,
		Equity:        rm.Equity,
		Risk:          rm,
	}, nil
}

// ClosedTrades returns the positions closed since start, oldest first.
func (e *Engine) ClosedTrades() []journal.TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]journal.TradeRecord, len(e.closed))
	copy(out, e.closed)
	return out
}

// ExportCSV writes the trade log to dir/trades_<timestamp>.csv and returns
// the file path.
func (e *Engine) ExportCSV(dir string) (string, error) {
	trades := e.exec.Trades()
	if len(trades) == 0 {
		return "", ErrNoTrades
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, "trades_"+e.now().UTC().Format("20060102_150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportCSVHeaders); err != nil {
		return "", err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, t := range trades {
		if err := w.Write([]string{
			t.Time.UTC().Format(time.RFC3339),
			strconv.FormatInt(t.Ticket, 10),
			t.Symbol,
			t.Side.String(),
			ff(t.Volume),
			ff(t.Price),
			ff(t.TP),
			ff(t.SL),
			t.Strategy,
			ff(t.Confidence),
		}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	e.log.Info("trades exported", zap.String("path", path), zap.Int("trades", len(trades)))
	return path, nil
}
