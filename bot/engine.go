// Package bot runs the trading loop: it gates on session and risk state,
// collects strategy and classifier signals, sizes and executes them, and
// keeps trailing stops and the daily tally current.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/internal/metrics"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/notify"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/session"
	"github.com/rustyeddy/autotrader/sim"
	"github.com/rustyeddy/autotrader/strategies"
)

const (
	// Cooldown is the minimum gap between two trades on one symbol.
	Cooldown = 60 * time.Second

	barsM1 = 200
	barsH1 = 100
)

// Classifier is an optional second signal source fed the M1 history.
type Classifier interface {
	SetThreshold(t float64) error
	Generate(symbol string, candles []market.Candle) (strategies.Signal, bool)
}

// Notifier is the outbound alert channel. *notify.Service satisfies it,
// including a nil one.
type Notifier interface {
	Trade(t notify.TradeInfo) bool
	Closed(c notify.CloseInfo) bool
	Error(kind, msg string) bool
	DailySummary(sum risk.DailySummary) bool
	Connection(status, details string) bool
	Custom(title, content string, p notify.Priority) bool
}

var _ Notifier = (*notify.Service)(nil)

type Engine struct {
	store    *config.Store
	broker   broker.Broker
	gate     *risk.Gate
	sizer    *risk.Sizer
	sessions *session.Manager
	ai       Classifier
	exec     *Executor
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
	runID    string

	// tradeMu serialises gate check, sizing and execution against
	// trade-result booking. Never hold it while closing positions.
	tradeMu sync.Mutex

	mu           sync.Mutex
	lastTrade    map[string]time.Time
	closed       []journal.TradeRecord
	emergency    error
	summaryDay   time.Time
	lastSummary  risk.DailySummary
	startBalance float64
	startedAt    time.Time
	aiThreshold  float64
	strategy     activeStrategy

	wake chan struct{}
}

// activeStrategy is the producer picked from trading.strategy on load.
type activeStrategy struct {
	kind     strategies.Kind
	producer strategies.Producer
	err      error
}

type Option func(*Engine)

func WithSessions(m *session.Manager) Option {
	return func(e *Engine) { e.sessions = m }
}

func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.ai = c }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock drives the cool-down, gate days and sessions from now; a
// backtest passes its simulated clock here.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

func New(store *config.Store, b broker.Broker, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:     store,
		broker:    b,
		notifier:  (*notify.Service)(nil),
		now:       time.Now,
		runID:     uuid.NewString(),
		lastTrade: make(map[string]time.Time),
		wake:      make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = log.With(zap.String("run_id", e.runID))
	if e.sessions == nil {
		e.sessions = session.NewManager(e.log, session.WithClock(e.now))
	}
	e.gate = risk.NewGate(store, e.log, risk.WithClock(e.now))
	e.sizer = risk.NewSizer(store, e.log)
	e.exec = NewExecutor(b, store, e.log, e.metrics)
	e.exec.now = e.now
	e.exec.currency = store.Get().Account.Currency
	e.startedAt = e.now()
	e.Reload(store.Get())
	return e
}

// Reload re-resolves the strategy and session switches from cfg. It runs
// once from New and again whenever the configuration file changes.
func (e *Engine) Reload(cfg config.Config) {
	var st activeStrategy
	st.kind, st.err = cfg.Kind()
	if st.err == nil {
		st.producer, st.err = strategies.New(st.kind, strategies.Params{MaxSpreadPoints: cfg.Trading.HFTMaxSpread})
	}
	if st.err != nil {
		e.log.Error("strategy unavailable", zap.String("strategy", cfg.Trading.Strategy), zap.Error(st.err))
	}

	e.mu.Lock()
	e.strategy = st
	e.mu.Unlock()
	e.sessions.Apply(cfg.SessionFlags())
}

func (e *Engine) activeStrategy() activeStrategy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategy
}

func (e *Engine) RunID() string { return e.runID }

func (e *Engine) Gate() *risk.Gate { return e.gate }

func (e *Engine) Executor() *Executor { return e.exec }

func (e *Engine) Sessions() *session.Manager { return e.sessions }

// Run connects, then steps every strategy interval until ctx is cancelled
// (nil) or an emergency stop fires (ErrEmergencyStop).
func (e *Engine) Run(ctx context.Context) error {
	if err := e.connect(ctx); err != nil {
		return err
	}

	interval := e.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	e.log.Info("trading loop started",
		zap.String("symbol", e.store.Get().Trading.Symbol),
		zap.String("strategy", e.store.Get().Trading.Strategy),
		zap.Duration("interval", interval),
	)

	for {
		if err := e.Step(ctx); err != nil {
			return err
		}
		if next := e.interval(); next != interval {
			interval = next
			ticker.Reset(interval)
			e.log.Info("loop interval changed", zap.Duration("interval", interval))
		}

		select {
		case <-ctx.Done():
			e.log.Info("trading loop stopped")
			return nil
		case <-ticker.C:
		case <-e.wake:
		}
	}
}

func (e *Engine) interval() time.Duration {
	st := e.activeStrategy()
	if st.err != nil {
		return strategies.Scalping.Interval()
	}
	return st.kind.Interval()
}

// Step runs one loop iteration. Only an emergency stop is returned; every
// other failure is handled and the iteration skipped.
func (e *Engine) Step(ctx context.Context) error {
	start := time.Now()
	outcome, err := e.step(ctx)
	e.metrics.Step(outcome, time.Since(start).Seconds())
	return e.handle(ctx, err)
}

func (e *Engine) step(ctx context.Context) (string, error) {
	if err := e.pendingEmergency(); err != nil {
		return "emergency", err
	}
	if !e.broker.Connected() {
		return "disconnected", newError(KindConnectivity, "step", broker.ErrNotConnected)
	}

	cfg := e.store.Get()

	snap, err := e.snapshot(ctx)
	if err != nil {
		return "error", err
	}
	e.metrics.Account(snap.Balance, snap.Equity, snap.EffectiveMarginLevel(), snap.OpenPositions)
	e.rollDailySummary(snap)

	if ok, reason := e.shouldTrade(cfg, &snap); !ok {
		e.log.Debug("not trading", zap.String("reason", reason))
		return "skipped", nil
	}

	signals, err := e.collect(ctx, cfg)
	if err != nil {
		return "error", err
	}

	outcome := "idle"
	for _, sig := range signals {
		traded, err := e.processSignal(ctx, cfg, sig)
		if err != nil {
			if k := KindOf(err); k == KindConnectivity || k == KindEmergency {
				return "error", err
			}
			_ = e.handle(ctx, err)
			continue
		}
		if traded {
			outcome = "traded"
		}
	}

	if _, err := e.exec.ManageTrailing(ctx); err != nil {
		return "error", err
	}
	return outcome, nil
}

// handle is the single place failures are resolved. It returns non-nil
// only for an emergency stop.
func (e *Engine) handle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	switch kind := KindOf(err); kind {
	case KindEmergency:
		return e.emergencyStop(ctx, err)
	case KindConnectivity:
		e.log.Warn("terminal unreachable", zap.Error(err))
		if cerr := e.connect(ctx); cerr != nil {
			e.log.Error("reconnect failed", zap.Error(cerr))
		}
		return nil
	case KindBrokerRejected:
		e.log.Warn("order rejected", zap.Error(err))
		e.notifier.Error("Order Rejected", err.Error())
		return nil
	default:
		e.log.Warn("skipped", zap.Stringer("kind", kind), zap.Error(err))
		return nil
	}
}

// connect makes up to MaxReconnectAttempts attempts, ReconnectDelay apart.
func (e *Engine) connect(ctx context.Context) error {
	c := e.store.Get().Connection
	attempts := max(c.MaxReconnectAttempts, 1)

	n := 0
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.Delay()), uint64(attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		n++
		err := e.broker.Connect(ctx)
		if err != nil {
			e.log.Warn("connect attempt failed", zap.Int("attempt", n), zap.Int("max", attempts), zap.Error(err))
		}
		return err
	}, b)
	if err != nil {
		e.metrics.Reconnect("failed")
		e.notifier.Connection("Disconnected", fmt.Sprintf("failed after %d attempts: %v", n, err))
		return newError(KindConnectivity, "connect", err)
	}

	e.metrics.Reconnect("ok")
	e.log.Info("terminal connected", zap.Int("attempts", n))
	e.notifier.Connection("Connected", "")
	return nil
}

func (e *Engine) snapshot(ctx context.Context) (risk.AccountSnapshot, error) {
	snap, _, err := e.accountState(ctx)
	return snap, err
}

func (e *Engine) accountState(ctx context.Context) (risk.AccountSnapshot, []broker.Position, error) {
	acct, err := e.broker.Account(ctx)
	if err != nil {
		return risk.AccountSnapshot{}, nil, brokerError("account", err)
	}
	positions, err := e.broker.Positions(ctx, "")
	if err != nil {
		return risk.AccountSnapshot{}, nil, brokerError("positions", err)
	}

	e.mu.Lock()
	if e.startBalance == 0 {
		e.startBalance = acct.Balance
	}
	e.mu.Unlock()

	return risk.AccountSnapshot{
		Balance:       acct.Balance,
		Equity:        acct.Equity,
		Margin:        acct.Margin,
		FreeMargin:    acct.FreeMargin,
		MarginLevel:   acct.MarginLevel,
		Profit:        acct.Profit,
		OpenPositions: len(positions),
	}, positions, nil
}

func (e *Engine) shouldTrade(cfg config.Config, snap *risk.AccountSnapshot) (bool, string) {
	if !e.sessions.Active() {
		return false, "outside trading sessions"
	}
	if d := e.gate.CanTrade(snap); !d.Allowed {
		e.metrics.Blocked(d.Violations[0].Code)
		return false, d.Reason()
	}
	if cfg.Sessions.AvoidNews && session.NewsBlackout(e.now(), cfg.Sessions.NewsPad()) {
		return false, "high-impact news window"
	}
	if snap.OpenPositions >= cfg.Risk.MaxPositions {
		return false, "maximum positions reached"
	}
	return true, ""
}

// collect fetches market data and gathers the strategy signal and, when
// enabled, the classifier's.
func (e *Engine) collect(ctx context.Context, cfg config.Config) ([]strategies.Signal, error) {
	st := e.activeStrategy()
	if st.err != nil {
		return nil, newError(KindValidation, "strategy", st.err)
	}
	symbol := cfg.Trading.Symbol

	m1, err := e.broker.Candles(ctx, symbol, market.M1, barsM1)
	if err != nil {
		return nil, brokerError("candles", err)
	}
	if len(m1) < barsM1 {
		return nil, newError(KindDataUnavailable, "candles", fmt.Errorf("%d M1 bars for %s, need %d", len(m1), symbol, barsM1))
	}
	var h1 []market.Candle
	if st.kind.NeedsH1() {
		if h1, err = e.broker.Candles(ctx, symbol, market.H1, barsH1); err != nil {
			return nil, brokerError("candles", err)
		}
	}
	meta, err := e.broker.SymbolInfo(ctx, symbol)
	if err != nil {
		return nil, brokerError("symbol", err)
	}
	tick, err := e.broker.Tick(ctx, symbol)
	if err != nil {
		return nil, brokerError("tick", err)
	}

	snap := strategies.Snapshot{
		Symbol:           symbol,
		M1:               m1,
		H1:               h1,
		Tick:             tick,
		Info:             meta,
		Now:              e.now(),
		SpreadMultiplier: e.sessions.SpreadMultiplier(),
	}

	var out []strategies.Signal
	if sig, ok := st.producer.Evaluate(snap); ok {
		out = append(out, sig)
	}
	if cfg.AI.Enabled && e.ai != nil {
		e.syncThreshold(cfg.AI.Confidence)
		if sig, ok := e.ai.Generate(symbol, m1); ok {
			out = append(out, sig)
		}
	}
	for _, sig := range out {
		e.metrics.Signal(sig.Strategy, sig.Side.String())
		e.log.Info("signal",
			zap.String("symbol", sig.Symbol),
			zap.String("side", sig.Side.String()),
			zap.String("strategy", sig.Strategy),
			zap.Float64("confidence", sig.Confidence),
			zap.String("reason", sig.Reason),
		)
	}
	return out, nil
}

func (e *Engine) syncThreshold(t float64) {
	e.mu.Lock()
	same := e.aiThreshold == t
	e.aiThreshold = t
	e.mu.Unlock()
	if same {
		return
	}
	if err := e.ai.SetThreshold(t); err != nil {
		e.log.Warn("ai threshold rejected", zap.Error(err))
	}
}

// processSignal reports whether an order was placed.
func (e *Engine) processSignal(ctx context.Context, cfg config.Config, sig strategies.Signal) (bool, error) {
	if sig.Confidence < cfg.AI.Confidence {
		e.log.Debug("signal below confidence threshold",
			zap.String("strategy", sig.Strategy),
			zap.Float64("confidence", sig.Confidence),
			zap.Float64("threshold", cfg.AI.Confidence),
		)
		return false, nil
	}

	now := e.now()
	if e.coolingDown(sig.Symbol, now) {
		e.log.Debug("symbol cooling down", zap.String("symbol", sig.Symbol))
		return false, nil
	}

	e.tradeMu.Lock()
	defer e.tradeMu.Unlock()

	snap, err := e.snapshot(ctx)
	if err != nil {
		return false, err
	}
	if d := e.gate.CanTrade(&snap); !d.Allowed {
		e.metrics.Blocked(d.Violations[0].Code)
		return false, nil
	}

	intent, err := e.size(ctx, &snap, sig)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.lastTrade[sig.Symbol] = now
	e.mu.Unlock()

	e.announce(intent)
	return true, nil
}

// size picks the lot for sig and executes it. Callers hold tradeMu.
func (e *Engine) size(ctx context.Context, snap *risk.AccountSnapshot, sig strategies.Signal) (OrderIntent, error) {
	meta, err := e.broker.SymbolInfo(ctx, sig.Symbol)
	if err != nil {
		return OrderIntent{}, brokerError("size", err)
	}
	price := sig.Price
	if price <= 0 {
		tick, err := e.broker.Tick(ctx, sig.Symbol)
		if err != nil {
			return OrderIntent{}, brokerError("size", err)
		}
		price = tick.Mid()
	}
	lot := e.sizer.CalculateLotSize(snap, &meta, price)
	return e.exec.Execute(ctx, sig, lot)
}

func (e *Engine) coolingDown(symbol string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastTrade[symbol]
	return ok && now.Sub(last) < Cooldown
}

func (e *Engine) announce(o OrderIntent) {
	e.notifier.Trade(notify.TradeInfo{
		Side:       o.Side.String(),
		Symbol:     o.Symbol,
		Volume:     o.Volume,
		Price:      o.Price,
		Strategy:   o.Strategy,
		Confidence: o.Confidence,
		TP:         o.TP,
		SL:         o.SL,
		Risk:       o.PlannedRisk,
		RR:         o.RR,
	})
}

// OnPositionClosed books a closed position with the risk gate. An
// emergency stop is left pending and the loop woken to act on it.
func (e *Engine) OnPositionClosed(cp sim.ClosedPosition) {
	res := risk.TradeResult{
		Symbol:     cp.Symbol,
		Side:       cp.Side,
		Volume:     cp.Volume,
		EntryPrice: cp.PriceOpen,
		ExitPrice:  cp.ExitPrice,
		Profit:     cp.Profit,
		Time:       cp.CloseTime,
	}

	snap, serr := e.snapshot(context.Background())
	e.tradeMu.Lock()
	var err error
	if serr != nil {
		e.log.Warn("booking trade without account state", zap.Error(serr))
		err = e.gate.RecordTradeResult(res, nil)
	} else {
		err = e.gate.RecordTradeResult(res, &snap)
	}
	e.tradeMu.Unlock()

	e.mu.Lock()
	e.closed = append(e.closed, journal.TradeRecord{
		TradeID:    cp.TradeID,
		Ticket:     cp.Ticket,
		Symbol:     cp.Symbol,
		Side:       cp.Side,
		Volume:     cp.Volume,
		EntryPrice: cp.PriceOpen,
		ExitPrice:  cp.ExitPrice,
		OpenTime:   cp.OpenTime,
		CloseTime:  cp.CloseTime,
		Profit:     cp.Profit,
		Strategy:   strings.TrimPrefix(cp.Comment, commentPrefix),
		Reason:     cp.Reason,
	})
	if errors.Is(err, risk.ErrEmergencyStop) && e.emergency == nil {
		e.emergency = err
	}
	e.mu.Unlock()

	e.metrics.TradeClosed(res.Winning())
	e.notifier.Closed(notify.CloseInfo{
		Ticket: cp.Ticket,
		Symbol: cp.Symbol,
		Side:   cp.Side.String(),
		Volume: cp.Volume,
		Exit:   cp.ExitPrice,
		Profit: cp.Profit,
		Reason: cp.Reason,
	})

	if errors.Is(err, risk.ErrEmergencyStop) {
		select {
		case e.wake <- struct{}{}:
		default:
		}
	}
}

func (e *Engine) pendingEmergency() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emergency == nil {
		return nil
	}
	return newError(KindEmergency, "emergency stop", e.emergency)
}

// emergencyStop closes every bot position even when ctx is already done.
func (e *Engine) emergencyStop(ctx context.Context, cause error) error {
	e.log.Error("emergency stop: closing all positions", zap.Error(cause))
	n, err := e.CloseAll(context.WithoutCancel(ctx))
	if err != nil {
		e.log.Error("emergency close failed", zap.Error(err))
	}
	e.notifier.Custom("🚨 EMERGENCY STOP", fmt.Sprintf("%v\nClosed %d positions. Trading halted.", cause, n), notify.High)

	e.mu.Lock()
	if e.emergency == nil {
		e.emergency = cause
	}
	e.mu.Unlock()

	if KindOf(cause) == KindEmergency && errors.Is(cause, ErrEmergencyStop) {
		return cause
	}
	return newError(KindEmergency, "emergency stop", fmt.Errorf("%w: %v", ErrEmergencyStop, cause))
}

// rollDailySummary sends the previous day's tally once the UTC date
// changes, then refreshes it for today.
func (e *Engine) rollDailySummary(snap risk.AccountSnapshot) {
	day := e.now().UTC().Truncate(24 * time.Hour)

	e.mu.Lock()
	prev, last := e.summaryDay, e.lastSummary
	e.summaryDay = day
	e.mu.Unlock()

	if !prev.IsZero() && day.After(prev) {
		e.log.Info("daily summary",
			zap.Time("date", last.Date),
			zap.Float64("profit", last.DailyProfit),
			zap.Int("trades", last.TotalTrades),
			zap.Float64("win_rate", last.WinRate),
		)
		e.notifier.DailySummary(last)
	}

	sum := e.gate.DailySummary(snap)
	e.mu.Lock()
	e.lastSummary = sum
	e.mu.Unlock()
}
