// Package sim is an in-memory trading terminal. It fills market orders on
// the current quote, triggers stops and targets as prices move, and keeps
// balance, equity and margin the way a netting-free MT5 account would.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/pkg/id"
)

const (
	// StopOutLevel is the margin level, in percent, below which the worst
	// position is force-closed.
	StopOutLevel = 50.0

	maxBars = 5000
)

type Config struct {
	Login    int64
	Server   string
	Currency string
	Balance  float64
	Leverage int
}

// CloseListener hears about every position the engine closes. It is called
// after the engine's lock is released, so it may call back into the engine.
type CloseListener interface {
	OnPositionClosed(ClosedPosition)
}

type Engine struct {
	mu   sync.Mutex
	cfg  Config
	acct broker.Account

	ticks     *market.TickStore
	candles   map[string][]market.Candle
	positions map[int64]*position
	closed    []ClosedPosition
	tickets   map[int64]bool

	journal     journal.Journal
	listener    CloseListener
	log         *zap.Logger
	rng         *rand.Rand
	now         func() time.Time
	runID       string
	equityEvery time.Duration
	lastEquity  time.Time

	connected    bool
	failConnects int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithConnectFailures makes the next n Connect calls fail.
func WithConnectFailures(n int) Option {
	return func(e *Engine) { e.failConnects = n }
}

func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithEquityInterval throttles equity journaling; closes always record.
func WithEquityInterval(d time.Duration) Option {
	return func(e *Engine) { e.equityEvery = d }
}

func NewEngine(cfg Config, j journal.Journal, log *zap.Logger, opts ...Option) *Engine {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		cfg: cfg,
		acct: broker.Account{
			Login:      cfg.Login,
			Server:     cfg.Server,
			Currency:   cfg.Currency,
			Leverage:   cfg.Leverage,
			Balance:    cfg.Balance,
			Equity:     cfg.Balance,
			FreeMargin: cfg.Balance,
		},
		ticks:       market.NewTickStore(),
		candles:     make(map[string][]market.Candle),
		positions:   make(map[int64]*position),
		tickets:     make(map[int64]bool),
		journal:     j,
		log:         log,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:         time.Now,
		equityEvery: time.Minute,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) SetCloseListener(l CloseListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

func (e *Engine) SetRunID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runID = id
}

// SetClock swaps the engine clock, e.g. to follow a backtest feed.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *Engine) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failConnects > 0 {
		e.failConnects--
		return fmt.Errorf("connect %s: %w", e.cfg.Server, broker.ErrConnectionRefused)
	}
	e.connected = true
	e.log.Info("terminal connected", zap.Int64("login", e.cfg.Login), zap.String("server", e.cfg.Server))
	return nil
}

func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	return nil
}

func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *Engine) Account(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return broker.Account{}, broker.ErrNotConnected
	}
	return e.acct, nil
}

func canonical(symbol string) (market.InstrumentMeta, error) {
	meta, err := market.Lookup(symbol)
	if err != nil {
		return market.InstrumentMeta{}, fmt.Errorf("%w: %s", broker.ErrUnknownSymbol, symbol)
	}
	return meta, nil
}

func (e *Engine) SymbolInfo(ctx context.Context, symbol string) (market.InstrumentMeta, error) {
	if !e.Connected() {
		return market.InstrumentMeta{}, broker.ErrNotConnected
	}
	return canonical(symbol)
}

func (e *Engine) Tick(ctx context.Context, symbol string) (market.Tick, error) {
	if !e.Connected() {
		return market.Tick{}, broker.ErrNotConnected
	}
	meta, err := canonical(symbol)
	if err != nil {
		return market.Tick{}, err
	}
	t, err := e.ticks.Get(meta.Name)
	if err != nil {
		return market.Tick{}, fmt.Errorf("%w: %s", broker.ErrNoPrice, symbol)
	}
	return t, nil
}

// Candles returns up to count of the most recent bars, resampled from M1.
func (e *Engine) Candles(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error) {
	if !e.Connected() {
		return nil, broker.ErrNotConnected
	}
	meta, err := canonical(symbol)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	bars := slices.Clone(e.candles[meta.Name])
	e.mu.Unlock()

	if tf != market.M1 {
		if bars, err = market.Resample(bars, tf); err != nil {
			return nil, err
		}
	}
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (e *Engine) Positions(ctx context.Context, symbol string) ([]broker.Position, error) {
	if !e.Connected() {
		return nil, broker.ErrNotConnected
	}
	want := ""
	if symbol != "" {
		meta, err := canonical(symbol)
		if err != nil {
			return nil, err
		}
		want = meta.Name
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]broker.Position, 0, len(e.positions))
	for _, p := range e.positions {
		if want == "" || p.Symbol == want {
			out = append(out, p.Position)
		}
	}
	slices.SortFunc(out, func(a, b broker.Position) int {
		if c := a.OpenTime.Compare(b.OpenTime); c != 0 {
			return c
		}
		return int(a.Ticket - b.Ticket)
	})
	return out, nil
}

// Closed returns every position closed so far, oldest first.
func (e *Engine) Closed() []ClosedPosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.closed)
}

func (e *Engine) SendOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return broker.OrderResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return broker.OrderResult{}, broker.ErrNotConnected
	}
	meta, err := canonical(req.Symbol)
	if err != nil {
		return broker.OrderResult{Retcode: broker.RetcodeInvalidRequest, Comment: "unknown symbol"}, nil
	}
	if req.Side != market.Buy && req.Side != market.Sell {
		return broker.OrderResult{Retcode: broker.RetcodeInvalidRequest, Comment: "invalid side"}, nil
	}
	if req.Volume <= 0 || req.Volume < meta.VolumeMin || req.Volume > meta.VolumeMax {
		return broker.OrderResult{Retcode: broker.RetcodeInvalidVolume, Comment: "invalid volume"}, nil
	}

	t, err := e.ticks.Get(meta.Name)
	if err != nil {
		return broker.OrderResult{}, fmt.Errorf("%w: %s", broker.ErrNoPrice, meta.Name)
	}

	price := t.Ask
	if req.Side == market.Sell {
		price = t.Bid
	}
	if req.Price > 0 && req.Deviation > 0 && abs(price-req.Price) > float64(req.Deviation)*meta.Point {
		return broker.OrderResult{Retcode: broker.RetcodeRequote, Price: price, Comment: "requote"}, nil
	}
	if !stopsValid(req.Side, t, req.SL, req.TP) {
		return broker.OrderResult{Retcode: broker.RetcodeInvalidStops, Comment: "invalid stops"}, nil
	}

	rate, err := e.rateLocked(meta, t.Mid())
	if err != nil {
		return broker.OrderResult{}, err
	}
	need := margin(req.Volume, meta.ContractSize, t.Mid(), e.marginRate(meta), rate)
	if need > e.acct.FreeMargin {
		return broker.OrderResult{Retcode: broker.RetcodeNoMoney, Comment: "no money"}, nil
	}

	openTime := e.stamp(t.Time)
	p := &position{
		Position: broker.Position{
			Ticket:       e.newTicketLocked(),
			Symbol:       meta.Name,
			Side:         req.Side,
			Volume:       req.Volume,
			PriceOpen:    price,
			PriceCurrent: price,
			SL:           req.SL,
			TP:           req.TP,
			Magic:        req.Magic,
			Comment:      req.Comment,
			OpenTime:     openTime,
		},
		meta: meta,
	}
	e.positions[p.Ticket] = p
	e.revalueLocked()

	e.log.Info("order filled",
		zap.Int64("ticket", p.Ticket),
		zap.String("symbol", p.Symbol),
		zap.String("side", p.Side.String()),
		zap.Float64("volume", p.Volume),
		zap.Float64("price", price),
		zap.Float64("sl", p.SL),
		zap.Float64("tp", p.TP),
	)
	return broker.OrderResult{
		Retcode: broker.RetcodeDone,
		Ticket:  p.Ticket,
		Volume:  p.Volume,
		Price:   price,
		Comment: "Request executed",
	}, nil
}

func (e *Engine) ModifyPosition(ctx context.Context, ticket int64, sl, tp float64) (broker.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return broker.OrderResult{}, broker.ErrNotConnected
	}
	p, ok := e.positions[ticket]
	if !ok {
		return broker.OrderResult{}, fmt.Errorf("modify %d: %w", ticket, broker.ErrPositionNotFound)
	}
	t, err := e.ticks.Get(p.Symbol)
	if err != nil {
		return broker.OrderResult{}, fmt.Errorf("%w: %s", broker.ErrNoPrice, p.Symbol)
	}
	if !stopsValid(p.Side, t, sl, tp) {
		return broker.OrderResult{Retcode: broker.RetcodeInvalidStops, Ticket: ticket, Comment: "invalid stops"}, nil
	}
	p.SL, p.TP = sl, tp
	return broker.OrderResult{Retcode: broker.RetcodeDone, Ticket: ticket, Volume: p.Volume, Comment: "Request executed"}, nil
}

// ClosePosition closes at the current quote: longs on the bid, shorts on
// the ask.
func (e *Engine) ClosePosition(ctx context.Context, ticket int64) (broker.OrderResult, error) {
	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return broker.OrderResult{}, broker.ErrNotConnected
	}
	p, ok := e.positions[ticket]
	if !ok {
		e.mu.Unlock()
		return broker.OrderResult{}, fmt.Errorf("close %d: %w", ticket, broker.ErrPositionNotFound)
	}
	t, err := e.ticks.Get(p.Symbol)
	if err != nil {
		e.mu.Unlock()
		return broker.OrderResult{}, fmt.Errorf("%w: %s", broker.ErrNoPrice, p.Symbol)
	}

	price := p.mark(t)
	cp := e.closeLocked(p, price, e.stamp(t.Time), ReasonManual)
	closed := append([]ClosedPosition{cp}, e.settleLocked(cp.CloseTime, true)...)
	listener := e.listener
	e.mu.Unlock()

	notify(listener, closed)
	return broker.OrderResult{Retcode: broker.RetcodeDone, Ticket: ticket, Volume: cp.Volume, Price: price, Comment: "Request executed"}, nil
}

// CloseAll closes every open position at current quotes and returns how
// many were closed.
func (e *Engine) CloseAll(ctx context.Context, reason string) (int, error) {
	if reason == "" {
		reason = ReasonManual
	}

	e.mu.Lock()
	open := make([]*position, 0, len(e.positions))
	for _, p := range e.positions {
		open = append(open, p)
	}
	for _, p := range open {
		if _, err := e.ticks.Get(p.Symbol); err != nil {
			e.mu.Unlock()
			return 0, fmt.Errorf("close all: %w: %s", broker.ErrNoPrice, p.Symbol)
		}
	}

	var (
		closed []ClosedPosition
		last   time.Time
	)
	for _, p := range open {
		t, _ := e.ticks.Get(p.Symbol)
		cp := e.closeLocked(p, p.mark(t), e.stamp(t.Time), reason)
		if cp.CloseTime.After(last) {
			last = cp.CloseTime
		}
		closed = append(closed, cp)
	}
	if len(closed) > 0 {
		closed = append(closed, e.settleLocked(last, true)...)
	}
	listener := e.listener
	e.mu.Unlock()

	notify(listener, closed)
	return len(open), nil
}

// UpdateTick publishes a new quote, closes positions whose stop or target
// it crosses, and revalues the account.
func (e *Engine) UpdateTick(t market.Tick) error {
	meta, err := canonical(t.Symbol)
	if err != nil {
		return err
	}
	t.Symbol = meta.Name

	e.mu.Lock()
	e.ticks.Set(t)
	e.updateBarLocked(meta.Name, t.Bid, e.stamp(t.Time))

	var closed []ClosedPosition
	for _, p := range e.sortedLocked(meta.Name) {
		price := p.mark(t)
		reason := ""
		switch {
		case p.hitStopLoss(price):
			reason = ReasonStopLoss
		case p.hitTakeProfit(price):
			reason = ReasonTakeProfit
		}
		if reason != "" {
			closed = append(closed, e.closeLocked(p, price, e.stamp(t.Time), reason))
		}
	}
	closed = append(closed, e.settleLocked(e.stamp(t.Time), len(closed) > 0)...)
	listener := e.listener
	e.mu.Unlock()

	notify(listener, closed)
	return nil
}

func notify(l CloseListener, closed []ClosedPosition) {
	if l == nil {
		return
	}
	for _, cp := range closed {
		l.OnPositionClosed(cp)
	}
}

func (e *Engine) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t
}

func (e *Engine) newTicketLocked() int64 {
	for {
		t := 10_000_000 + e.rng.Int64N(90_000_000)
		if !e.tickets[t] {
			e.tickets[t] = true
			return t
		}
	}
}

func (e *Engine) marginRate(meta market.InstrumentMeta) float64 {
	if e.cfg.Leverage > 0 {
		return 1 / float64(e.cfg.Leverage)
	}
	return meta.MarginRate
}

// rateLocked converts the quote currency to the account currency. Crosses
// go through the account-currency pair when it has a quote.
func (e *Engine) rateLocked(meta market.InstrumentMeta, mid float64) (float64, error) {
	r, err := market.QuoteToAccountRate(meta, e.acct.Currency, mid)
	if err == nil {
		return r, nil
	}
	if t, terr := e.ticks.Get(e.acct.Currency + meta.QuoteCurrency); terr == nil && t.Mid() > 0 {
		return 1 / t.Mid(), nil
	}
	if t, terr := e.ticks.Get(meta.QuoteCurrency + e.acct.Currency); terr == nil {
		return t.Mid(), nil
	}
	return 0, err
}

func (e *Engine) sortedLocked(symbol string) []*position {
	out := make([]*position, 0, len(e.positions))
	for _, p := range e.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *position) int { return int(a.Ticket - b.Ticket) })
	return out
}

func (e *Engine) closeLocked(p *position, price float64, at time.Time, reason string) ClosedPosition {
	rate, err := e.rateLocked(p.meta, price)
	if err != nil {
		e.log.Warn("no conversion rate, booking at parity", zap.String("symbol", p.Symbol), zap.Error(err))
		rate = 1
	}
	pl := profit(p.Side, p.PriceOpen, price, p.Volume, p.meta.ContractSize, rate)

	delete(e.positions, p.Ticket)
	e.acct.Balance += pl

	p.PriceCurrent = price
	p.Profit = pl
	cp := ClosedPosition{Position: p.Position, TradeID: id.NewAt(at), ExitPrice: price, CloseTime: at, Reason: reason}
	e.closed = append(e.closed, cp)

	if err := e.journal.RecordTrade(journal.TradeRecord{
		TradeID:    cp.TradeID,
		Ticket:     p.Ticket,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Volume:     p.Volume,
		EntryPrice: p.PriceOpen,
		ExitPrice:  price,
		OpenTime:   p.OpenTime,
		CloseTime:  at,
		Profit:     pl,
		Strategy:   p.Comment,
		Reason:     reason,
	}); err != nil {
		e.log.Error("journal trade failed", zap.Int64("ticket", p.Ticket), zap.Error(err))
	}

	e.log.Info("position closed",
		zap.Int64("ticket", p.Ticket),
		zap.String("symbol", p.Symbol),
		zap.String("reason", reason),
		zap.Float64("price", price),
		zap.Float64("profit", pl),
	)
	return cp
}

// settleLocked revalues, journals equity and enforces the stop-out level.
// It returns positions closed by the stop-out.
func (e *Engine) settleLocked(at time.Time, force bool) []ClosedPosition {
	e.revalueLocked()
	e.recordEquityLocked(at, force)
	return e.enforceMarginLocked(at)
}

func (e *Engine) revalueLocked() {
	equity := e.acct.Balance
	used := 0.0
	for _, p := range e.positions {
		t, err := e.ticks.Get(p.Symbol)
		if err != nil {
			continue
		}
		rate, err := e.rateLocked(p.meta, t.Mid())
		if err != nil {
			continue
		}
		p.PriceCurrent = p.mark(t)
		p.Profit = profit(p.Side, p.PriceOpen, p.PriceCurrent, p.Volume, p.meta.ContractSize, rate)
		equity += p.Profit
		used += margin(p.Volume, p.meta.ContractSize, t.Mid(), e.marginRate(p.meta), rate)
	}

	e.acct.Equity = equity
	e.acct.Profit = equity - e.acct.Balance
	e.acct.Margin = used
	e.acct.FreeMargin = equity - used
	e.acct.MarginLevel = 0
	if used > 0 {
		e.acct.MarginLevel = equity / used * 100
	}
}

func (e *Engine) recordEquityLocked(at time.Time, force bool) {
	if !force && !e.lastEquity.IsZero() && at.Sub(e.lastEquity) < e.equityEvery {
		return
	}
	e.lastEquity = at
	if err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:        at,
		RunID:       e.runID,
		Balance:     e.acct.Balance,
		Equity:      e.acct.Equity,
		Margin:      e.acct.Margin,
		FreeMargin:  e.acct.FreeMargin,
		MarginLevel: e.acct.MarginLevel,
	}); err != nil {
		e.log.Error("journal equity failed", zap.Error(err))
	}
}

// enforceMarginLocked closes the worst position until the margin level is
// back above StopOutLevel.
func (e *Engine) enforceMarginLocked(at time.Time) []ClosedPosition {
	var out []ClosedPosition
	for e.acct.Margin > 0 && e.acct.MarginLevel < StopOutLevel {
		var worst *position
		for _, p := range e.sortedLocked("") {
			if worst == nil || p.Profit < worst.Profit {
				worst = p
			}
		}
		if worst == nil {
			break
		}
		t, err := e.ticks.Get(worst.Symbol)
		if err != nil {
			break
		}
		e.log.Warn("stop out", zap.Int64("ticket", worst.Ticket), zap.Float64("margin_level", e.acct.MarginLevel))
		out = append(out, e.closeLocked(worst, worst.mark(t), at, ReasonStopOut))
		e.revalueLocked()
	}
	return out
}
