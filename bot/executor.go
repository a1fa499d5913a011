package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/internal/metrics"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/strategies"
)

const (
	// Magic tags every order the bot places; only these positions are
	// trailed or closed by CloseAll.
	Magic     = 234000
	Deviation = 20

	commentPrefix = "Bot_"
)

// ExitSource supplies the live take-profit/stop-loss setup.
type ExitSource interface {
	Exits() config.Exits
}

// OrderIntent is an executed order as kept in the trade log.
type OrderIntent struct {
	Time       time.Time
	Ticket     int64
	Symbol     string
	Side       market.Side
	Volume     float64
	Price      float64
	TP         float64
	SL         float64
	Strategy   string
	Confidence float64

	// PlannedRisk is the account-currency loss at SL; zero without a stop.
	PlannedRisk float64
	RR          float64
}

// Executor turns signals into market orders.
type Executor struct {
	broker  broker.Broker
	exits   ExitSource
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// currency is the account currency for planned risk. Empty means the
	// quote currency.
	currency string

	mu     sync.Mutex
	trades []OrderIntent
}

func NewExecutor(b broker.Broker, exits ExitSource, log *zap.Logger, m *metrics.Metrics) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{broker: b, exits: exits, log: log, metrics: m, now: time.Now}
}

// exitLevel places a target (dir=+1) or stop (dir=-1) value away from
// price on the profitable or losing side of side. Unsupported units and
// non-positive results yield 0, meaning no level.
func exitLevel(meta market.InstrumentMeta, side market.Side, price, value float64, unit risk.Unit, dir float64) float64 {
	if value <= 0 {
		return 0
	}
	sign := side.Sign() * dir

	var level float64
	switch unit {
	case risk.UnitPips:
		level = price + sign*value*meta.PipSize()
	case risk.UnitPrice:
		level = value
	case risk.UnitPercent:
		level = price * (1 + sign*value/100)
	default:
		return 0
	}
	level = meta.RoundPrice(level)
	if level <= 0 {
		return 0
	}
	return level
}

// plannedRisk prices the distance to the stop in the account currency.
func (x *Executor) plannedRisk(meta market.InstrumentMeta, tick market.Tick, lot, price, sl float64) float64 {
	if sl <= 0 {
		return 0
	}
	rate := 1.0
	if x.currency != "" {
		r, err := market.QuoteToAccountRate(meta, x.currency, tick.Mid())
		if err != nil {
			x.log.Debug("planned risk unavailable", zap.String("symbol", meta.Name), zap.Error(err))
			return 0
		}
		rate = r
	}
	return risk.PlannedRisk(lot, meta.ContractSize, price, sl, rate)
}

// ExitPrices computes the take-profit and stop-loss for an entry.
func ExitPrices(meta market.InstrumentMeta, side market.Side, price float64, ex config.Exits) (tp, sl float64) {
	tp = exitLevel(meta, side, price, ex.TPValue, ex.TPUnit, 1)
	sl = exitLevel(meta, side, price, ex.SLValue, ex.SLUnit, -1)
	return tp, sl
}

// Execute sends a market order for sig. A non-Done retcode is returned as
// a KindBrokerRejected error and is not retried.
func (x *Executor) Execute(ctx context.Context, sig strategies.Signal, lot float64) (OrderIntent, error) {
	const op = "execute"

	meta, err := x.broker.SymbolInfo(ctx, sig.Symbol)
	if err != nil {
		return OrderIntent{}, brokerError(op, err)
	}
	tick, err := x.broker.Tick(ctx, sig.Symbol)
	if err != nil {
		return OrderIntent{}, brokerError(op, err)
	}

	price := tick.Ask
	if sig.Side == market.Sell {
		price = tick.Bid
	}
	ex := x.exits.Exits()
	tp, sl := ExitPrices(meta, sig.Side, price, ex)
	if ex.SLValue > 0 && sl == 0 {
		x.log.Warn("stop-loss unit gives no level, order has no stop",
			zap.String("symbol", sig.Symbol), zap.Float64("sl_value", ex.SLValue), zap.String("sl_unit", string(ex.SLUnit)))
	}
	if ex.TPValue > 0 && tp == 0 {
		x.log.Warn("take-profit unit gives no level, order has no target",
			zap.String("symbol", sig.Symbol), zap.Float64("tp_value", ex.TPValue), zap.String("tp_unit", string(ex.TPUnit)))
	}

	if err := risk.ValidateTrade(meta, lot, price, tp, sl); err != nil {
		x.metrics.Order("invalid")
		return OrderIntent{}, newError(KindValidation, op, err)
	}

	res, err := x.broker.SendOrder(ctx, broker.OrderRequest{
		Symbol:    sig.Symbol,
		Side:      sig.Side,
		Volume:    lot,
		Price:     price,
		SL:        sl,
		TP:        tp,
		Deviation: Deviation,
		Magic:     Magic,
		Comment:   commentPrefix + sig.Strategy,
	})
	if err != nil {
		x.metrics.Order("error")
		return OrderIntent{}, brokerError(op, err)
	}
	if !res.Retcode.OK() {
		x.metrics.Order("rejected")
		x.log.Warn("order rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("side", sig.Side.String()),
			zap.Int("retcode", int(res.Retcode)),
			zap.String("comment", res.Comment),
		)
		return OrderIntent{}, newError(KindBrokerRejected, op,
			fmt.Errorf("order failed: %d (%s) %s", int(res.Retcode), res.Retcode, res.Comment))
	}

	intent := OrderIntent{
		Time:        x.now(),
		Ticket:      res.Ticket,
		Symbol:      sig.Symbol,
		Side:        sig.Side,
		Volume:      lot,
		Price:       price,
		TP:          tp,
		SL:          sl,
		Strategy:    sig.Strategy,
		Confidence:  sig.Confidence,
		PlannedRisk: x.plannedRisk(meta, tick, lot, price, sl),
	}
	if tp > 0 && sl > 0 {
		intent.RR = risk.RR(price, sl, tp)
	}
	x.mu.Lock()
	x.trades = append(x.trades, intent)
	x.mu.Unlock()

	x.metrics.Order("done")
	x.log.Info("order executed",
		zap.Int64("ticket", res.Ticket),
		zap.String("symbol", sig.Symbol),
		zap.String("side", sig.Side.String()),
		zap.Float64("lot", lot),
		zap.Float64("price", price),
		zap.Float64("tp", tp),
		zap.Float64("sl", sl),
		zap.Float64("planned_risk", intent.PlannedRisk),
		zap.Float64("rr", intent.RR),
		zap.String("strategy", sig.Strategy),
	)
	return intent, nil
}

// Trades returns the trade log, oldest first.
func (x *Executor) Trades() []OrderIntent {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]OrderIntent, len(x.trades))
	copy(out, x.trades)
	return out
}

func (x *Executor) TotalTrades() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.trades)
}

// ManageTrailing ratchets the stop of every bot position toward price. A
// stop only ever moves in the position's favour. It returns how many
// positions were modified.
func (x *Executor) ManageTrailing(ctx context.Context) (int, error) {
	ex := x.exits.Exits()
	if !ex.Trailing || ex.TrailingDistance <= 0 {
		return 0, nil
	}

	positions, err := x.broker.Positions(ctx, "")
	if err != nil {
		return 0, brokerError("trailing", err)
	}

	moved := 0
	for _, p := range positions {
		if p.Magic != Magic {
			continue
		}
		meta, err := x.broker.SymbolInfo(ctx, p.Symbol)
		if err != nil {
			x.log.Warn("trailing: no symbol info", zap.String("symbol", p.Symbol), zap.Error(err))
			continue
		}
		tick, err := x.broker.Tick(ctx, p.Symbol)
		if err != nil {
			x.log.Warn("trailing: no quote", zap.String("symbol", p.Symbol), zap.Error(err))
			continue
		}

		dist := ex.TrailingDistance * meta.PipSize()
		var newSL float64
		if p.Side == market.Buy {
			newSL = meta.RoundPrice(tick.Bid - dist)
			if p.SL != 0 && newSL <= p.SL {
				continue
			}
		} else {
			newSL = meta.RoundPrice(tick.Ask + dist)
			if p.SL != 0 && newSL >= p.SL {
				continue
			}
		}
		if newSL <= 0 {
			continue
		}

		tp := 0.0
		if p.TP > 0 {
			tp = meta.RoundPrice(p.TP)
		}
		res, err := x.broker.ModifyPosition(ctx, p.Ticket, newSL, tp)
		if err != nil {
			x.log.Warn("trailing: modify failed", zap.Int64("ticket", p.Ticket), zap.Error(err))
			continue
		}
		if !res.Retcode.OK() {
			x.log.Warn("trailing: modify rejected", zap.Int64("ticket", p.Ticket), zap.Stringer("retcode", res.Retcode))
			continue
		}
		moved++
		x.log.Debug("trailing stop moved", zap.Int64("ticket", p.Ticket), zap.Float64("sl", newSL), zap.Float64("old_sl", p.SL))
	}
	return moved, nil
}
