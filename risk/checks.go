package risk

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	CodeAccountUnavailable = "ACCOUNT_UNAVAILABLE"
	CodeDailyLoss          = "DAILY_LOSS_LIMIT"
	CodeProfitTarget       = "PROFIT_TARGET_REACHED"
	CodeDrawdown           = "MAX_DRAWDOWN"
	CodeTooManyPositions   = "TOO_MANY_POSITIONS"
	CodeLossStreak         = "LOSS_STREAK"
	CodeMarginLevel        = "MARGIN_LEVEL"
	CodeFreeMargin         = "FREE_MARGIN"

	minMarginLevel   = 200.0
	minFreeMarginPct = 0.1

	nominalRiskPct = 1.0
	minRiskPct     = 0.2
)

// ErrEmergencyStop means the day's loss passed the emergency threshold; the
// caller must close everything and stop trading.
var ErrEmergencyStop = errors.New("emergency stop")

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of CanTrade. Notices are informational and never
// block.
type Decision struct {
	Allowed    bool
	Violations []Violation
	Notices    []Violation
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

func (d *Decision) note(code, msg string) {
	d.Notices = append(d.Notices, Violation{Code: code, Msg: msg})
}

// Reason is the first blocking violation's message.
func (d Decision) Reason() string {
	if len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Msg
}

// Gate owns the daily risk state. All mutation goes through its methods.
type Gate struct {
	mu       sync.Mutex
	settings Settings
	log      *zap.Logger
	now      func() time.Time

	state   DailyState
	history []TradeResult
}

type GateOption func(*Gate)

// WithClock replaces time.Now, e.g. with a backtest clock.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

func NewGate(settings Settings, log *zap.Logger, opts ...GateOption) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gate{settings: settings, log: log, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// rollover resets the tally on the first call of a new UTC day.
func (g *Gate) rollover(acct *AccountSnapshot) {
	today := utcDay(g.now())
	if g.state.Day.Before(today) {
		g.state = DailyState{Day: today}
		if acct != nil {
			g.state.StartBalance = acct.Balance
		}
		g.log.Info("daily risk stats reset", zap.Time("day", today))
	}
	if g.state.StartBalance == 0 && acct != nil {
		g.state.StartBalance = acct.Balance
	}
}

// CanTrade runs the checks in order and stops at the first failure. A nil
// account blocks.
func (g *Gate) CanTrade(acct *AccountSnapshot) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := Decision{Allowed: true}
	g.rollover(acct)

	if acct == nil {
		d.add(CodeAccountUnavailable, "cannot get account info for risk check")
		g.log.Warn("trade blocked", zap.String("code", CodeAccountUnavailable))
		return d
	}

	lim := g.settings.RiskLimits()
	start := g.state.StartBalance

	checks := []func() bool{
		func() bool {
			loss := LossPct(start, acct.Balance)
			if loss > lim.MaxDailyLossPct {
				d.add(CodeDailyLoss, fmt.Sprintf("daily loss limit reached: %.2f%% > %.2f%%", loss, lim.MaxDailyLossPct))
				return false
			}
			return true
		},
		func() bool {
			gain := PctOf(acct.Balance-start, start)
			if start > 0 && lim.DailyProfitTargetPct > 0 && gain >= lim.DailyProfitTargetPct {
				d.note(CodeProfitTarget, fmt.Sprintf("daily profit target reached: %.2f%% >= %.2f%%", gain, lim.DailyProfitTargetPct))
				g.log.Info("daily profit target reached", zap.Float64("profit_pct", gain))
			}
			return true
		},
		func() bool {
			if !lim.AutoStopDrawdown || start <= 0 {
				return true
			}
			dd := DrawdownPct(start, acct.Equity)
			if dd > lim.MaxDrawdownPct {
				d.add(CodeDrawdown, fmt.Sprintf("maximum drawdown exceeded: %.2f%% > %.2f%%", dd, lim.MaxDrawdownPct))
				return false
			}
			return true
		},
		func() bool {
			if acct.OpenPositions >= lim.MaxPositions {
				d.add(CodeTooManyPositions, fmt.Sprintf("maximum positions reached: %d >= %d", acct.OpenPositions, lim.MaxPositions))
				return false
			}
			return true
		},
		func() bool {
			if g.state.ConsecutiveLosses >= lim.MaxLossStreak {
				d.add(CodeLossStreak, fmt.Sprintf("maximum loss streak reached: %d >= %d", g.state.ConsecutiveLosses, lim.MaxLossStreak))
				return false
			}
			return true
		},
		func() bool {
			if ml := acct.EffectiveMarginLevel(); ml < minMarginLevel {
				d.add(CodeMarginLevel, fmt.Sprintf("insufficient margin level: %.1f%% < %.0f%%", ml, minMarginLevel))
				return false
			}
			if floor := acct.Balance * minFreeMarginPct; acct.FreeMargin < floor {
				d.add(CodeFreeMargin, fmt.Sprintf("insufficient free margin: %.2f < %.2f", acct.FreeMargin, floor))
				return false
			}
			return true
		},
	}

	for _, check := range checks {
		if !check() {
			g.log.Warn("trade blocked", zap.String("code", d.Violations[0].Code), zap.String("reason", d.Reason()))
			break
		}
	}
	return d
}

// RecordTradeResult books a closed trade, adapts the risk percent and
// returns ErrEmergencyStop when the day's loss passes the emergency
// threshold.
func (g *Gate) RecordTradeResult(res TradeResult, acct *AccountSnapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollover(acct)
	if res.Time.IsZero() {
		res.Time = g.now()
	}
	g.history = append(g.history, res)

	s := &g.state
	s.TradesToday++
	s.RealizedProfit = s.RealizedProfit.Add(decimal.NewFromFloat(res.Profit))
	if res.Winning() {
		s.WinningTrades++
		s.ConsecutiveLosses = 0
	} else {
		s.LosingTrades++
		s.ConsecutiveLosses++
	}

	result := "LOSS"
	if res.Winning() {
		result = "WIN"
	}
	g.log.Info("trade result",
		zap.String("result", result),
		zap.String("symbol", res.Symbol),
		zap.String("side", res.Side.String()),
		zap.Float64("volume", res.Volume),
		zap.Float64("profit", res.Profit),
		zap.Int("streak", s.ConsecutiveLosses),
	)

	if res.Winning() {
		g.restoreNormalRiskLocked()
	} else {
		g.adjustRiskAfterLossLocked()
	}

	if acct == nil || s.StartBalance <= 0 {
		return nil
	}
	lim := g.settings.RiskLimits()
	loss := LossPct(s.StartBalance, acct.Balance)
	if lim.EmergencyStopPct > 0 && loss > lim.EmergencyStopPct {
		g.log.Error("emergency stop", zap.Float64("loss_pct", loss), zap.Float64("threshold", lim.EmergencyStopPct))
		return fmt.Errorf("%w: loss %.2f%% > %.2f%%", ErrEmergencyStop, loss, lim.EmergencyStopPct)
	}
	return nil
}

// AdjustRiskAfterLoss cuts the risk percent by 20% (floor 0.2%) once two
// or more losses are in a row.
func (g *Gate) AdjustRiskAfterLoss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adjustRiskAfterLossLocked()
}

func (g *Gate) adjustRiskAfterLossLocked() {
	if g.state.ConsecutiveLosses < 2 {
		return
	}
	cur := g.settings.RiskPercent()
	reduced := max(cur*0.8, minRiskPct)
	g.settings.SetRiskPercent(reduced)
	g.log.Warn("risk reduced", zap.Float64("risk_percent", reduced), zap.Int("losses", g.state.ConsecutiveLosses))
}

// RestoreNormalRisk raises the risk percent by 10% toward the 1% nominal.
func (g *Gate) RestoreNormalRisk() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restoreNormalRiskLocked()
}

func (g *Gate) restoreNormalRiskLocked() {
	cur := g.settings.RiskPercent()
	if cur >= nominalRiskPct {
		return
	}
	raised := min(cur*1.1, nominalRiskPct)
	g.settings.SetRiskPercent(raised)
	g.log.Info("risk increased", zap.Float64("risk_percent", raised))
}

// State returns a copy of the current daily tally.
func (g *Gate) State() DailyState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) History() []TradeResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]TradeResult, len(g.history))
	copy(out, g.history)
	return out
}
