package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/autotrader/market"
)

// Limits are the account-level circuit breakers. Percentages are whole
// percents (5 means 5%).
type Limits struct {
	MaxDailyLossPct      float64
	DailyProfitTargetPct float64
	MaxDrawdownPct       float64
	AutoStopDrawdown     bool
	MaxPositions         int
	MaxLossStreak        int
	EmergencyStopPct     float64
}

func DefaultLimits() Limits {
	return Limits{
		MaxDailyLossPct:      5,
		DailyProfitTargetPct: 10,
		MaxDrawdownPct:       5,
		AutoStopDrawdown:     true,
		MaxPositions:         10,
		MaxLossStreak:        3,
		EmergencyStopPct:     20,
	}
}

// Settings is the live configuration the gate reads on every decision. The
// gate also writes the adapted risk percent back through it.
type Settings interface {
	RiskLimits() Limits
	RiskPercent() float64
	SetRiskPercent(pct float64)
}

type AccountSnapshot struct {
	Balance       float64
	Equity        float64
	Margin        float64
	FreeMargin    float64
	MarginLevel   float64
	Profit        float64
	OpenPositions int
}

// EffectiveMarginLevel treats an account with no margin in use as
// unconstrained.
func (a AccountSnapshot) EffectiveMarginLevel() float64 {
	if a.Margin <= 0 {
		return 999999
	}
	return a.MarginLevel
}

// DailyState is the per-UTC-day trading tally. WinningTrades+LosingTrades
// always equals TradesToday.
type DailyState struct {
	Day               time.Time
	StartBalance      float64
	TradesToday       int
	WinningTrades     int
	LosingTrades      int
	ConsecutiveLosses int
	RealizedProfit    decimal.Decimal
}

// TradeResult is a closed trade as reported back to the gate.
type TradeResult struct {
	Symbol     string
	Side       market.Side
	Volume     float64
	EntryPrice float64
	ExitPrice  float64
	Profit     float64
	Time       time.Time
}

func (r TradeResult) Winning() bool { return r.Profit > 0 }
