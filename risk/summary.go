package risk

import "time"

// Exposure is an open position as seen by the risk metrics.
type Exposure struct {
	Volume    float64
	PriceOpen float64
}

type Metrics struct {
	DailyProfitPct    float64
	TradesToday       int
	WinRate           float64
	ConsecutiveLosses int
	CurrentPositions  int
	RiskExposurePct   float64
	MarginLevel       float64
	FreeMargin        float64
	Balance           float64
	Equity            float64
	FloatingPL        float64
	RiskPercent       float64
}

type DailySummary struct {
	Date              time.Time
	StartBalance      float64
	CurrentBalance    float64
	DailyProfit       float64
	DailyProfitPct    float64
	RealizedProfit    float64
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	WinRate           float64
	ConsecutiveLosses int
	CurrentPositions  int
	Equity            float64
	MarginUsed        float64
	MarginFree        float64
}

func winRate(wins, total int) float64 {
	return PctOf(float64(wins), float64(total))
}

// Metrics summarises account and daily risk. Exposure is estimated as 1% of
// each position's notional open price.
func (g *Gate) Metrics(acct AccountSnapshot, open []Exposure) Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover(&acct)

	s := g.state
	total := 0.0
	for _, p := range open {
		total += abs(p.Volume * p.PriceOpen * 0.01)
	}

	return Metrics{
		DailyProfitPct:    PctOf(acct.Balance-s.StartBalance, s.StartBalance),
		TradesToday:       s.TradesToday,
		WinRate:           winRate(s.WinningTrades, s.WinningTrades+s.LosingTrades),
		ConsecutiveLosses: s.ConsecutiveLosses,
		CurrentPositions:  len(open),
		RiskExposurePct:   PctOf(total, acct.Balance),
		MarginLevel:       acct.EffectiveMarginLevel(),
		FreeMargin:        acct.FreeMargin,
		Balance:           acct.Balance,
		Equity:            acct.Equity,
		FloatingPL:        acct.Equity - acct.Balance,
		RiskPercent:       g.settings.RiskPercent(),
	}
}

func (g *Gate) DailySummary(acct AccountSnapshot) DailySummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollover(&acct)

	s := g.state
	return DailySummary{
		Date:              s.Day,
		StartBalance:      s.StartBalance,
		CurrentBalance:    acct.Balance,
		DailyProfit:       acct.Balance - s.StartBalance,
		DailyProfitPct:    PctOf(acct.Balance-s.StartBalance, s.StartBalance),
		RealizedProfit:    s.RealizedProfit.InexactFloat64(),
		TotalTrades:       s.TradesToday,
		WinningTrades:     s.WinningTrades,
		LosingTrades:      s.LosingTrades,
		WinRate:           winRate(s.WinningTrades, s.TradesToday),
		ConsecutiveLosses: s.ConsecutiveLosses,
		CurrentPositions:  acct.OpenPositions,
		Equity:            acct.Equity,
		MarginUsed:        acct.Margin,
		MarginFree:        acct.FreeMargin,
	}
}
