package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/autotrader/indicators"
	"github.com/rustyeddy/autotrader/market"
)

const intradayConfidence = 0.75

// IntradayProducer trades the prior day's floor pivots: buys near S1 in an
// uptrend, sells near R1 in a downtrend.
type IntradayProducer struct {
	Params Params
}

func (p *IntradayProducer) Name() string { return Intraday.String() }

// priorDay derives yesterday's high/low/close from the last 24 hourly bars,
// excluding the bar in progress.
func priorDay(h1 []market.Candle) (high, low, close float64) {
	window := h1
	close = h1[0].Close
	if len(h1) > 24 {
		window = h1[len(h1)-24 : len(h1)-1]
		close = h1[len(h1)-24].Close
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, c := range window {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}
	return high, low, close
}

func (p *IntradayProducer) Evaluate(s Snapshot) (Signal, bool) {
	if len(s.H1) < 50 || len(s.M1) < 20 {
		return Signal{}, false
	}

	piv := indicators.PivotPoints(priorDay(s.H1))

	closes := market.Closes(s.M1)
	ema, err := indicators.EMA(closes, 20)
	if err != nil {
		return Signal{}, false
	}
	price := indicators.Last(closes)
	if price <= 0 {
		return Signal{}, false
	}
	up := price > indicators.Last(ema)

	var sig Signal
	switch {
	case up && math.Abs(price-piv.S1)/price < p.Params.PivotProximity:
		sig = newSignal(s, market.Buy, p.Name(), intradayConfidence, price,
			fmt.Sprintf("Uptrend + near support level (S1: %.5f)", piv.S1))
	case !up && math.Abs(price-piv.R1)/price < p.Params.PivotProximity:
		sig = newSignal(s, market.Sell, p.Name(), intradayConfidence, price,
			fmt.Sprintf("Downtrend + near resistance level (R1: %.5f)", piv.R1))
	default:
		return Signal{}, false
	}
	sig.Meta = map[string]float64{"pivot": piv.P, "r1": piv.R1, "s1": piv.S1}
	return sig, true
}
