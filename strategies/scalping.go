package strategies

import (
	"math"

	"github.com/rustyeddy/autotrader/indicators"
	"github.com/rustyeddy/autotrader/market"
)

const scalpingConfidence = 0.8

// ScalpingProducer buys an oversold market on a fresh EMA20/EMA50 bullish
// cross and sells an overbought one on a bearish cross.
type ScalpingProducer struct {
	Params Params
}

func (p *ScalpingProducer) Name() string { return Scalping.String() }

func (p *ScalpingProducer) Evaluate(s Snapshot) (Signal, bool) {
	if len(s.M1) < 50 {
		return Signal{}, false
	}

	closes := market.Closes(s.M1)
	rsi, err := indicators.RSI(closes, 14)
	if err != nil {
		return Signal{}, false
	}
	fast, _ := indicators.EMA(closes, 20)
	slow, _ := indicators.EMA(closes, 50)

	r := indicators.Last(rsi)
	if math.IsNaN(r) {
		return Signal{}, false
	}
	f0, s0 := indicators.Last(fast), indicators.Last(slow)
	f1, s1 := indicators.Prev(fast, 1), indicators.Prev(slow, 1)
	price := indicators.Last(closes)

	var sig Signal
	switch {
	case r < 30 && f0 > s0 && f1 <= s1:
		sig = newSignal(s, market.Buy, p.Name(), scalpingConfidence, price, "RSI oversold + EMA bullish crossover")
	case r > 70 && f0 < s0 && f1 >= s1:
		sig = newSignal(s, market.Sell, p.Name(), scalpingConfidence, price, "RSI overbought + EMA bearish crossover")
	default:
		return Signal{}, false
	}
	sig.Meta = map[string]float64{"rsi": r, "ema_20": f0, "ema_50": s0}
	return sig, true
}
