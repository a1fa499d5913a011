package strategies

import (
	"fmt"

	"github.com/rustyeddy/autotrader/indicators"
	"github.com/rustyeddy/autotrader/market"
)

const meanReversionConfidence = 0.6

// MeanReversionProducer backs the Arbitrage kind: it fades closes that
// stretch more than ZScoreThreshold deviations from the recent mean.
type MeanReversionProducer struct {
	Params Params
}

func (p *MeanReversionProducer) Name() string { return Arbitrage.String() }

func (p *MeanReversionProducer) Evaluate(s Snapshot) (Signal, bool) {
	closes := market.Closes(s.M1)
	z, err := indicators.ZScore(closes, p.Params.MeanReversionPeriod)
	if err != nil {
		return Signal{}, false
	}

	price := indicators.Last(closes)
	reason := fmt.Sprintf("Mean reversion opportunity (z-score: %.2f)", z)

	var sig Signal
	switch {
	case z > p.Params.ZScoreThreshold:
		sig = newSignal(s, market.Sell, p.Name(), meanReversionConfidence, price, reason)
	case z < -p.Params.ZScoreThreshold:
		sig = newSignal(s, market.Buy, p.Name(), meanReversionConfidence, price, reason)
	default:
		return Signal{}, false
	}
	sig.Meta = map[string]float64{"z_score": z}
	return sig, true
}
