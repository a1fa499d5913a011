package strategies

import (
	"github.com/rustyeddy/autotrader/indicators"
	"github.com/rustyeddy/autotrader/market"
)

const hftConfidence = 0.7

// HFTProducer trades short momentum bursts confirmed by a volume spike, but
// only while the spread is tight.
type HFTProducer struct {
	Params Params
}

func (p *HFTProducer) Name() string { return HFT.String() }

func (p *HFTProducer) spreadPoints(s Snapshot) float64 {
	if s.Tick.Ask > 0 && s.Tick.Bid > 0 {
		return s.Tick.SpreadPoints(s.Info.Point)
	}
	return float64(s.Info.SpreadPoints)
}

func (p *HFTProducer) Evaluate(s Snapshot) (Signal, bool) {
	if len(s.M1) < 20 {
		return Signal{}, false
	}
	mult := p.Params.SpreadMultiplier
	if s.SpreadMultiplier > 0 {
		mult = s.SpreadMultiplier
	}
	if p.spreadPoints(s) > p.Params.MaxSpreadPoints*mult {
		return Signal{}, false
	}

	closes := market.Closes(s.M1)
	momentum := indicators.Change(closes, 4)

	vols := market.Volumes(s.M1)
	recent := vols[len(vols)-5:]
	avg := indicators.Mean(recent)
	if recent[len(recent)-1] <= avg*p.Params.VolumeSpike {
		return Signal{}, false
	}

	price := indicators.Last(closes)
	var sig Signal
	switch {
	case momentum > p.Params.MomentumThreshold:
		sig = newSignal(s, market.Buy, p.Name(), hftConfidence, price, "Volume spike + positive momentum")
	case momentum < -p.Params.MomentumThreshold:
		sig = newSignal(s, market.Sell, p.Name(), hftConfidence, price, "Volume spike + negative momentum")
	default:
		return Signal{}, false
	}
	sig.Meta = map[string]float64{"momentum": momentum, "volume_ratio": recent[len(recent)-1] / avg}
	return sig, true
}
