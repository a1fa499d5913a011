package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/autotrader/market"
)

// ValidateTrade checks an order against the instrument's volume range and
// step and its minimum stop distance from price.
func ValidateTrade(meta market.InstrumentMeta, lot, price, tp, sl float64) error {
	if lot < meta.VolumeMin || lot > meta.VolumeMax {
		return fmt.Errorf("invalid lot size %.2f (min %.2f, max %.2f)", lot, meta.VolumeMin, meta.VolumeMax)
	}
	if meta.VolumeStep > 0 {
		rem := decimal.NewFromFloat(lot).Round(8).Mod(decimal.NewFromFloat(meta.VolumeStep))
		if !rem.IsZero() {
			return fmt.Errorf("lot size %.4f not aligned with step %.4f", lot, meta.VolumeStep)
		}
	}

	minDist := float64(meta.StopsLevel) * meta.Point
	if tp > 0 && abs(tp-price) < minDist {
		return fmt.Errorf("TP too close to price: %.5f < %.5f", abs(tp-price), minDist)
	}
	if sl > 0 && abs(sl-price) < minDist {
		return fmt.Errorf("SL too close to price: %.5f < %.5f", abs(sl-price), minDist)
	}
	return nil
}
