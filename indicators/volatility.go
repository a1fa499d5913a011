package indicators

import (
	"fmt"
	"math"
)

// TrueRange returns per-bar true range. The first bar has no previous close
// and uses high-low.
func TrueRange(high, low, close []float64) ([]float64, error) {
	if len(high) != len(low) || len(low) != len(close) {
		return nil, fmt.Errorf("series length mismatch: %d/%d/%d", len(high), len(low), len(close))
	}
	tr := make([]float64, len(high))
	for i := range high {
		tr[i] = high[i] - low[i]
		if i == 0 {
			continue
		}
		pc := close[i-1]
		tr[i] = math.Max(tr[i], math.Max(math.Abs(high[i]-pc), math.Abs(low[i]-pc)))
	}
	return tr, nil
}

// ATR is the rolling mean of true range.
func ATR(high, low, close []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(close), period, period+1); err != nil {
		return nil, err
	}
	tr, err := TrueRange(high, low, close)
	if err != nil {
		return nil, err
	}
	return SMA(tr, period)
}

// RollingStd is the sample standard deviation over a trailing window.
func RollingStd(prices []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(prices), period, period); err != nil {
		return nil, err
	}
	out := nanSeries(len(prices))
	for i := period - 1; i < len(prices); i++ {
		out[i] = sampleStd(prices[i-period+1 : i+1])
	}
	return out, nil
}

type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger returns an SMA middle band with k sample standard deviations
// either side.
func Bollinger(prices []float64, period int, k float64) (Bands, error) {
	mid, err := SMA(prices, period)
	if err != nil {
		return Bands{}, err
	}
	std, err := RollingStd(prices, period)
	if err != nil {
		return Bands{}, err
	}

	b := Bands{
		Upper:  nanSeries(len(prices)),
		Middle: mid,
		Lower:  nanSeries(len(prices)),
	}
	for i := range prices {
		b.Upper[i] = mid[i] + k*std[i]
		b.Lower[i] = mid[i] - k*std[i]
	}
	return b, nil
}

// Position places price inside the bands: 0 at the lower band, 1 at the upper.
func (b Bands) Position(prices []float64) []float64 {
	out := nanSeries(len(prices))
	for i := range prices {
		w := b.Upper[i] - b.Lower[i]
		if math.IsNaN(w) || w == 0 {
			continue
		}
		out[i] = (prices[i] - b.Lower[i]) / w
	}
	return out
}

// ZScore of the last value against the trailing window, including itself.
// A window with zero deviation scores 0.
func ZScore(prices []float64, window int) (float64, error) {
	if err := checkPeriod(len(prices), window, max(window, 2)); err != nil {
		return 0, err
	}
	w := prices[len(prices)-window:]
	std := sampleStd(w)
	if std == 0 || math.IsNaN(std) {
		return 0, nil
	}
	return (w[len(w)-1] - mean(w)) / std, nil
}
