package indicators

import (
	"fmt"
	"math"
)

// RSI uses simple rolling means of gains and losses over period. The first
// bar contributes a zero change. RSI is 100 when there were no losses in the
// window and NaN when price did not move at all.
func RSI(prices []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(prices), period, period+1); err != nil {
		return nil, err
	}

	gains := make([]float64, len(prices))
	losses := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	avgG, _ := SMA(gains, period)
	avgL, _ := SMA(losses, period)

	out := nanSeries(len(prices))
	for i := period - 1; i < len(prices); i++ {
		g, l := avgG[i], avgL[i]
		switch {
		case l == 0 && g == 0:
			// flat window
		case l == 0:
			out[i] = 100
		default:
			rs := g / l
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out, nil
}

type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the fast/slow EMA difference, its signal EMA and histogram.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, error) {
	if err := checkPeriod(len(prices), slow, slow); err != nil {
		return MACDResult{}, err
	}
	if fast <= 0 || signal <= 0 {
		return MACDResult{}, fmt.Errorf("period must be positive, got %d/%d", fast, signal)
	}

	ef := ewm(prices, fast)
	es := ewm(prices, slow)
	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = ef[i] - es[i]
	}
	sig := ewm(line, signal)
	hist := make([]float64, len(prices))
	for i := range prices {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}, nil
}

// Momentum is the percentage change over period bars.
func Momentum(prices []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(prices), period, period+1); err != nil {
		return nil, err
	}
	out := nanSeries(len(prices))
	for i := period; i < len(prices); i++ {
		base := prices[i-period]
		if base == 0 {
			continue
		}
		out[i] = (prices[i]/base - 1) * 100
	}
	return out, nil
}

// ROC is the rate of change over period bars, in percent.
func ROC(prices []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(prices), period, period+1); err != nil {
		return nil, err
	}
	out := nanSeries(len(prices))
	for i := period; i < len(prices); i++ {
		base := prices[i-period]
		if base == 0 {
			continue
		}
		out[i] = (prices[i] - base) / base * 100
	}
	return out, nil
}

// Change is the fractional change between the bar n back and the last bar.
func Change(prices []float64, n int) float64 {
	if n <= 0 || len(prices) <= n {
		return math.NaN()
	}
	base := prices[len(prices)-1-n]
	if base == 0 {
		return math.NaN()
	}
	return (prices[len(prices)-1] - base) / base
}
