// Package ai implements the classifier-ensemble signal producer: a feature
// builder over OHLCV candles, three binary classifiers (logistic regression,
// random forest, gradient-boosted trees) and a confidence-weighted vote.
package ai

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/autotrader/indicators"
	"github.com/rustyeddy/autotrader/market"
)

// FeatureNames lists the model inputs in column order.
var FeatureNames = []string{
	"returns", "log_returns",
	"price_to_sma_5", "price_to_sma_10", "price_to_sma_20", "price_to_sma_50",
	"price_to_ema_12", "price_to_ema_26", "price_to_ema_50",
	"rsi", "rsi_oversold", "rsi_overbought",
	"macd", "macd_signal", "macd_histogram",
	"bb_position", "atr_normalized",
	"volume_ratio", "high_low_ratio", "body_size", "upper_shadow", "lower_shadow",
	"momentum_3", "momentum_5", "momentum_10",
	"volatility_5", "volatility_10", "volatility_20",
	"distance_to_high", "distance_to_low",
	"price_trend_5", "price_trend_10", "ema_trend",
}

// Features is a matrix of complete feature rows. Index[i] is the candle
// position that row i was computed at.
type Features struct {
	Rows  [][]float64
	Index []int
}

func (f Features) Len() int { return len(f.Rows) }

// Last returns the most recent row.
func (f Features) Last() []float64 {
	if len(f.Rows) == 0 {
		return nil
	}
	return f.Rows[len(f.Rows)-1]
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

func flag(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func shifted(xs []float64, i, n int) float64 {
	if i-n < 0 {
		return math.NaN()
	}
	return xs[i-n]
}

func window(xs []float64, i, n int) []float64 {
	if i+1 < n {
		return nil
	}
	return xs[i-n+1 : i+1]
}

func rollingMax(xs []float64, i, n int) float64 {
	w := window(xs, i, n)
	if w == nil {
		return math.NaN()
	}
	return floats.Max(w)
}

func rollingMin(xs []float64, i, n int) float64 {
	w := window(xs, i, n)
	if w == nil {
		return math.NaN()
	}
	return floats.Min(w)
}

// rollingStdAt is the sample deviation of xs[i-n+1..i]; NaN if any input is NaN.
func rollingStdAt(xs []float64, i, n int) float64 {
	w := window(xs, i, n)
	if w == nil || n < 2 || floats.HasNaN(w) {
		return math.NaN()
	}
	return stat.StdDev(w, nil)
}

// BuildFeatures computes the feature matrix. Rows with any NaN or infinite
// value are dropped.
func BuildFeatures(cs []market.Candle) Features {
	n := len(cs)
	if n == 0 {
		return Features{}
	}
	closes := market.Closes(cs)
	highs := market.Highs(cs)
	lows := market.Lows(cs)
	vols := market.Volumes(cs)

	sma := map[int][]float64{}
	for _, p := range []int{5, 10, 20, 50} {
		if s, err := indicators.SMA(closes, p); err == nil {
			sma[p] = s
		}
	}
	ema := map[int][]float64{}
	for _, p := range []int{12, 26, 50} {
		ema[p], _ = indicators.EMA(closes, p)
	}
	rsi, _ := indicators.RSI(closes, 14)
	macd, _ := indicators.MACD(closes, 12, 26, 9)
	bands, _ := indicators.Bollinger(closes, 20, 2)
	atr, _ := indicators.ATR(highs, lows, closes, 14)
	volSMA, _ := indicators.SMA(vols, 20)

	returns := make([]float64, n)
	returns[0] = math.NaN()
	for i := 1; i < n; i++ {
		returns[i] = ratio(closes[i], closes[i-1]) - 1
	}

	at := func(s []float64, i int) float64 {
		if i >= len(s) {
			return math.NaN()
		}
		return s[i]
	}

	var f Features
	for i := 0; i < n; i++ {
		c := cs[i]
		px := c.Close
		bbPos := math.NaN()
		if bands.Upper != nil {
			bbPos = ratio(px-bands.Lower[i], bands.Upper[i]-bands.Lower[i])
		}
		rv := at(rsi, i)
		hiN, loN := rollingMax(highs, i, 20), rollingMin(lows, i, 20)

		row := []float64{
			returns[i],
			math.Log(ratio(px, shifted(closes, i, 1))),
			ratio(px, at(sma[5], i)),
			ratio(px, at(sma[10], i)),
			ratio(px, at(sma[20], i)),
			ratio(px, at(sma[50], i)),
			ratio(px, at(ema[12], i)),
			ratio(px, at(ema[26], i)),
			ratio(px, at(ema[50], i)),
			rv,
			flag(rv < 30),
			flag(rv > 70),
			at(macd.MACD, i), at(macd.Signal, i), at(macd.Histogram, i),
			bbPos,
			ratio(at(atr, i), px),
			ratio(c.Volume, at(volSMA, i)),
			ratio(c.High, c.Low),
			ratio(math.Abs(px-c.Open), px),
			ratio(c.High-math.Max(c.Open, px), px),
			ratio(math.Min(c.Open, px)-c.Low, px),
			ratio(px, shifted(closes, i, 3)) - 1,
			ratio(px, shifted(closes, i, 5)) - 1,
			ratio(px, shifted(closes, i, 10)) - 1,
			rollingStdAt(returns, i, 5),
			rollingStdAt(returns, i, 10),
			rollingStdAt(returns, i, 20),
			ratio(hiN-px, px),
			ratio(px-loN, px),
			flag(px > shifted(closes, i, 5)),
			flag(px > shifted(closes, i, 10)),
			flag(at(ema[12], i) > at(ema[26], i)),
		}
		if !finite(row) {
			continue
		}
		f.Rows = append(f.Rows, row)
		f.Index = append(f.Index, i)
	}
	return f
}

func finite(row []float64) bool {
	if len(row) == 0 {
		return true
	}
	return !floats.HasNaN(row) && !math.IsInf(floats.Max(row), 1) && !math.IsInf(floats.Min(row), -1)
}
