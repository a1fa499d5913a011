// Package indicators provides technical analysis indicators for trading.
//
// Series functions take a price series oldest-first and return a series of
// the same length. Positions before the indicator has warmed up hold NaN, so
// callers index from the end and check with math.IsNaN.
package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

func checkPeriod(n, period, need int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if n < need {
		return fmt.Errorf("not enough candles: need %d, got %d", need, n)
	}
	return nil
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Last returns the final value of a series, NaN when it is empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// Prev returns the value n positions before the end (Prev(s,0) == Last(s)).
func Prev(series []float64, n int) float64 {
	i := len(series) - 1 - n
	if i < 0 || i >= len(series) {
		return math.NaN()
	}
	return series[i]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// sampleStd is the n-1 standard deviation; NaN for fewer than two values.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil)
}

// Mean is the arithmetic mean of xs.
func Mean(xs []float64) float64 { return mean(xs) }

// StdDev is the sample standard deviation of xs.
func StdDev(xs []float64) float64 { return sampleStd(xs) }
