package indicators

// SMA is the rolling simple moving average.
func SMA(prices []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(prices), period, period); err != nil {
		return nil, err
	}

	out := nanSeries(len(prices))
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA is the span-weighted exponential moving average. Every observation
// since the start of the series is weighted by (1-alpha)^age and the weights
// are normalised, so the first value equals the first price and there is no
// warmup gap.
func EMA(prices []float64, span int) ([]float64, error) {
	if err := checkPeriod(len(prices), span, 1); err != nil {
		return nil, err
	}
	return ewm(prices, span), nil
}

func ewm(prices []float64, span int) []float64 {
	alpha := 2.0 / float64(span+1)
	decay := 1 - alpha

	out := make([]float64, len(prices))
	num, den := 0.0, 0.0
	for i, p := range prices {
		num = p + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}
