package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	t.Parallel()

	closes := []float64{102, 105, 106, 108, 110, 111, 113, 114, 116, 118}
	ma, err := SMA(closes, 5)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ma[3]))
	// Last 5 closes: 111,113,114,116,118 => 572/5 = 114.4
	assert.InDelta(t, 114.4, Last(ma), 0.001)

	_, err = SMA(closes, 0)
	assert.Error(t, err)
	_, err = SMA(closes[:3], 5)
	assert.EqualError(t, err, "not enough candles: need 5, got 3")
}

func TestEMA_SpanWeighting(t *testing.T) {
	t.Parallel()

	ema, err := EMA([]float64{1, 2, 3}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ema[0], 1e-9)
	assert.InDelta(t, 5.0/3.0, ema[1], 1e-9)
	assert.InDelta(t, 4.25/1.75, ema[2], 1e-9)
}

func TestRSI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prices []float64
		period int
		want   []float64
	}{
		{"alternating", []float64{1, 2, 1, 2, 1}, 2, []float64{math.NaN(), 100, 50, 50, 50}},
		{"only gains", ramp(16, 1, 1), 14, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi, err := RSI(tt.prices, tt.period)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Equal(t, 100.0, Last(rsi))
				return
			}
			for i, w := range tt.want {
				if math.IsNaN(w) {
					assert.True(t, math.IsNaN(rsi[i]))
					continue
				}
				assert.InDelta(t, w, rsi[i], 1e-9, "index %d", i)
			}
		})
	}

	flat, err := RSI([]float64{5, 5, 5, 5}, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(Last(flat)))
}

func TestMACD(t *testing.T) {
	t.Parallel()

	up := ramp(60, 100, 1)
	m, err := MACD(up, 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, Last(m.MACD), 0.0)
	assert.InDelta(t, Last(m.MACD)-Last(m.Signal), Last(m.Histogram), 1e-12)

	_, err = MACD(up[:10], 12, 26, 9)
	assert.Error(t, err)
	_, err = MACD(up, 0, 26, 9)
	assert.Error(t, err)
}

func TestATR(t *testing.T) {
	t.Parallel()

	atr, err := ATR([]float64{10, 11, 12}, []float64{8, 9, 10}, []float64{9, 10, 11}, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(atr[0]))
	assert.InDelta(t, 2.0, atr[1], 1e-9)
	assert.InDelta(t, 2.0, atr[2], 1e-9)

	_, err = TrueRange([]float64{1}, []float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestBollinger(t *testing.T) {
	t.Parallel()

	prices := []float64{1, 2, 3, 4, 5}
	b, err := Bollinger(prices, 5, 2)
	require.NoError(t, err)

	std := math.Sqrt(2.5)
	assert.InDelta(t, 3.0, Last(b.Middle), 1e-9)
	assert.InDelta(t, 3+2*std, Last(b.Upper), 1e-9)
	assert.InDelta(t, 3-2*std, Last(b.Lower), 1e-9)

	pos := b.Position(prices)
	assert.InDelta(t, (5-(3-2*std))/(4*std), Last(pos), 1e-9)
	assert.True(t, math.IsNaN(pos[0]))
}

func TestZScore(t *testing.T) {
	t.Parallel()

	z, err := ZScore([]float64{9, 1, 2, 3}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, z, 1e-9)

	z, err = ZScore(ramp(20, 5, 0), 20)
	require.NoError(t, err)
	assert.Equal(t, 0.0, z)

	_, err = ZScore([]float64{1}, 20)
	assert.Error(t, err)
}

func TestMomentumROCChange(t *testing.T) {
	t.Parallel()

	m, err := Momentum([]float64{100, 110}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, Last(m), 1e-9)

	r, err := ROC([]float64{100, 105, 110}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, Last(r), 1e-9)

	assert.InDelta(t, 0.02, Change([]float64{100, 101, 102}, 2), 1e-12)
	assert.True(t, math.IsNaN(Change([]float64{1}, 5)))
}

func TestPivotPoints(t *testing.T) {
	t.Parallel()

	p := PivotPoints(110, 90, 100)
	assert.Equal(t, Pivots{P: 100, R1: 110, S1: 90, R2: 120, S2: 80, R3: 130, S3: 70}, p)
}

func TestTrend(t *testing.T) {
	t.Parallel()

	d, err := Trend(ramp(60, 1, 1), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, Uptrend, d)

	d, err = Trend(ramp(60, 100, -1), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, Downtrend, d)
	assert.Equal(t, "Downtrend", d.String())

	_, err = Trend(ramp(60, 1, 1), 50, 20)
	assert.Error(t, err)
}

func TestPrev(t *testing.T) {
	t.Parallel()

	s := []float64{1, 2, 3}
	assert.Equal(t, 3.0, Prev(s, 0))
	assert.Equal(t, 2.0, Prev(s, 1))
	assert.True(t, math.IsNaN(Prev(s, 5)))
	assert.True(t, math.IsNaN(Last(nil)))
}
