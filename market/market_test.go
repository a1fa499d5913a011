package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"EURUSD", "EURUSD", true},
		{"eur/usd", "EURUSD", true},
		{"GOLD", "XAUUSD", true},
		{"XAU/USD", "XAUUSD", true},
		{"NOPE", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := Lookup(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Name)
		})
	}
}

func TestInstrumentMeta_Pips(t *testing.T) {
	t.Parallel()

	eu := Instruments["EURUSD"]
	assert.InDelta(t, 0.0001, eu.PipSize(), 1e-12)
	assert.InDelta(t, 10.0, eu.PipValue(1), 1e-9)

	uj := Instruments["USDJPY"]
	assert.True(t, uj.IsJPY())
	assert.InDelta(t, 0.01, uj.PipSize(), 1e-12)
	assert.InDelta(t, 1000.0, uj.PipValue(1), 1e-9)

	xau := Instruments["XAUUSD"]
	assert.True(t, xau.IsGold())
	assert.InDelta(t, 0.1, xau.PipSize(), 1e-12)
	assert.Equal(t, 2650.46, xau.RoundPrice(2650.4561))
	assert.Equal(t, 1.08457, eu.RoundPrice(1.084567))
}

func TestSide(t *testing.T) {
	t.Parallel()

	s, err := ParseSide("BUY")
	require.NoError(t, err)
	assert.Equal(t, Buy, s)
	assert.Equal(t, "buy", s.String())
	assert.Equal(t, 1.0, s.Sign())
	assert.Equal(t, -1.0, Sell.Sign())

	_, err = ParseSide("hold")
	assert.Error(t, err)
}

func TestTickStore(t *testing.T) {
	t.Parallel()

	ts := NewTickStore()
	_, err := ts.Get("EURUSD")
	assert.ErrorIs(t, err, ErrNoTick)

	ts.Set(Tick{Symbol: "EURUSD", Bid: 1.0845, Ask: 1.0847})
	tk, err := ts.Get("EURUSD")
	require.NoError(t, err)
	assert.InDelta(t, 1.0846, tk.Mid(), 1e-9)
	assert.InDelta(t, 2.0, tk.SpreadPoints(0.0001), 1e-6)
	assert.Equal(t, 0.0, tk.SpreadPoints(0))
}

func TestResampleH1(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 9, 58, 0, 0, time.UTC)
	var m1 []Candle
	for i := 0; i < 4; i++ {
		p := 1.0 + float64(i)
		m1 = append(m1, Candle{
			Time: start.Add(time.Duration(i) * time.Minute),
			Open: p, High: p + 0.5, Low: p - 0.5, Close: p + 0.1, Volume: 10,
		})
	}

	h1, err := Resample(m1, H1)
	require.NoError(t, err)
	require.Len(t, h1, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), h1[0].Time)
	assert.Equal(t, 1.0, h1[0].Open)
	assert.Equal(t, 2.5, h1[0].High)
	assert.Equal(t, 0.5, h1[0].Low)
	assert.Equal(t, 2.1, h1[0].Close)
	assert.Equal(t, 20.0, h1[0].Volume)

	assert.Equal(t, 3.0, h1[1].Open)
	assert.Equal(t, 4.1, h1[1].Close)

	_, err = Resample(m1, Timeframe("W9"))
	assert.Error(t, err)
}

func TestQuoteToAccountRate(t *testing.T) {
	t.Parallel()

	r, err := QuoteToAccountRate(Instruments["EURUSD"], "USD", 1.1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	r, err = QuoteToAccountRate(Instruments["USDJPY"], "USD", 150)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/150, r, 1e-12)

	_, err = QuoteToAccountRate(Instruments["USDJPY"], "USD", 0)
	assert.Error(t, err)

	_, err = QuoteToAccountRate(Instruments["EURJPY"], "USD", 160)
	assert.Error(t, err)
}

func TestSeriesHelpers(t *testing.T) {
	t.Parallel()

	cs := []Candle{{Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 7}}
	assert.Equal(t, []float64{2}, Closes(cs))
	assert.Equal(t, []float64{3}, Highs(cs))
	assert.Equal(t, []float64{0.5}, Lows(cs))
	assert.Equal(t, []float64{7}, Volumes(cs))
}
