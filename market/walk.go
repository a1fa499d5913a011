package market

import (
	"math/rand/v2"
	"time"
)

// RandomWalk generates n M1 candles starting at start. Each close moves a
// uniform fraction in [-step, step] of the previous close; wicks and the
// open stay within half a step. Volumes are uniform in [100, 1000].
func RandomWalk(rng *rand.Rand, start time.Time, n int, price, step float64) []Candle {
	out := make([]Candle, n)
	for i := range out {
		open := price * (1 + (rng.Float64()*2-1)*step/2)
		closeP := price * (1 + (rng.Float64()*2-1)*step)
		hi := max(open, closeP) * (1 + rng.Float64()*step/2)
		lo := min(open, closeP) * (1 - rng.Float64()*step/2)

		out[i] = Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  closeP,
			Volume: float64(100 + rng.IntN(901)),
		}
		price = closeP
	}
	return out
}
