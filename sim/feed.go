package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/market"
)

var basePrice = map[string]float64{
	"XAUUSD": 2000,
	"EURUSD": 1.0850,
	"GBPUSD": 1.2700,
	"AUDUSD": 0.6600,
	"USDCAD": 1.3600,
	"USDJPY": 150.00,
	"EURJPY": 162.00,
}

const (
	// seedStep is the largest per-bar close move of seeded history.
	seedStep = 0.01
	// tickStep is the largest per-tick bid move of the live ticker.
	tickStep = 0.001
)

func quote(meta market.InstrumentMeta, bid float64, at time.Time) market.Tick {
	bid = meta.RoundPrice(bid)
	return market.Tick{
		Symbol: meta.Name,
		Time:   at,
		Bid:    bid,
		Ask:    meta.RoundPrice(bid + float64(meta.SpreadPoints)*meta.Point),
	}
}

// Seed fills symbol with n random-walk M1 bars ending at the current minute
// and quotes the last close.
func (e *Engine) Seed(symbol string, n int) error {
	meta, err := canonical(symbol)
	if err != nil {
		return err
	}
	price, ok := basePrice[meta.Name]
	if !ok {
		price = 1
	}

	e.mu.Lock()
	now := e.now().UTC().Truncate(time.Minute)
	bars := market.RandomWalk(e.rng, now.Add(-time.Duration(n-1)*time.Minute), n, price, seedStep)
	e.candles[meta.Name] = bars
	last := now
	if n > 0 {
		price = bars[n-1].Close
		last = bars[n-1].Time
	}
	e.mu.Unlock()

	return e.UpdateTick(quote(meta, price, last))
}

// LoadCandles replaces a symbol's history and quotes its last close.
func (e *Engine) LoadCandles(symbol string, bars []market.Candle) error {
	meta, err := canonical(symbol)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("load %s: no candles", symbol)
	}
	e.mu.Lock()
	e.candles[meta.Name] = append([]market.Candle(nil), bars...)
	e.mu.Unlock()

	last := bars[len(bars)-1]
	return e.UpdateTick(quote(meta, last.Close, last.Time))
}

// ApplyCandle appends a finished M1 bar. Stops and targets inside the bar's
// range fill at their own price before the close is quoted.
func (e *Engine) ApplyCandle(symbol string, c market.Candle) error {
	meta, err := canonical(symbol)
	if err != nil {
		return err
	}
	spread := float64(meta.SpreadPoints) * meta.Point

	e.mu.Lock()
	bars := e.candles[meta.Name]
	if n := len(bars); n > 0 && bars[n-1].Time.Equal(c.Time) {
		bars[n-1] = c
	} else {
		bars = append(bars, c)
	}
	if len(bars) > maxBars {
		bars = bars[len(bars)-maxBars:]
	}
	e.candles[meta.Name] = bars

	var closed []ClosedPosition
	for _, p := range e.sortedLocked(meta.Name) {
		if price, reason, ok := p.exitInBar(c, spread); ok {
			closed = append(closed, e.closeLocked(p, price, c.Time, reason))
		}
	}

	e.ticks.Set(quote(meta, c.Close, c.Time))
	closed = append(closed, e.settleLocked(c.Time, len(closed) > 0)...)
	listener := e.listener
	e.mu.Unlock()

	notify(listener, closed)
	return nil
}

// updateBarLocked folds a quote into the current M1 bar, opening a new bar
// on a new minute.
func (e *Engine) updateBarLocked(symbol string, price float64, at time.Time) {
	minute := at.UTC().Truncate(time.Minute)
	bars := e.candles[symbol]
	n := len(bars)
	switch {
	case n > 0 && bars[n-1].Time.Equal(minute):
		b := &bars[n-1]
		b.High = max(b.High, price)
		b.Low = min(b.Low, price)
		b.Close = price
		b.Volume++
	case n == 0 || bars[n-1].Time.Before(minute):
		bars = append(bars, market.Candle{Time: minute, Open: price, High: price, Low: price, Close: price, Volume: 1})
		if len(bars) > maxBars {
			bars = bars[len(bars)-maxBars:]
		}
	}
	e.candles[symbol] = bars
}

// step moves every quoted symbol by a random fraction of tickStep.
func (e *Engine) step() []market.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := e.now()
	var out []market.Tick
	for name := range e.candles {
		meta, err := canonical(name)
		if err != nil {
			continue
		}
		t, err := e.ticks.Get(name)
		if err != nil {
			continue
		}
		bid := t.Bid * (1 + (e.rng.Float64()*2-1)*tickStep)
		out = append(out, quote(meta, bid, at))
	}
	return out
}

// Run ticks prices every interval until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, t := range e.step() {
				if err := e.UpdateTick(t); err != nil {
					e.log.Warn("price update failed", zap.String("symbol", t.Symbol), zap.Error(err))
				}
			}
		}
	}
}
