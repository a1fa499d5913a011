// Package backtest replays M1 candles through the sim terminal and the
// trading loop on a simulated clock.
package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/autotrader/market"
)

// Bar is one finished M1 candle of a symbol.
type Bar struct {
	Symbol string
	market.Candle
}

// CandleFeed yields bars in time order and returns ok=false at the end.
type CandleFeed interface {
	Next() (b Bar, ok bool, err error)
	Close() error
}

// CSVCandleFeed reads rows of
//
//	time,symbol,open,high,low,close[,volume]
//
// with RFC3339 times. A header row is allowed; short or blank rows are
// skipped. Bars outside [from, to) are dropped when the bounds are set.
type CSVCandleFeed struct {
	f        *os.File
	r        *csv.Reader
	from, to time.Time
	sawFirst bool
}

func NewCSVCandleFeed(path string, from, to time.Time) (*CSVCandleFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return &CSVCandleFeed{f: f, r: r, from: from, to: to}, nil
}

func (f *CSVCandleFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVCandleFeed) Next() (Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if errors.Is(err, io.EOF) {
			return Bar{}, false, nil
		}
		if err != nil {
			return Bar{}, false, err
		}

		if !f.sawFirst {
			f.sawFirst = true
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, ok, err := parseCandleRow(row)
		if err != nil {
			return Bar{}, false, err
		}
		if !ok || !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func parseCandleRow(row []string) (Bar, bool, error) {
	if len(row) < 6 {
		return Bar{}, false, nil
	}
	ts := strings.TrimSpace(row[0])
	sym := strings.TrimSpace(row[1])
	if ts == "" || sym == "" {
		return Bar{}, false, nil
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Bar{}, false, fmt.Errorf("bad time %q: %w", ts, err)
	}

	names := []string{"open", "high", "low", "close", "volume"}
	vals := make([]float64, 5)
	for i := range vals {
		if 2+i >= len(row) {
			break
		}
		s := strings.TrimSpace(row[2+i])
		if s == "" && i == 4 {
			break
		}
		if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
			return Bar{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[2+i], err)
		}
	}

	return Bar{
		Symbol: sym,
		Candle: market.Candle{
			Time:   t.UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		},
	}, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// walkStep is the largest relative close-to-close move of a synthetic bar.
const walkStep = 0.0005

// RandomWalkFeed generates n seeded M1 bars starting at start.
type RandomWalkFeed struct {
	symbol string
	bars   []market.Candle
	i      int
}

func NewRandomWalkFeed(symbol string, start time.Time, price float64, n int, seed uint64) *RandomWalkFeed {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &RandomWalkFeed{
		symbol: symbol,
		bars:   market.RandomWalk(rng, start.UTC().Truncate(time.Minute), n, price, walkStep),
	}
}

func (f *RandomWalkFeed) Next() (Bar, bool, error) {
	if f.i >= len(f.bars) {
		return Bar{}, false, nil
	}
	b := Bar{Symbol: f.symbol, Candle: f.bars[f.i]}
	f.i++
	return b, true, nil
}

func (f *RandomWalkFeed) Close() error { return nil }
