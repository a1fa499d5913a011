package backtest

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustyeddy/autotrader/bot"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/sim"
)

// Tuesday morning inside the London session.
var start = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

type sliceFeed struct {
	bars   []Bar
	i      int
	closed bool
}

func (f *sliceFeed) Next() (Bar, bool, error) {
	if f.i >= len(f.bars) {
		return Bar{}, false, nil
	}
	f.i++
	return f.bars[f.i-1], true, nil
}

func (f *sliceFeed) Close() error {
	f.closed = true
	return nil
}

func newRunner(t *testing.T, feed CandleFeed, mutate func(*config.Config)) *Runner {
	t.Helper()

	cfg := config.Default()
	cfg.AI.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	clock := NewClock(start)
	log := zaptest.NewLogger(t)

	s := sim.NewEngine(sim.Config{Login: 1001, Server: "Sim-Backtest", Currency: "USD", Balance: 10000, Leverage: 100}, nil, log,
		sim.WithClock(clock.Now), sim.WithRand(rand.New(rand.NewPCG(1, 2))))
	b := bot.New(config.NewStore(cfg, ""), s, log, bot.WithClock(clock.Now))
	s.SetCloseListener(b)

	return &Runner{Engine: s, Bot: b, Feed: feed, Clock: clock}
}

func TestRunnerRequiresParts(t *testing.T) {
	t.Parallel()

	full := newRunner(t, &sliceFeed{}, nil)
	tests := []struct {
		name string
		mut  func(r *Runner)
		want string
	}{
		{"engine", func(r *Runner) { r.Engine = nil }, "Engine"},
		{"bot", func(r *Runner) { r.Bot = nil }, "Bot"},
		{"feed", func(r *Runner) { r.Feed = nil }, "Feed"},
		{"clock", func(r *Runner) { r.Clock = nil }, "Clock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := *full
			tt.mut(&r)
			_, err := r.Run(context.Background())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRunnerRandomWalk(t *testing.T) {
	t.Parallel()

	r := newRunner(t, NewRandomWalkFeed("XAUUSD", start, 2000, 400, 7), nil)
	r.Options = Options{Warmup: 200, CloseEnd: true}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 400, res.Bars)
	assert.Equal(t, "XAUUSD", res.Symbol)
	assert.Equal(t, start, res.Start)
	assert.Equal(t, start.Add(399*time.Minute), res.End)
	assert.Equal(t, 10000.0, res.StartBalance)
	assert.Equal(t, r.Bot.RunID(), res.RunID)
	assert.False(t, res.EmergencyStop)

	open, err := r.Engine.Positions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Equal(t, res.Balance, res.Equity)
	assert.Equal(t, len(r.Engine.Closed()), res.Trades)
	assert.Equal(t, res.Trades, res.Wins+res.Losses)
	assert.GreaterOrEqual(t, res.MaxDrawdownPct, 0.0)
	for _, cp := range r.Engine.Closed() {
		assert.NotEmpty(t, cp.Reason)
	}

	var buf bytes.Buffer
	res.Print(&buf)
	assert.Contains(t, buf.String(), "Bars:          400")

	rep := res.Report("Scalping", "random-walk")
	assert.Equal(t, res.Balance-res.StartBalance, rep.NetPL())
}

func TestRunnerStopsOnEmergency(t *testing.T) {
	t.Parallel()

	history := market.RandomWalk(rand.New(rand.NewPCG(3, 4)), start.Add(-250*time.Minute), 250, 2000, 0.0005)
	last := history[len(history)-1].Close
	crash := Bar{Symbol: "XAUUSD", Candle: market.Candle{
		Time: start, Open: last, High: last, Low: last - 50, Close: last - 40, Volume: 500,
	}}
	after := Bar{Symbol: "XAUUSD", Candle: market.Candle{
		Time: start.Add(time.Minute), Open: last - 40, High: last - 39, Low: last - 41, Close: last - 40, Volume: 100,
	}}
	feed := &sliceFeed{bars: []Bar{crash, after}}

	r := newRunner(t, feed, func(c *config.Config) { c.Risk.EmergencyStop = 0.01 })
	ctx := context.Background()
	require.NoError(t, r.Engine.Connect(ctx))
	require.NoError(t, r.Engine.LoadCandles("XAUUSD", history))
	r.Bot.Gate().CanTrade(&risk.AccountSnapshot{Balance: 10000, Equity: 10000, FreeMargin: 10000})

	_, err := r.Bot.ManualTrade(ctx, market.Buy, "")
	require.NoError(t, err)

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.True(t, res.EmergencyStop)
	assert.Equal(t, 1, res.Bars, "replay stops at the crash bar")
	assert.True(t, feed.closed)

	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 1, res.Losses)
	assert.Less(t, res.Balance, res.StartBalance)
	assert.Equal(t, sim.ReasonStopLoss, r.Engine.Closed()[0].Reason)
}

func TestRunnerHonoursCancel(t *testing.T) {
	t.Parallel()

	r := newRunner(t, NewRandomWalkFeed("XAUUSD", start, 2000, 10, 1), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
