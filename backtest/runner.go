package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rustyeddy/autotrader/bot"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/sim"
)

// Clock is the simulated time the runner advances bar by bar. Build the
// bot with bot.WithClock(clock.Now) so cool-downs, sessions and risk days
// follow the replay.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type Options struct {
	// Warmup bars are applied to the terminal without stepping the bot.
	Warmup int
	// CloseEnd closes every open position after the last bar, with
	// CloseReason ("EndOfBacktest" if empty).
	CloseEnd    bool
	CloseReason string
}

// Runner drives the sim terminal and the bot from a candle feed.
type Runner struct {
	Engine  *sim.Engine
	Bot     *bot.Engine
	Feed    CandleFeed
	Clock   *Clock
	Options Options
}

// Result is a summary of a backtest run.
type Result struct {
	RunID  string
	Symbol string
	Bars   int
	Start  time.Time
	End    time.Time

	StartBalance float64
	Balance      float64
	Equity       float64

	Trades int
	Wins   int
	Losses int
	Stats  journal.Stats

	MaxDrawdownPct float64
	EmergencyStop  bool
}

// Run replays the feed. For each bar it:
//  1. moves the clock to the bar time
//  2. applies the bar to the terminal, filling stops and targets
//  3. steps the bot
//
// An emergency stop ends the replay early and is reported in Result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, errors.New("backtest: Engine is required")
	}
	if r.Bot == nil {
		return Result{}, errors.New("backtest: Bot is required")
	}
	if r.Feed == nil {
		return Result{}, errors.New("backtest: Feed is required")
	}
	if r.Clock == nil {
		return Result{}, errors.New("backtest: Clock is required")
	}
	defer r.Feed.Close()

	r.Engine.SetClock(r.Clock.Now)
	if err := r.Engine.Connect(ctx); err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}
	acct, err := r.Engine.Account(ctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{RunID: r.Bot.RunID(), StartBalance: acct.Balance}
	var equity []journal.EquitySnapshot

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		b, ok, err := r.Feed.Next()
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}

		if res.Start.IsZero() {
			res.Start, res.Symbol = b.Time, b.Symbol
		}
		res.End = b.Time
		res.Bars++

		r.Clock.Set(b.Time)
		if err := r.Engine.ApplyCandle(b.Symbol, b.Candle); err != nil {
			return res, fmt.Errorf("apply %s bar %s: %w", b.Symbol, b.Time.Format(time.RFC3339), err)
		}
		if a, err := r.Engine.Account(ctx); err == nil {
			equity = append(equity, journal.EquitySnapshot{Time: b.Time, Balance: a.Balance, Equity: a.Equity})
		}

		if res.Bars <= r.Options.Warmup {
			continue
		}
		if err := r.Bot.Step(ctx); err != nil {
			if errors.Is(err, bot.ErrEmergencyStop) {
				res.EmergencyStop = true
				break
			}
			return res, err
		}
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = "EndOfBacktest"
		}
		if _, err := r.Engine.CloseAll(context.WithoutCancel(ctx), reason); err != nil {
			return res, err
		}
	}

	if acct, err = r.Engine.Account(ctx); err != nil {
		return res, err
	}
	res.Balance, res.Equity = acct.Balance, acct.Equity

	var closed []journal.TradeRecord
	for _, cp := range r.Engine.Closed() {
		closed = append(closed, journal.TradeRecord{Profit: cp.Profit})
	}
	res.Stats = journal.Summarize(closed)
	res.Trades, res.Wins, res.Losses = res.Stats.Trades, res.Stats.Wins, res.Stats.Losses
	res.MaxDrawdownPct = journal.MaxDrawdownPct(equity)
	return res, nil
}

// Report turns the result into the Org-mode run write-up.
func (r Result) Report(strategy, dataset string) journal.Report {
	return journal.Report{
		RunID:        r.RunID,
		Created:      time.Now(),
		Symbol:       r.Symbol,
		Strategy:     strategy,
		Timeframe:    "M1",
		Dataset:      dataset,
		Start:        r.Start,
		End:          r.End,
		StartBalance: r.StartBalance,
		EndBalance:   r.Balance,
		MaxDDPct:     r.MaxDrawdownPct,
		Stats:        r.Stats,
	}
}

func (r Result) Print(w io.Writer) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.Stats.WinRate)
	if r.Stats.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.Stats.ProfitFactor)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %.2f\n", r.StartBalance)
	fmt.Fprintf(w, "End Balance:   %.2f\n", r.Balance)
	fmt.Fprintf(w, "Equity:        %.2f\n", r.Equity)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.Balance-r.StartBalance)
	if r.MaxDrawdownPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDrawdownPct)
	}
	if r.EmergencyStop {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Stopped early: emergency stop triggered")
	}
	fmt.Fprintln(w)
}
