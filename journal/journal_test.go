package journal

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/market"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func sampleTrade(id string, closeAt time.Time, profit float64) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Ticket:     123456,
		Symbol:     "XAUUSD",
		Side:       market.Sell,
		Volume:     0.4,
		EntryPrice: 2031.55,
		ExitPrice:  2029.05,
		OpenTime:   closeAt.Add(-90 * time.Minute),
		CloseTime:  closeAt,
		Profit:     profit,
		Strategy:   "Scalping",
		Reason:     "TakeProfit",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	want := sampleTrade("T123", time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC), 100)
	require.NoError(t, j.RecordTrade(want))

	got, err := j.GetTrade("T123")
	require.NoError(t, err)
	assert.Equal(t, want.TradeID, got.TradeID)
	assert.Equal(t, want.Ticket, got.Ticket)
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, market.Sell, got.Side)
	assert.InDelta(t, want.Volume, got.Volume, 1e-9)
	assert.InDelta(t, want.EntryPrice, got.EntryPrice, 1e-9)
	assert.InDelta(t, want.ExitPrice, got.ExitPrice, 1e-9)
	assert.True(t, got.OpenTime.Equal(want.OpenTime))
	assert.True(t, got.CloseTime.Equal(want.CloseTime))
	assert.InDelta(t, want.Profit, got.Profit, 1e-9)
	assert.Equal(t, want.Strategy, got.Strategy)
	assert.Equal(t, want.Reason, got.Reason)

	_, err = j.GetTrade("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordTradeDuplicateID(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	rec := sampleTrade("DUP", time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC), 1)
	require.NoError(t, j.RecordTrade(rec))
	assert.Error(t, j.RecordTrade(rec))
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	day := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("late", day.Add(20*time.Hour), 5)))
	require.NoError(t, j.RecordTrade(sampleTrade("early", day.Add(2*time.Hour), -3)))
	require.NoError(t, j.RecordTrade(sampleTrade("yesterday", day.Add(-time.Hour), 9)))
	require.NoError(t, j.RecordTrade(sampleTrade("tomorrow", day.Add(24*time.Hour), 9)))

	got, err := j.ListTradesClosedBetween(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].TradeID)
	assert.Equal(t, "late", got[1].TradeID)
}

func TestListEquityBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	t0 := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			Time:        t0.Add(time.Duration(i) * time.Minute),
			RunID:       "run-1",
			Balance:     10000,
			Equity:      10000 + float64(i),
			Margin:      100,
			FreeMargin:  9900 + float64(i),
			MarginLevel: (10000 + float64(i)) / 100 * 100,
		}))
	}

	got, err := j.ListEquityBetween(t0.Add(time.Minute), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-1", got[0].RunID)
	assert.InDelta(t, 10001.0, got[0].Equity, 1e-9)
	assert.True(t, got[1].Time.Equal(t0.Add(2*time.Minute)))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profits []float64
		want    Stats
	}{
		{"empty", nil, Stats{}},
		{"mixed", []float64{30, -10, 20, -10}, Stats{
			Trades: 4, Wins: 2, Losses: 2, NetProfit: 30, GrossProfit: 50, GrossLoss: 20,
			WinRate: 50, ProfitFactor: 2.5, BestTrade: 30, WorstTrade: -10,
		}},
		{"all losses", []float64{-1, -2}, Stats{
			Trades: 2, Losses: 2, NetProfit: -3, GrossLoss: 3, BestTrade: -1, WorstTrade: -2,
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var trades []TradeRecord
			for _, p := range tt.profits {
				trades = append(trades, TradeRecord{Profit: p})
			}
			assert.Equal(t, tt.want, Summarize(trades))
		})
	}

	s := Summarize([]TradeRecord{{Profit: 4}})
	assert.True(t, math.IsInf(s.ProfitFactor, 1))
}

func TestMaxDrawdownPct(t *testing.T) {
	t.Parallel()

	eq := []EquitySnapshot{{Equity: 100}, {Equity: 120}, {Equity: 90}, {Equity: 130}, {Equity: 117}}
	assert.InDelta(t, 25.0, MaxDrawdownPct(eq), 1e-9)
	assert.Equal(t, 0.0, MaxDrawdownPct(nil))
}

func TestCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tp := filepath.Join(dir, "trades.csv")
	ep := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tp, ep)
	require.NoError(t, err)

	closeAt := time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", closeAt, -12.5)))
	require.NoError(t, j.RecordEquity(EquitySnapshot{Time: closeAt, RunID: "r", Balance: 9987.5, Equity: 9987.5}))
	require.NoError(t, j.Close())

	read := func(path string) [][]string {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		return rows
	}

	trades := read(tp)
	require.Len(t, trades, 2)
	assert.Equal(t, TradeHeader, trades[0])
	assert.Equal(t, []string{
		"T1", "123456", "XAUUSD", "sell", "0.400000", "2031.550000", "2029.050000",
		"2026-04-10T14:00:00Z", "2026-04-10T15:30:00Z", "-12.500000", "Scalping", "TakeProfit",
	}, trades[1])

	equity := read(ep)
	require.Len(t, equity, 2)
	assert.Equal(t, EquityHeader, equity[0])
	assert.Equal(t, "9987.500000", equity[1][2])
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	rec := sampleTrade("01HZX4KQ2M9Y", time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC), 100)
	out := FormatTradeOrg(rec)

	assert.Contains(t, out, "** Trade: XAUUSD SELL (01HZX4KQ)")
	assert.Contains(t, out, ":TICKET: 123456")
	assert.Contains(t, out, ":VOLUME: 0.40")
	assert.Contains(t, out, ":CLOSE_TIME: 2026-04-10T15:30:00Z")
	assert.Contains(t, out, ":PROFIT: 100.00")
	assert.Contains(t, out, "*** Review")

	two := FormatTradesOrg([]TradeRecord{rec, rec})
	assert.Equal(t, out+"\n\n"+out, two)
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestReportWriteOrg(t *testing.T) {
	t.Parallel()

	r := Report{
		RunID:        "run-42",
		Symbol:       "XAUUSD",
		Strategy:     "Scalping",
		Start:        time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		StartBalance: 10000,
		EndBalance:   10250,
		MaxDDPct:     1.5,
		Stats:        Summarize([]TradeRecord{{Profit: 300}, {Profit: -50}}),
		Notes:        []string{"quiet week"},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* BACKTEST: Scalping XAUUSD M1")
	assert.Contains(t, out, ":NET_PL:      250.00")
	assert.Contains(t, out, ":RETURN_PCT:  2.50")
	assert.Contains(t, out, ":PROFIT_FAC:  6.00")
	assert.Contains(t, out, "- quiet week")

	path := filepath.Join(t.TempDir(), "report.org")
	require.NoError(t, r.WriteOrgFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestNop(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordTrade(TradeRecord{}))
	assert.NoError(t, j.RecordEquity(EquitySnapshot{}))
	assert.NoError(t, j.Close())
}
