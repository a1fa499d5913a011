package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	TradeHeader  = []string{"trade_id", "ticket", "symbol", "side", "volume", "entry_price", "exit_price", "open_time", "close_time", "profit", "strategy", "reason"}
	EquityHeader = []string{"time", "run_id", "balance", "equity", "margin", "free_margin", "margin_level"}
)

// CSV writes trades and equity to two files, flushing after every row.
type CSV struct {
	mu     sync.Mutex
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSV{trades: csv.NewWriter(tf), equity: csv.NewWriter(ef), tf: tf, ef: ef}
	if err := writeRow(j.trades, TradeHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := writeRow(j.equity, EquityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// TradeRow is the CSV form of a trade.
func TradeRow(t TradeRecord) []string {
	return []string{
		t.TradeID,
		strconv.FormatInt(t.Ticket, 10),
		t.Symbol,
		t.Side.String(),
		f(t.Volume),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.Profit),
		t.Strategy,
		t.Reason,
	}
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := writeRow(j.trades, TradeRow(t)); err != nil {
		return fmt.Errorf("write trade %s: %w", t.TradeID, err)
	}
	return nil
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return writeRow(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339),
		e.RunID,
		f(e.Balance),
		f(e.Equity),
		f(e.Margin),
		f(e.FreeMargin),
		f(e.MarginLevel),
	})
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades.Flush()
	j.equity.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	if err := j.equity.Error(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
