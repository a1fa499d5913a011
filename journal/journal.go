// Package journal persists closed trades and equity snapshots.
package journal

import (
	"time"

	"github.com/rustyeddy/autotrader/market"
)

// TradeRecord is one closed position.
type TradeRecord struct {
	TradeID    string
	Ticket     int64
	Symbol     string
	Side       market.Side
	Volume     float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	Profit     float64
	Strategy   string
	Reason     string
}

// EquitySnapshot is the account state after a revaluation.
type EquitySnapshot struct {
	Time        time.Time
	RunID       string
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	MarginLevel float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error { return nil }
