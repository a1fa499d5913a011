package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/autotrader/market"
)

const tradeColumns = `trade_id, ticket, symbol, side, volume, entry_price, exit_price, open_time, close_time, profit, strategy, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec  TradeRecord
		side string
	)
	err := s.Scan(
		&rec.TradeID,
		&rec.Ticket,
		&rec.Symbol,
		&side,
		&rec.Volume,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Profit,
		&rec.Strategy,
		&rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	rec.Side, err = market.ParseSide(side)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns snapshots taken within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, run_id, balance, equity, margin, free_margin, margin_level
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.RunID, &e.Balance, &e.Equity, &e.Margin, &e.FreeMargin, &e.MarginLevel); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats aggregates a set of closed trades.
type Stats struct {
	Trades       int
	Wins         int
	Losses       int
	NetProfit    float64
	GrossProfit  float64
	GrossLoss    float64
	WinRate      float64
	ProfitFactor float64
	BestTrade    float64
	WorstTrade   float64
}

// Summarize computes Stats. ProfitFactor is +Inf when there are gains and
// no losses.
func Summarize(trades []TradeRecord) Stats {
	var s Stats
	for i, t := range trades {
		s.Trades++
		s.NetProfit += t.Profit
		if t.Profit > 0 {
			s.Wins++
			s.GrossProfit += t.Profit
		} else {
			s.Losses++
			s.GrossLoss -= t.Profit
		}
		if i == 0 || t.Profit > s.BestTrade {
			s.BestTrade = t.Profit
		}
		if i == 0 || t.Profit < s.WorstTrade {
			s.WorstTrade = t.Profit
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	return s
}

// MaxDrawdownPct is the largest peak-to-trough equity fall, in percent.
func MaxDrawdownPct(eq []EquitySnapshot) float64 {
	peak, worst := 0.0, 0.0
	for _, e := range eq {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak > 0 {
			if dd := (peak - e.Equity) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
