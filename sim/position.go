package sim

import (
	"time"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/market"
)

const (
	ReasonStopLoss   = "StopLoss"
	ReasonTakeProfit = "TakeProfit"
	ReasonManual     = "Manual"
	ReasonStopOut    = "StopOut"
)

// ClosedPosition is handed to the close listener and kept in the history.
type ClosedPosition struct {
	broker.Position
	// TradeID is a ULID stamped with the close time.
	TradeID   string
	ExitPrice float64
	CloseTime time.Time
	Reason    string
}

type position struct {
	broker.Position
	meta market.InstrumentMeta
}

// mark is the price the position would close at: bid for longs, ask for
// shorts.
func (p *position) mark(t market.Tick) float64 {
	if p.Side == market.Sell {
		return t.Ask
	}
	return t.Bid
}

func (p *position) hitStopLoss(price float64) bool {
	if p.SL <= 0 {
		return false
	}
	if p.Side == market.Buy {
		return price <= p.SL
	}
	return price >= p.SL
}

func (p *position) hitTakeProfit(price float64) bool {
	if p.TP <= 0 {
		return false
	}
	if p.Side == market.Buy {
		return price >= p.TP
	}
	return price <= p.TP
}

// exitInBar checks whether a bar's range crossed the stop or target. The
// stop is tested first, so a bar that spans both is a loss.
func (p *position) exitInBar(c market.Candle, spread float64) (float64, string, bool) {
	if p.Side == market.Buy {
		if p.SL > 0 && c.Low <= p.SL {
			return p.SL, ReasonStopLoss, true
		}
		if p.TP > 0 && c.High >= p.TP {
			return p.TP, ReasonTakeProfit, true
		}
		return 0, "", false
	}
	// shorts close on the ask
	if p.SL > 0 && c.High+spread >= p.SL {
		return p.SL, ReasonStopLoss, true
	}
	if p.TP > 0 && c.Low+spread <= p.TP {
		return p.TP, ReasonTakeProfit, true
	}
	return 0, "", false
}

// stopsValid applies the terminal's rule that a long's stop sits below the
// bid and its target above it, mirrored for shorts against the ask.
func stopsValid(side market.Side, t market.Tick, sl, tp float64) bool {
	if side == market.Buy {
		return (sl <= 0 || sl < t.Bid) && (tp <= 0 || tp > t.Bid)
	}
	return (sl <= 0 || sl > t.Ask) && (tp <= 0 || tp < t.Ask)
}
