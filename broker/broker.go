// Package broker defines the terminal boundary the bot trades through:
// account state, quotes, candle history and order routing.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/autotrader/market"
)

var (
	ErrNotConnected      = errors.New("terminal not connected")
	ErrUnknownSymbol     = errors.New("unknown symbol")
	ErrNoPrice           = errors.New("no price")
	ErrPositionNotFound  = errors.New("position not found")
	ErrConnectionRefused = errors.New("connection refused")
)

type Broker interface {
	Connect(ctx context.Context) error
	Shutdown() error
	Connected() bool

	Account(ctx context.Context) (Account, error)
	SymbolInfo(ctx context.Context, symbol string) (market.InstrumentMeta, error)
	Tick(ctx context.Context, symbol string) (market.Tick, error)
	Candles(ctx context.Context, symbol string, tf market.Timeframe, count int) ([]market.Candle, error)

	// Positions lists open positions; an empty symbol means all of them.
	Positions(ctx context.Context, symbol string) ([]Position, error)
	SendOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ModifyPosition(ctx context.Context, ticket int64, sl, tp float64) (OrderResult, error)
	ClosePosition(ctx context.Context, ticket int64) (OrderResult, error)
}

type Account struct {
	Login       int64
	Server      string
	Currency    string
	Leverage    int
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	MarginLevel float64
	Profit      float64
}

type Position struct {
	Ticket       int64
	Symbol       string
	Side         market.Side
	Volume       float64
	PriceOpen    float64
	PriceCurrent float64
	SL           float64
	TP           float64
	Profit       float64
	Magic        int
	Comment      string
	OpenTime     time.Time
}

// OrderRequest is a market order. Zero SL or TP means none.
type OrderRequest struct {
	Symbol    string
	Side      market.Side
	Volume    float64
	Price     float64
	SL        float64
	TP        float64
	Deviation int
	Magic     int
	Comment   string
}

type OrderResult struct {
	Retcode Retcode
	Ticket  int64
	Volume  float64
	Price   float64
	Comment string
}

// Retcode mirrors the MT5 trade server return codes.
type Retcode int

const (
	RetcodeRequote        Retcode = 10004
	RetcodeDone           Retcode = 10009
	RetcodeInvalidRequest Retcode = 10013
	RetcodeInvalidVolume  Retcode = 10014
	RetcodeInvalidStops   Retcode = 10016
	RetcodeMarketClosed   Retcode = 10018
	RetcodeNoMoney        Retcode = 10019
)

var retcodeText = map[Retcode]string{
	RetcodeRequote:        "requote",
	RetcodeDone:           "done",
	RetcodeInvalidRequest: "invalid request",
	RetcodeInvalidVolume:  "invalid volume",
	RetcodeInvalidStops:   "invalid stops",
	RetcodeMarketClosed:   "market closed",
	RetcodeNoMoney:        "no money",
}

func (r Retcode) String() string {
	if s, ok := retcodeText[r]; ok {
		return s
	}
	return fmt.Sprintf("retcode %d", int(r))
}

func (r Retcode) OK() bool { return r == RetcodeDone }
