// Package strategies holds the rule-based signal producers. Each producer is
// a pure function of a market Snapshot; exactly one is active at a time and
// it is picked once, when the configuration is loaded.
package strategies

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/autotrader/market"
)

type Kind int

const (
	Scalping Kind = iota + 1
	HFT
	Intraday
	Arbitrage
)

var kindNames = map[Kind]string{
	Scalping:  "Scalping",
	HFT:       "HFT",
	Intraday:  "Intraday",
	Arbitrage: "Arbitrage",
}

// Kinds lists every strategy kind in menu order.
func Kinds() []Kind {
	return []Kind{Scalping, HFT, Intraday, Arbitrage}
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q (supported: Scalping, HFT, Intraday, Arbitrage)", s)
}

// Interval is how often the trading loop runs for this kind.
func (k Kind) Interval() time.Duration {
	switch k {
	case HFT:
		return 500 * time.Millisecond
	case Intraday, Arbitrage:
		return 2 * time.Second
	default:
		return time.Second
	}
}

// NeedsH1 reports whether the producer reads the hourly series.
func (k Kind) NeedsH1() bool {
	return k == Intraday
}

// Signal is an immutable trade suggestion. A zero Price means "fill at the
// current quote".
type Signal struct {
	Side       market.Side
	Symbol     string
	Strategy   string
	Confidence float64
	Price      float64
	Reason     string
	Meta       map[string]float64
	Time       time.Time
}

// Snapshot is the market state a producer evaluates.
type Snapshot struct {
	Symbol string
	M1     []market.Candle
	H1     []market.Candle
	Tick   market.Tick
	Info   market.InstrumentMeta
	Now    time.Time

	// SpreadMultiplier widens the HFT spread limit for the running
	// session. Zero keeps Params.SpreadMultiplier.
	SpreadMultiplier float64
}

type Producer interface {
	Name() string
	Evaluate(s Snapshot) (Signal, bool)
}

// Params are the tunables shared by the producers. Zero values fall back to
// the defaults from DefaultParams.
type Params struct {
	// HFT
	MaxSpreadPoints   float64
	SpreadMultiplier  float64
	VolumeSpike       float64
	MomentumThreshold float64

	// Arbitrage
	MeanReversionPeriod int
	ZScoreThreshold     float64

	// Intraday
	PivotProximity float64

	// Scalping
	MinProfitPips float64
}

func DefaultParams() Params {
	return Params{
		MaxSpreadPoints:     2,
		SpreadMultiplier:    1,
		VolumeSpike:         1.5,
		MomentumThreshold:   0.001,
		MeanReversionPeriod: 20,
		ZScoreThreshold:     2,
		PivotProximity:      0.001,
		MinProfitPips:       5,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MaxSpreadPoints <= 0 {
		p.MaxSpreadPoints = d.MaxSpreadPoints
	}
	if p.SpreadMultiplier <= 0 {
		p.SpreadMultiplier = d.SpreadMultiplier
	}
	if p.VolumeSpike <= 0 {
		p.VolumeSpike = d.VolumeSpike
	}
	if p.MomentumThreshold <= 0 {
		p.MomentumThreshold = d.MomentumThreshold
	}
	if p.MeanReversionPeriod < 2 {
		p.MeanReversionPeriod = d.MeanReversionPeriod
	}
	if p.ZScoreThreshold <= 0 {
		p.ZScoreThreshold = d.ZScoreThreshold
	}
	if p.PivotProximity <= 0 {
		p.PivotProximity = d.PivotProximity
	}
	if p.MinProfitPips <= 0 {
		p.MinProfitPips = d.MinProfitPips
	}
	return p
}

// New builds the producer for kind.
func New(kind Kind, p Params) (Producer, error) {
	p = p.withDefaults()
	switch kind {
	case Scalping:
		return &ScalpingProducer{Params: p}, nil
	case HFT:
		return &HFTProducer{Params: p}, nil
	case Intraday:
		return &IntradayProducer{Params: p}, nil
	case Arbitrage:
		return &MeanReversionProducer{Params: p}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %d", int(kind))
	}
}

func newSignal(s Snapshot, side market.Side, strategy string, conf float64, price float64, reason string) Signal {
	return Signal{
		Side:       side,
		Symbol:     s.Symbol,
		Strategy:   strategy,
		Confidence: conf,
		Price:      price,
		Reason:     reason,
		Time:       s.Now,
	}
}
