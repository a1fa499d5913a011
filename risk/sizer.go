package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/autotrader/market"
)

// Unit says how a TP/SL value is expressed.
type Unit string

const (
	UnitPips     Unit = "pips"
	UnitPrice    Unit = "price"
	UnitPercent  Unit = "percent"
	UnitCurrency Unit = "currency"
)

func ParseUnit(s string) (Unit, error) {
	switch u := Unit(s); u {
	case UnitPips, UnitPrice, UnitPercent, UnitCurrency:
		return u, nil
	}
	return "", fmt.Errorf("invalid unit %q (pips, price, percent, currency)", s)
}

const (
	// MinLot is returned whenever sizing inputs are missing.
	MinLot = 0.01

	defaultSLPips   = 25.0
	defaultPipValue = 10.0
)

type SizingConfig struct {
	AutoLot     bool
	LotSize     float64
	RiskPercent float64
	SLValue     float64
	SLUnit      Unit
}

// slPips converts the configured stop distance to pips. Only pips and
// percent-of-price are convertible; anything else uses the default.
func slPips(meta market.InstrumentMeta, cfg SizingConfig, price float64) float64 {
	pips := defaultSLPips
	switch cfg.SLUnit {
	case UnitPips:
		pips = cfg.SLValue
	case UnitPercent:
		if pip := meta.PipSize(); price > 0 && pip > 0 {
			pips = price * cfg.SLValue / 100 / pip
		}
	}
	if pips <= 0 {
		pips = defaultSLPips
	}
	return pips
}

// LotSize sizes a trade so that a stop-out loses RiskPercent of balance,
// then clamps it to the instrument and a balance-derived ceiling.
func LotSize(balance float64, meta market.InstrumentMeta, cfg SizingConfig, price float64) float64 {
	lot := cfg.LotSize
	if cfg.AutoLot {
		riskAmount := balance * cfg.RiskPercent / 100
		pv := meta.PipValue(1)
		if pv <= 0 {
			pv = defaultPipValue
		}
		lot = 0
		if den := slPips(meta, cfg, price) * pv; den != 0 {
			lot = riskAmount / den
		}
	}
	return ApplyLotLimits(lot, meta, balance)
}

// ApplyLotLimits clamps to the volume range and the 10%-of-balance/1000
// ceiling, rounds half-to-even onto the volume step, then re-applies the
// ceiling (floored to the step) and the minimum.
func ApplyLotLimits(lot float64, meta market.InstrumentMeta, balance float64) float64 {
	ceiling := math.Inf(1)
	if balance > 0 {
		ceiling = balance * 0.1 / 1000
	}
	if meta.VolumeMax > 0 {
		ceiling = min(ceiling, meta.VolumeMax)
	}
	lot = min(max(lot, meta.VolumeMin), ceiling)

	d := decimal.NewFromFloat(lot)
	if meta.VolumeStep > 0 {
		step := decimal.NewFromFloat(meta.VolumeStep)
		d = d.Div(step).RoundBank(0).Mul(step)
		if !math.IsInf(ceiling, 1) {
			if c := decimal.NewFromFloat(ceiling); d.GreaterThan(c) {
				d = c.Div(step).Floor().Mul(step)
			}
		}
	}
	d = decimal.Max(d, decimal.NewFromFloat(meta.VolumeMin))
	return d.Round(2).InexactFloat64()
}

// SizingSource supplies the live sizing configuration.
type SizingSource interface {
	Sizing() SizingConfig
}

// Sizer wraps LotSize with the fail-soft rule: missing account or symbol
// data yields MinLot.
type Sizer struct {
	cfg SizingSource
	log *zap.Logger
}

func NewSizer(cfg SizingSource, log *zap.Logger) *Sizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sizer{cfg: cfg, log: log}
}

func (s *Sizer) CalculateLotSize(acct *AccountSnapshot, meta *market.InstrumentMeta, price float64) float64 {
	if acct == nil {
		s.log.Warn("cannot get account info for lot calculation")
		return MinLot
	}
	if meta == nil {
		s.log.Warn("cannot get symbol info for lot calculation")
		return MinLot
	}

	cfg := s.cfg.Sizing()
	lot := LotSize(acct.Balance, *meta, cfg, price)
	s.log.Info("calculated lot size",
		zap.String("symbol", meta.Name),
		zap.Float64("lot", lot),
		zap.Float64("risk_percent", cfg.RiskPercent),
		zap.Float64("risk_amount", acct.Balance*cfg.RiskPercent/100),
	)
	return lot
}
