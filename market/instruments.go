// market/instruments.go
package market

import (
	"fmt"
	"math"
	"strings"
)

// InstrumentMeta carries the terminal-side contract details of a symbol.
type InstrumentMeta struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	Point         float64
	Digits        int
	ContractSize  float64
	VolumeMin     float64
	VolumeMax     float64
	VolumeStep    float64
	MarginRate    float64
	SpreadPoints  int
	StopsLevel    int
}

// PipSize is ten points, for 5/3 digit FX quotes and 2 digit metals alike.
func (m InstrumentMeta) PipSize() float64 {
	return m.Point * 10
}

// PipValue returns the account-currency value of one pip for the given lots,
// assuming the quote currency is the account currency.
func (m InstrumentMeta) PipValue(lots float64) float64 {
	pip := 0.0001
	if m.IsJPY() {
		pip = 0.01
	}
	return pip * lots * m.ContractSize
}

func (m InstrumentMeta) RoundPrice(p float64) float64 {
	pow := math.Pow(10, float64(m.Digits))
	return math.Round(p*pow) / pow
}

func (m InstrumentMeta) IsJPY() bool {
	return strings.Contains(strings.ToUpper(m.Name), "JPY")
}

func (m InstrumentMeta) IsGold() bool {
	return IsGold(m.Name)
}

var goldNames = []string{"XAUUSD", "GOLD", "GOLDUSD"}

// IsGold reports whether symbol names spot gold under any common broker alias.
func IsGold(symbol string) bool {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	for _, g := range goldNames {
		if s == g {
			return true
		}
	}
	return false
}

func fx(name string, point float64, digits, spread int) InstrumentMeta {
	return InstrumentMeta{
		Name:          name,
		BaseCurrency:  name[:3],
		QuoteCurrency: name[3:],
		Point:         point,
		Digits:        digits,
		ContractSize:  100000,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
		MarginRate:    0.01,
		SpreadPoints:  spread,
		StopsLevel:    0,
	}
}

var Instruments = map[string]InstrumentMeta{
	"XAUUSD": {
		Name:          "XAUUSD",
		BaseCurrency:  "XAU",
		QuoteCurrency: "USD",
		Point:         0.01,
		Digits:        2,
		ContractSize:  100,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
		MarginRate:    0.01,
		SpreadPoints:  40,
		StopsLevel:    0,
	},
	"EURUSD": fx("EURUSD", 0.00001, 5, 2),
	"GBPUSD": fx("GBPUSD", 0.00001, 5, 2),
	"AUDUSD": fx("AUDUSD", 0.00001, 5, 3),
	"USDCAD": fx("USDCAD", 0.00001, 5, 3),
	"USDJPY": fx("USDJPY", 0.001, 3, 22),
	"EURJPY": fx("EURJPY", 0.001, 3, 25),
}

// Lookup resolves a symbol, accepting gold aliases and "EUR/USD" style names.
func Lookup(symbol string) (InstrumentMeta, error) {
	s := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	if IsGold(s) {
		s = "XAUUSD"
	}
	m, ok := Instruments[s]
	if !ok {
		return InstrumentMeta{}, fmt.Errorf("unknown instrument %s", symbol)
	}
	return m, nil
}
