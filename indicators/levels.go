package indicators

import "fmt"

// Pivots are classic floor-trader levels from one period's high/low/close.
type Pivots struct {
	P, R1, R2, R3, S1, S2, S3 float64
}

func PivotPoints(high, low, close float64) Pivots {
	p := (high + low + close) / 3
	return Pivots{
		P:  p,
		R1: 2*p - low,
		S1: 2*p - high,
		R2: p + (high - low),
		S2: p - (high - low),
		R3: high + 2*(p-low),
		S3: low - 2*(high-p),
	}
}

type Direction int

const (
	Sideways Direction = iota
	Uptrend
	Downtrend
)

func (d Direction) String() string {
	switch d {
	case Uptrend:
		return "Uptrend"
	case Downtrend:
		return "Downtrend"
	default:
		return "Sideways"
	}
}

// Trend compares a short and long SMA with the last close.
func Trend(prices []float64, short, long int) (Direction, error) {
	if short >= long {
		return Sideways, fmt.Errorf("short period %d must be below long period %d", short, long)
	}
	s, err := SMA(prices, short)
	if err != nil {
		return Sideways, err
	}
	l, err := SMA(prices, long)
	if err != nil {
		return Sideways, err
	}

	px, sv, lv := Last(prices), Last(s), Last(l)
	switch {
	case sv > lv && px > sv:
		return Uptrend, nil
	case sv < lv && px < sv:
		return Downtrend, nil
	}
	return Sideways, nil
}
