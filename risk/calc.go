package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PctOf returns part as a percentage of base, 0 when base is not positive.
func PctOf(part, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return part / base * 100
}

// LossPct is how far current has fallen below start, in percent.
func LossPct(start, current float64) float64 {
	return PctOf(start-current, start)
}

// DrawdownPct measures equity against the higher of the day's start
// balance and current equity.
func DrawdownPct(start, equity float64) float64 {
	peak := math.Max(start, equity)
	return PctOf(peak-equity, peak)
}

// PlannedRisk is the account-currency loss if price moves from entry to
// stop on volume lots.
func PlannedRisk(volume, contractSize, entry, stop, quoteToAccountRate float64) float64 {
	return abs(entry-stop) * volume * contractSize * quoteToAccountRate
}

func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}
