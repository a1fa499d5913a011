package sim

import "github.com/rustyeddy/autotrader/market"

// profit is the account-currency P/L of moving from entry to exit.
func profit(side market.Side, entry, exit, volume, contract, rate float64) float64 {
	return (exit - entry) * side.Sign() * volume * contract * rate
}

// margin is the account-currency collateral for a position.
func margin(volume, contract, price, marginRate, rate float64) float64 {
	return abs(volume) * contract * price * rate * marginRate
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
