package market

import (
	"fmt"
)

// QuoteToAccountRate converts one unit of the instrument's quote currency
// into the account currency, using mid as the instrument's current price.
func QuoteToAccountRate(meta InstrumentMeta, accountCurrency string, mid float64) (float64, error) {
	// quote currency == account currency (EURUSD, XAUUSD)
	if meta.QuoteCurrency == accountCurrency {
		return 1.0, nil
	}

	// account currency is base (USDJPY with a USD account)
	if meta.BaseCurrency == accountCurrency {
		if mid <= 0 {
			return 0, fmt.Errorf("no price to convert %s", meta.Name)
		}
		return 1.0 / mid, nil
	}

	return 0, fmt.Errorf(
		"cross conversion not implemented for %s → %s",
		meta.QuoteCurrency,
		accountCurrency,
	)
}
