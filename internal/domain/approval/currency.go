package approval

import "fmt"

// RateTable maps a currency code to its value relative to a fixed anchor
// currency. The anchor itself carries rate 1.
type RateTable map[string]float64

// Convert converts an amount between two currency codes using the given
// rate table.
//
// When the source and target currencies are equal the amount is returned
// unchanged, with no rate multiplication at all, so identity conversions
// are exact. Otherwise the result is amount * rates[to] / rates[from];
// the anchor currency cancels out, so any anchor works as long as both
// codes are present. A missing code fails with ErrConversionUnavailable;
// the caller decides the fallback, never this function.
func Convert(amount float64, from, to string, rates RateTable) (float64, error) {
	if from == to {
		return amount, nil
	}

	fromRate, ok := rates[from]
	if !ok || fromRate == 0 {
		return 0, fmt.Errorf("%w: %s", ErrConversionUnavailable, from)
	}
	toRate, ok := rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrConversionUnavailable, to)
	}

	return amount * (toRate / fromRate), nil
}
