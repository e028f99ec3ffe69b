// Package wei converts decimal amounts of the chain's native unit into
// integer minor units so price comparisons never touch floating point.
package wei

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of minor-unit places of the native currency.
const Decimals = 18

// Parse converts a decimal amount string ("5", "0.25") into wei.
func Parse(amount string) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, Decimals)
	}
	return shifted.BigInt(), nil
}

// Format renders wei as a decimal amount of the native unit.
func Format(w *big.Int) string {
	if w == nil {
		return "0"
	}
	return decimal.NewFromBigInt(w, -Decimals).String()
}
