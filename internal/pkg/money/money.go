package money

import (
	"github.com/shopspring/decimal"
)

// Currency amounts carry two decimal places. The rounding rule for the whole
// service is round-half-up (away from zero); score rounding and EMI rounding
// share it so cent-level fixtures stay consistent.
const CurrencyPlaces = 2

// LakhIncrement is the step the approved credit limit is rounded to.
const LakhIncrement = 100_000

var Zero = decimal.Zero

// RoundCurrency rounds an amount to the currency's minor-unit precision,
// half up.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// RoundToLakh rounds a whole currency amount to the nearest 100,000, half up.
// Pure integer arithmetic; inputs are non-negative whole amounts.
func RoundToLakh(amount int64) int64 {
	return (amount + LakhIncrement/2) / LakhIncrement * LakhIncrement
}

// FromInt builds a currency decimal from a whole amount.
func FromInt(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount)
}
