package loan

import (
	"fmt"
	"math"

	"credit-engine/internal/pkg/apperrors"
	"credit-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

var (
	one                       = decimal.NewFromInt(1)
	monthsPerYearTimesPercent = decimal.NewFromInt(1200)
)

// CalculateInstallment computes the fixed monthly installment for a principal,
// annual percentage rate and tenure using the reducing-balance formula
//
//	E = P * r * (1+r)^n / ((1+r)^n - 1), r = rate/12/100
//
// The exponentiation runs in float64; the result is re-expressed as a decimal
// and rounded to two places, half up. Zero tenure is an error, never a silent
// zero installment.
func CalculateInstallment(principal, annualRate decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if tenureMonths <= 0 {
		return decimal.Zero, fmt.Errorf("%w: tenure must be positive, got %d", apperrors.ErrInvalidTenure, tenureMonths)
	}
	if principal.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: principal cannot be negative", apperrors.ErrInvalidInput)
	}
	if annualRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: interest rate cannot be negative", apperrors.ErrInvalidInput)
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	monthlyRate := annualRate.Div(monthsPerYearTimesPercent)

	if monthlyRate.IsZero() {
		return money.RoundCurrency(principal.Div(n)), nil
	}

	rf, _ := monthlyRate.Float64()
	powFactor := decimal.NewFromFloat(math.Pow(1+rf, float64(tenureMonths)))

	// A rate below float64 resolution collapses (1+r)^n to exactly 1 while
	// the decimal monthly rate stays nonzero, which would zero the
	// denominator. Such a rate is indistinguishable from zero interest.
	if !powFactor.GreaterThan(one) {
		return money.RoundCurrency(principal.Div(n)), nil
	}

	numerator := principal.Mul(monthlyRate).Mul(powFactor)
	denominator := powFactor.Sub(one)

	return money.RoundCurrency(numerator.Div(denominator)), nil
}
