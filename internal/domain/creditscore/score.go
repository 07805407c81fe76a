package creditscore

import (
	"math"

	"github.com/shopspring/decimal"
)

// Component weights. They sum to 100, so the clamp below only matters if a
// weight changes without rebalancing the others.
const (
	WeightRepayment = 35
	WeightLoanCount = 20
	WeightActivity  = 20
	WeightVolume    = 25

	// LoanCountTarget is the loan count at which the count component saturates.
	LoanCountTarget = 10
	// ActivityTarget is the current-year loan count at which the activity
	// component saturates.
	ActivityTarget = 3

	MaxScore = 100
)

// VolumeTarget is the approved principal volume at which the volume component
// saturates.
var VolumeTarget = decimal.NewFromInt(1_000_000)

// History is the aggregate of a customer's loan records that the score is a
// pure function of.
type History struct {
	ApprovedLimit int64

	// CurrentPrincipal sums principal over loans in status APPROVED or PENDING.
	CurrentPrincipal decimal.Decimal

	EMIsPaidOnTime    int64
	TotalTenureMonths int64
	LoanCount         int64

	// LoansThisYear counts loans whose start date falls in the current
	// calendar year.
	LoansThisYear int64

	// ApprovedVolume sums principal over loans in status APPROVED or PAID.
	ApprovedVolume decimal.Decimal
}

// Compute derives a credit score in [0, 100] from a customer's loan history.
// Deterministic and side-effect-free; caching lives in the engine, not here.
func Compute(h History) int {
	// Debt over the approved limit zeroes the score outright.
	if h.CurrentPrincipal.GreaterThan(decimal.NewFromInt(h.ApprovedLimit)) {
		return 0
	}

	var score float64

	if h.TotalTenureMonths > 0 {
		ratio := float64(h.EMIsPaidOnTime) / float64(h.TotalTenureMonths)
		score += clamp01(ratio) * WeightRepayment
	}

	score += clamp01(float64(h.LoanCount)/LoanCountTarget) * WeightLoanCount

	score += clamp01(float64(h.LoansThisYear)/ActivityTarget) * WeightActivity

	volumeFactor, _ := h.ApprovedVolume.Div(VolumeTarget).Float64()
	score += clamp01(volumeFactor) * WeightVolume

	// Half rounds up, matching the currency rounding rule.
	rounded := int(math.Floor(score + 0.5))
	if rounded > MaxScore {
		return MaxScore
	}
	return rounded
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
