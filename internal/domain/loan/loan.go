package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusPending  LoanStatus = "PENDING"
	StatusApproved LoanStatus = "APPROVED"
	StatusRejected LoanStatus = "REJECTED"
	StatusPaid     LoanStatus = "PAID"
)

type Loan struct {
	ID                 int64
	CustomerID         int64
	Amount             decimal.Decimal
	TenureMonths       int
	InterestRate       decimal.Decimal
	MonthlyInstallment decimal.Decimal
	EMIsPaidOnTime     int
	StartDate          time.Time
	EndDate            time.Time
	Status             LoanStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// dateOnly normalizes an instant to its calendar day at UTC midnight. Using
// Truncate here would cut at UTC day boundaries and shift the date for
// non-UTC deployments shortly after local midnight.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewApprovedLoan builds the loan persisted by the approval path. Rate and
// installment are the corrected figures from the eligibility decision, never
// the raw request.
func NewApprovedLoan(customerID int64, amount decimal.Decimal, tenureMonths int, effectiveRate, installment decimal.Decimal, startDate time.Time) *Loan {
	if startDate.IsZero() {
		startDate = dateOnly(time.Now())
	}
	return &Loan{
		CustomerID:         customerID,
		Amount:             amount,
		TenureMonths:       tenureMonths,
		InterestRate:       effectiveRate,
		MonthlyInstallment: installment,
		StartDate:          startDate,
		EndDate:            startDate.AddDate(0, tenureMonths, 0),
		Status:             StatusApproved,
	}
}

// RepaymentsLeft is a best-effort figure for listing endpoints; the on-time
// counter is maintained by the external payment tracking flow.
func (l *Loan) RepaymentsLeft() int {
	left := l.TenureMonths - l.EMIsPaidOnTime
	if left < 0 || l.Status == StatusPaid {
		return 0
	}
	return left
}
