package loan

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("loan not found")

	// ErrAffordabilityExceeded is raised by the guarded insert when the
	// transactional re-check of current EMIs fails under the lock.
	ErrAffordabilityExceeded = errors.New("total monthly obligations exceed the affordability cap")
)

type Repository interface {
	// CreateLoanGuarded inserts an approved loan inside a transaction that
	// holds a per-customer advisory lock and re-aggregates current EMIs, so
	// two concurrent approvals cannot jointly exceed emiCap.
	CreateLoanGuarded(ctx context.Context, newLoan *Loan, emiCap decimal.Decimal) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListByCustomer(ctx context.Context, customerID int64) ([]*Loan, error)

	// SumActiveInstallments totals monthly installments of APPROVED and
	// PENDING loans whose end date is on or after asOf.
	SumActiveInstallments(ctx context.Context, customerID int64, asOf time.Time) (decimal.Decimal, error)

	// MarkMaturedLoansPaid transitions APPROVED loans past their end date
	// with a complete on-time EMI record to PAID and reports the affected
	// customer IDs so their cached scores can be invalidated.
	MarkMaturedLoansPaid(ctx context.Context, asOf time.Time) ([]int64, error)

	// SaveBatch bulk-inserts historical loans during onboarding.
	SaveBatch(ctx context.Context, loans []*Loan) (int64, error)
}
