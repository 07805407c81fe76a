package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"credit-engine/internal/domain/loan"
	"credit-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var loanTest = &loan.Loan{
	ID:                 123,
	CustomerID:         1,
	Amount:             decimal.NewFromInt(500_000),
	TenureMonths:       24,
	InterestRate:       decimal.NewFromInt(12),
	MonthlyInstallment: decimal.RequireFromString("23536.74"),
	EMIsPaidOnTime:     0,
	StartDate:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	EndDate:            time.Date(2028, 3, 1, 0, 0, 0, 0, time.UTC),
	Status:             loan.StatusApproved,
	CreatedAt:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	UpdatedAt:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
}

func setupLoanRepo(t *testing.T) (context.Context, *LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewLoanRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func loanColumns() []string {
	return []string{"id", "customer_id", "amount", "tenure_months", "interest_rate", "monthly_installment",
		"emis_paid_on_time", "start_date", "end_date", "status", "created_at", "updated_at"}
}

func loanRow(l *loan.Loan) *pgxmock.Rows {
	return pgxmock.NewRows(loanColumns()).AddRow(
		l.ID, l.CustomerID, l.Amount, l.TenureMonths, l.InterestRate, l.MonthlyInstallment,
		l.EMIsPaidOnTime, l.StartDate, l.EndDate, l.Status, l.CreatedAt, l.UpdatedAt,
	)
}

func TestCreateLoanGuardedInsertsUnderLock(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	candidate := *loanTest
	candidate.ID = 0
	emiCap := decimal.NewFromInt(42_500)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(candidate.CustomerID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(monthly_installment), 0)`)).
		WithArgs(candidate.CustomerID, candidate.StartDate).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.NewFromInt(10_000)))
	mockPool.ExpectQuery(regexp.QuoteMeta(`INSERT INTO loans`)).
		WithArgs(candidate.CustomerID, candidate.Amount, candidate.TenureMonths, candidate.InterestRate,
			candidate.MonthlyInstallment, candidate.EMIsPaidOnTime, candidate.StartDate, candidate.EndDate, candidate.Status).
		WillReturnRows(loanRow(loanTest))
	mockPool.ExpectCommit()

	created, err := repo.CreateLoanGuarded(ctx, &candidate, emiCap)
	assert.NoError(t, err)
	assert.Equal(t, loanTest.ID, created.ID)
	assert.Equal(t, loan.StatusApproved, created.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCreateLoanGuardedRejectsWhenCapBreached(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	candidate := *loanTest
	candidate.ID = 0
	emiCap := decimal.NewFromInt(42_500)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(candidate.CustomerID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	// 20000 existing + 23536.74 candidate > 42500.
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(monthly_installment), 0)`)).
		WithArgs(candidate.CustomerID, candidate.StartDate).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.NewFromInt(20_000)))
	mockPool.ExpectRollback()

	created, err := repo.CreateLoanGuarded(ctx, &candidate, emiCap)
	assert.ErrorIs(t, err, loan.ErrAffordabilityExceeded)
	assert.Nil(t, created)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByIDReturnOne(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, customer_id").WithArgs(loanTest.ID).WillReturnRows(loanRow(loanTest))

	loanResult, err := repo.GetLoanByID(ctx, loanTest.ID)
	assert.NoError(t, err)
	assert.Equal(t, loanTest.ID, loanResult.ID)
	assert.True(t, loanTest.MonthlyInstallment.Equal(loanResult.MonthlyInstallment))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByIDReturnNone(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, customer_id").WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	loanResult, err := repo.GetLoanByID(ctx, 404)
	assert.ErrorIs(t, err, loan.ErrNotFound)
	assert.Nil(t, loanResult)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestListByCustomerReturnsAll(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	second := *loanTest
	second.ID = 124
	second.Status = loan.StatusPaid

	rows := loanRow(loanTest).AddRow(
		second.ID, second.CustomerID, second.Amount, second.TenureMonths, second.InterestRate,
		second.MonthlyInstallment, second.EMIsPaidOnTime, second.StartDate, second.EndDate,
		second.Status, second.CreatedAt, second.UpdatedAt,
	)
	mockPool.ExpectQuery("SELECT id, customer_id").WithArgs(loanTest.CustomerID).WillReturnRows(rows)

	loans, err := repo.ListByCustomer(ctx, loanTest.CustomerID)
	assert.NoError(t, err)
	assert.Len(t, loans, 2)
	assert.Equal(t, loan.StatusPaid, loans[1].Status)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestListByCustomerWithNoLoansReturnsEmptySlice(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT id, customer_id").WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(loanColumns()))

	loans, err := repo.ListByCustomer(ctx, 7)
	assert.NoError(t, err)
	assert.NotNil(t, loans)
	assert.Empty(t, loans)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSumActiveInstallments(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(monthly_installment), 0)`)).
		WithArgs(loanTest.CustomerID, asOf).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.RequireFromString("23536.74")))

	total, err := repo.SumActiveInstallments(ctx, loanTest.CustomerID, asOf)
	assert.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("23536.74")))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetScoreHistoryAggregatesLoanRecords(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT c.approved_limit").WithArgs(loanTest.CustomerID).
		WillReturnRows(pgxmock.NewRows([]string{"approved_limit", "count", "sum_tenure", "sum_on_time", "count_this_year", "current_principal", "approved_volume"}).
			AddRow(int64(3_100_000), int64(4), int64(96), int64(80), int64(1),
				decimal.NewFromInt(500_000), decimal.NewFromInt(1_200_000)))

	h, err := repo.GetScoreHistory(ctx, loanTest.CustomerID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3_100_000), h.ApprovedLimit)
	assert.Equal(t, int64(4), h.LoanCount)
	assert.Equal(t, int64(96), h.TotalTenureMonths)
	assert.Equal(t, int64(80), h.EMIsPaidOnTime)
	assert.Equal(t, int64(1), h.LoansThisYear)
	assert.True(t, h.CurrentPrincipal.Equal(decimal.NewFromInt(500_000)))
	assert.True(t, h.ApprovedVolume.Equal(decimal.NewFromInt(1_200_000)))
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetScoreHistoryForUnknownCustomer(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery("SELECT c.approved_limit").WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	h, err := repo.GetScoreHistory(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, h)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestMarkMaturedLoansPaidDeduplicatesCustomers(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	mockPool.ExpectQuery("UPDATE loans").WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows([]string{"customer_id"}).
			AddRow(int64(1)).AddRow(int64(2)).AddRow(int64(1)))

	customerIDs, err := repo.MarkMaturedLoansPaid(ctx, asOf)
	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, customerIDs)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
