package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/creditscore"
	"credit-engine/internal/domain/loan"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

var _ creditscore.HistorySource = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

// CreateLoanGuarded holds pg_advisory_xact_lock on the customer ID while it
// re-checks the EMI cap and inserts, so concurrent approvals for the same
// customer serialize at the database and cannot jointly breach the cap.
func (r *LoanRepository) CreateLoanGuarded(ctx context.Context, newLoan *loan.Loan, emiCap decimal.Decimal) (*loan.Loan, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, newLoan.CustomerID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to take customer advisory lock", "customer_id", newLoan.CustomerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	var existingEMIs decimal.Decimal
	err = tx.QueryRow(ctx, `
        SELECT COALESCE(SUM(monthly_installment), 0)
        FROM loans
        WHERE customer_id = $1 AND status IN ('APPROVED', 'PENDING') AND end_date >= $2`,
		newLoan.CustomerID, newLoan.StartDate,
	).Scan(&existingEMIs)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to re-aggregate current EMIs under lock", "customer_id", newLoan.CustomerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if existingEMIs.Add(newLoan.MonthlyInstallment).GreaterThan(emiCap) {
		r.logger.InfoContext(ctx, "Affordability cap breached under lock", "customer_id", newLoan.CustomerID,
			"existing_emis", existingEMIs.String(), "cap", emiCap.String())
		return nil, loan.ErrAffordabilityExceeded
	}

	insertSQL := `
        INSERT INTO loans (customer_id, amount, tenure_months, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, customer_id, amount, tenure_months, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date, status, created_at, updated_at`

	var created loan.Loan
	err = tx.QueryRow(ctx, insertSQL,
		newLoan.CustomerID, newLoan.Amount, newLoan.TenureMonths, newLoan.InterestRate,
		newLoan.MonthlyInstallment, newLoan.EMIsPaidOnTime, newLoan.StartDate, newLoan.EndDate, newLoan.Status,
	).Scan(
		&created.ID, &created.CustomerID, &created.Amount, &created.TenureMonths,
		&created.InterestRate, &created.MonthlyInstallment, &created.EMIsPaidOnTime,
		&created.StartDate, &created.EndDate, &created.Status, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "customer_id", newLoan.CustomerID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit loan insert", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID, "customer_id", created.CustomerID)
	return &created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `
        SELECT id, customer_id, amount, tenure_months, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date, status, created_at, updated_at
        FROM loans
        WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var l loan.Loan
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.CustomerID, &l.Amount, &l.TenureMonths, &l.InterestRate,
		&l.MonthlyInstallment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, loan.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*loan.Loan, error) {
	query := `
        SELECT id, customer_id, amount, tenure_months, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date, status, created_at, updated_at
        FROM loans
        WHERE customer_id = $1
        ORDER BY start_date DESC, id DESC`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customer loans", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		var l loan.Loan
		err := rows.Scan(
			&l.ID, &l.CustomerID, &l.Amount, &l.TenureMonths, &l.InterestRate,
			&l.MonthlyInstallment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
			&l.Status, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "customer_id", customerID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, &l)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return loans, nil
}

func (r *LoanRepository) SumActiveInstallments(ctx context.Context, customerID int64, asOf time.Time) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(monthly_installment), 0)
        FROM loans
        WHERE customer_id = $1 AND status IN ('APPROVED', 'PENDING') AND end_date >= $2`
	status := "success"
	startTime := time.Now()

	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, customerID, asOf).Scan(&total)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("SumActiveInstallments", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum active installments", "customer_id", customerID, "error", err)
		return decimal.Zero, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

// GetScoreHistory aggregates the loan history feeding the credit score in
// one round trip. No rows means the customer does not exist.
func (r *LoanRepository) GetScoreHistory(ctx context.Context, customerID int64) (*creditscore.History, error) {
	query := `
        SELECT c.approved_limit,
               COUNT(l.id),
               COALESCE(SUM(l.tenure_months), 0),
               COALESCE(SUM(l.emis_paid_on_time), 0),
               COUNT(l.id) FILTER (WHERE l.start_date >= date_trunc('year', CURRENT_DATE)
                                     AND l.start_date < date_trunc('year', CURRENT_DATE) + interval '1 year'),
               COALESCE(SUM(l.amount) FILTER (WHERE l.status IN ('APPROVED', 'PENDING')), 0),
               COALESCE(SUM(l.amount) FILTER (WHERE l.status IN ('APPROVED', 'PAID')), 0)
        FROM customers c
        LEFT JOIN loans l ON l.customer_id = c.id
        WHERE c.id = $1
        GROUP BY c.approved_limit`
	status := "success"
	startTime := time.Now()

	var h creditscore.History
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&h.ApprovedLimit, &h.LoanCount, &h.TotalTenureMonths, &h.EMIsPaidOnTime,
		&h.LoansThisYear, &h.CurrentPrincipal, &h.ApprovedVolume,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetScoreHistory", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found for score history", "customer_id", customerID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to read score history", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &h, nil
}

func (r *LoanRepository) MarkMaturedLoansPaid(ctx context.Context, asOf time.Time) ([]int64, error) {
	query := `
        UPDATE loans
        SET status = 'PAID', updated_at = NOW()
        WHERE status = 'APPROVED' AND end_date < $1 AND emis_paid_on_time >= tenure_months
        RETURNING customer_id`

	rows, err := r.db.Query(ctx, query, asOf)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark matured loans paid", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	seen := make(map[int64]struct{})
	customerIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan matured loan customer ID", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			customerIDs = append(customerIDs, id)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return customerIDs, nil
}

// SaveBatch inserts historical loans with their externally assigned IDs,
// skipping conflicting rows.
func (r *LoanRepository) SaveBatch(ctx context.Context, loans []*loan.Loan) (int64, error) {
	if len(loans) == 0 {
		return 0, nil
	}

	sql := `
        INSERT INTO loans (id, customer_id, amount, tenure_months, interest_rate, monthly_installment, emis_paid_on_time, start_date, end_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        ON CONFLICT DO NOTHING`

	batch := &pgx.Batch{}
	for _, l := range loans {
		batch.Queue(sql, l.ID, l.CustomerID, l.Amount, l.TenureMonths, l.InterestRate,
			l.MonthlyInstallment, l.EMIsPaidOnTime, l.StartDate, l.EndDate, l.Status)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for i := 0; i < len(loans); i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing loan batch insert", "error", err, "entry_index", i)
			return inserted, fmt.Errorf("%w: failed inserting loan batch entry %d: %w", apperrors.ErrDatabase, i+1, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return inserted, fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loan batch inserted", "requested", len(loans), "inserted", inserted)
	return inserted, nil
}

// SyncIdentitySequence realigns the loans ID sequence after a bulk import
// with explicit IDs.
func (r *LoanRepository) SyncIdentitySequence(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT setval(pg_get_serial_sequence('loans', 'id'), (SELECT COALESCE(MAX(id), 1) FROM loans))`)
	if err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}
