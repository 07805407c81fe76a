package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/customer"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errMsgFormat = "%w: %w"

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: logger.With("component", "CustomerRepository")}
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	sql := `
        INSERT INTO customers (first_name, last_name, phone_number, age, monthly_income, approved_limit, current_debt, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, sql,
		cust.FirstName, cust.LastName, cust.PhoneNumber, cust.Age,
		cust.MonthlyIncome, cust.ApprovedLimit, cust.CurrentDebt,
	).Scan(&cust.CustomerID, &cust.CreatedAt, &cust.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "Duplicate phone number on insert", "constraint", pgErr.ConstraintName)
			return customer.ErrDuplicatePhoneNumber
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer created in DB", "customer_id", cust.CustomerID)
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	query := `
        SELECT id, first_name, last_name, phone_number, age, monthly_income, approved_limit, current_debt, created_at, updated_at
        FROM customers
        WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var c customer.Customer
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&c.CustomerID, &c.FirstName, &c.LastName, &c.PhoneNumber, &c.Age,
		&c.MonthlyIncome, &c.ApprovedLimit, &c.CurrentDebt, &c.CreatedAt, &c.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindCustomerByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found", "customer_id", customerID)
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get customer by ID", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &c, nil
}

// SaveBatch inserts customers with their externally assigned IDs, skipping
// conflicting rows (re-running an import is harmless).
func (r *CustomerRepository) SaveBatch(ctx context.Context, customers []*customer.Customer) (int64, error) {
	if len(customers) == 0 {
		return 0, nil
	}

	sql := `
        INSERT INTO customers (id, first_name, last_name, phone_number, age, monthly_income, approved_limit, current_debt, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        ON CONFLICT DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(sql, c.CustomerID, c.FirstName, c.LastName, c.PhoneNumber, c.Age,
			c.MonthlyIncome, c.ApprovedLimit, c.CurrentDebt)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for i := 0; i < len(customers); i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing customer batch insert", "error", err, "entry_index", i)
			return inserted, fmt.Errorf("%w: failed inserting customer batch entry %d: %w", apperrors.ErrDatabase, i+1, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return inserted, fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer batch inserted", "requested", len(customers), "inserted", inserted)
	return inserted, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) error {
	// Loans cascade with the customer row.
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete customer", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// SyncIdentitySequence realigns the customers ID sequence after a bulk import
// with explicit IDs.
func (r *CustomerRepository) SyncIdentitySequence(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT setval(pg_get_serial_sequence('customers', 'id'), (SELECT COALESCE(MAX(id), 1) FROM customers))`)
	if err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}
