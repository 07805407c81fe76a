package ingestion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"credit-engine/internal/domain/customer"
	"credit-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

// CustomerWriter and LoanWriter are the narrow repository surfaces the
// loader needs; the postgres repositories satisfy them.
type CustomerWriter interface {
	SaveBatch(ctx context.Context, customers []*customer.Customer) (int64, error)
	SyncIdentitySequence(ctx context.Context) error
}

type LoanWriter interface {
	SaveBatch(ctx context.Context, loans []*loan.Loan) (int64, error)
	SyncIdentitySequence(ctx context.Context) error
}

// Result reports one file's ingestion outcome. Rows that fail to parse are
// skipped and counted, never aborting the rest of the file.
type Result struct {
	RowsRead    int
	RowsSkipped int
	Inserted    int64
}

type Loader struct {
	customers CustomerWriter
	loans     LoanWriter
	logger    *slog.Logger
	now       func() time.Time
}

func NewLoader(customers CustomerWriter, loans LoanWriter, logger *slog.Logger) *Loader {
	if customers == nil || loans == nil {
		panic("loader repositories cannot be nil")
	}
	return &Loader{
		customers: customers,
		loans:     loans,
		logger:    logger.With("component", "Loader"),
		now:       time.Now,
	}
}

// LoadCustomers ingests a customer CSV with the header
// customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit,current_debt.
func (l *Loader) LoadCustomers(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read customer CSV header: %w", err)
	}
	cols, err := indexColumns(header, []string{
		"customer_id", "first_name", "last_name", "age", "phone_number",
		"monthly_salary", "approved_limit", "current_debt",
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var batch []*customer.Customer
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read customer CSV: %w", err)
		}
		res.RowsRead++

		c, err := parseCustomerRow(record, cols)
		if err != nil {
			l.logger.WarnContext(ctx, "Skipping malformed customer row",
				slog.Int("row", res.RowsRead), slog.Any("error", err))
			res.RowsSkipped++
			continue
		}
		batch = append(batch, c)
	}

	inserted, err := l.customers.SaveBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to persist customer batch: %w", err)
	}
	res.Inserted = inserted

	if err := l.customers.SyncIdentitySequence(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync customer ID sequence: %w", err)
	}

	l.logger.InfoContext(ctx, "Customer file ingested",
		"rows", res.RowsRead, "skipped", res.RowsSkipped, "inserted", res.Inserted)
	return res, nil
}

// LoadLoans ingests a loan CSV with the header
// customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_repayment,emis_paid_on_time,start_date,end_date.
// Status is derived from the end date: elapsed loans are PAID, the rest
// APPROVED.
func (l *Loader) LoadLoans(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read loan CSV header: %w", err)
	}
	cols, err := indexColumns(header, []string{
		"customer_id", "loan_id", "loan_amount", "tenure", "interest_rate",
		"monthly_repayment", "emis_paid_on_time", "start_date", "end_date",
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var batch []*loan.Loan
	today := l.now()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read loan CSV: %w", err)
		}
		res.RowsRead++

		ln, err := parseLoanRow(record, cols, today)
		if err != nil {
			l.logger.WarnContext(ctx, "Skipping malformed loan row",
				slog.Int("row", res.RowsRead), slog.Any("error", err))
			res.RowsSkipped++
			continue
		}
		batch = append(batch, ln)
	}

	inserted, err := l.loans.SaveBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to persist loan batch: %w", err)
	}
	res.Inserted = inserted

	if err := l.loans.SyncIdentitySequence(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync loan ID sequence: %w", err)
	}

	l.logger.InfoContext(ctx, "Loan file ingested",
		"rows", res.RowsRead, "skipped", res.RowsSkipped, "inserted", res.Inserted)
	return res, nil
}

func indexColumns(header, wanted []string) (map[string]int, error) {
	cols := make(map[string]int, len(wanted))
	for i, name := range header {
		cols[normalizeHeader(name)] = i
	}
	for _, name := range wanted {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return cols, nil
}

func normalizeHeader(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.ReplaceAll(name, " ", "_")
}

func parseCustomerRow(record []string, cols map[string]int) (*customer.Customer, error) {
	id, err := strconv.ParseInt(field(record, cols, "customer_id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid customer_id: %q", field(record, cols, "customer_id"))
	}
	age, err := strconv.Atoi(field(record, cols, "age"))
	if err != nil {
		return nil, fmt.Errorf("invalid age: %q", field(record, cols, "age"))
	}
	income, err := strconv.ParseInt(field(record, cols, "monthly_salary"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly_salary: %q", field(record, cols, "monthly_salary"))
	}
	limit, err := strconv.ParseInt(field(record, cols, "approved_limit"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid approved_limit: %q", field(record, cols, "approved_limit"))
	}
	debt, err := decimal.NewFromString(field(record, cols, "current_debt"))
	if err != nil {
		return nil, fmt.Errorf("invalid current_debt: %q", field(record, cols, "current_debt"))
	}

	return &customer.Customer{
		CustomerID:    id,
		FirstName:     field(record, cols, "first_name"),
		LastName:      field(record, cols, "last_name"),
		PhoneNumber:   field(record, cols, "phone_number"),
		Age:           age,
		MonthlyIncome: income,
		ApprovedLimit: limit,
		CurrentDebt:   debt,
	}, nil
}

func parseLoanRow(record []string, cols map[string]int, today time.Time) (*loan.Loan, error) {
	customerID, err := strconv.ParseInt(field(record, cols, "customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		return nil, fmt.Errorf("invalid customer_id: %q", field(record, cols, "customer_id"))
	}
	loanID, err := strconv.ParseInt(field(record, cols, "loan_id"), 10, 64)
	if err != nil || loanID <= 0 {
		return nil, fmt.Errorf("invalid loan_id: %q", field(record, cols, "loan_id"))
	}
	amount, err := decimal.NewFromString(field(record, cols, "loan_amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid loan_amount: %q", field(record, cols, "loan_amount"))
	}
	tenure, err := strconv.Atoi(field(record, cols, "tenure"))
	if err != nil || tenure <= 0 {
		return nil, fmt.Errorf("invalid tenure: %q", field(record, cols, "tenure"))
	}
	rate, err := decimal.NewFromString(field(record, cols, "interest_rate"))
	if err != nil {
		return nil, fmt.Errorf("invalid interest_rate: %q", field(record, cols, "interest_rate"))
	}
	installment, err := decimal.NewFromString(field(record, cols, "monthly_repayment"))
	if err != nil {
		return nil, fmt.Errorf("invalid monthly_repayment: %q", field(record, cols, "monthly_repayment"))
	}
	paidOnTime, err := strconv.Atoi(field(record, cols, "emis_paid_on_time"))
	if err != nil || paidOnTime < 0 {
		return nil, fmt.Errorf("invalid emis_paid_on_time: %q", field(record, cols, "emis_paid_on_time"))
	}
	startDate, err := parseDate(field(record, cols, "start_date"))
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate(field(record, cols, "end_date"))
	if err != nil {
		return nil, err
	}

	status := loan.StatusApproved
	if endDate.Before(today) {
		status = loan.StatusPaid
	}

	return &loan.Loan{
		ID:                 loanID,
		CustomerID:         customerID,
		Amount:             amount,
		TenureMonths:       tenure,
		InterestRate:       rate,
		MonthlyInstallment: installment,
		EMIsPaidOnTime:     paidOnTime,
		StartDate:          startDate,
		EndDate:            endDate,
		Status:             status,
	}, nil
}

var dateLayouts = []string{"2006-01-02", "1/2/2006", "02-01-2006"}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %q", value)
}

func field(record []string, cols map[string]int, name string) string {
	i := cols[name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
