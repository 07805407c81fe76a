package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Publisher interface {
	PublishCustomerRegistered(ctx context.Context, event CustomerRegisteredEvent) error
	PublishLoanDecision(ctx context.Context, event LoanDecisionEvent) error
}

type CustomerRegisteredEvent struct {
	EventID       string    `json:"eventId"`
	CustomerID    int64     `json:"customerId"`
	Name          string    `json:"name"`
	ApprovedLimit int64     `json:"approvedLimit"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewCustomerRegisteredEvent(customerID int64, name string, approvedLimit int64) CustomerRegisteredEvent {
	return CustomerRegisteredEvent{
		EventID:       uuid.NewString(),
		CustomerID:    customerID,
		Name:          name,
		ApprovedLimit: approvedLimit,
		Timestamp:     time.Now(),
	}
}

type LoanDecisionEvent struct {
	EventID            string          `json:"eventId"`
	CustomerID         int64           `json:"customerId"`
	LoanID             *int64          `json:"loanId,omitempty"`
	Approved           bool            `json:"approved"`
	CreditScore        int             `json:"creditScore"`
	CorrectedRate      decimal.Decimal `json:"correctedInterestRate"`
	MonthlyInstallment decimal.Decimal `json:"monthlyInstallment"`
	Timestamp          time.Time       `json:"timestamp"`
}

func NewLoanDecisionEvent(customerID int64, loanID *int64, approved bool, score int, correctedRate, installment decimal.Decimal) LoanDecisionEvent {
	return LoanDecisionEvent{
		EventID:            uuid.NewString(),
		CustomerID:         customerID,
		LoanID:             loanID,
		Approved:           approved,
		CreditScore:        score,
		CorrectedRate:      correctedRate,
		MonthlyInstallment: installment,
		Timestamp:          time.Now(),
	}
}

// NoopPublisher is used when messaging is disabled in config.
type NoopPublisher struct{}

func (NoopPublisher) PublishCustomerRegistered(context.Context, CustomerRegisteredEvent) error {
	return nil
}

func (NoopPublisher) PublishLoanDecision(context.Context, LoanDecisionEvent) error {
	return nil
}

var _ Publisher = NoopPublisher{}
