package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/creditscore"
	"credit-engine/internal/domain/customer"
	"credit-engine/internal/event"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// Score tiers and their interest-rate floors.
var (
	rateFloorMidTier = decimal.NewFromInt(12)
	rateFloorLowTier = decimal.NewFromInt(16)

	two = decimal.NewFromInt(2)
)

const (
	tierUpperBound = 50
	tierMidBound   = 30
	tierLowBound   = 10

	msgApproved             = "Loan approved"
	msgRejectedScore        = "Loan rejected: credit score too low"
	msgRejectedAffordabiliy = "Loan rejected: monthly obligations exceed half of income"
)

// Decision is the outcome of an eligibility evaluation. CorrectedRate is the
// rate the loan would actually carry; InterestRate echoes the request.
type Decision struct {
	CustomerID         int64
	Approved           bool
	CreditScore        int
	InterestRate       decimal.Decimal
	CorrectedRate      decimal.Decimal
	TenureMonths       int
	MonthlyInstallment decimal.Decimal
	Message            string

	// emiCap is the affordability ceiling derived from the customer fetched
	// during evaluation, carried so the creation path needs no second fetch.
	emiCap decimal.Decimal
}

// CreateResult reports the outcome of the loan creation path. LoanID is nil
// on rejection.
type CreateResult struct {
	LoanID             *int64
	CustomerID         int64
	Approved           bool
	MonthlyInstallment decimal.Decimal
	Message            string
}

type LoanService interface {
	// Evaluate runs the eligibility decision without persisting anything.
	Evaluate(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, tenureMonths int) (*Decision, error)

	// CreateLoan evaluates and, on approval, persists the loan and
	// invalidates the customer's cached credit score.
	CreateLoan(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, tenureMonths int) (*CreateResult, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListCustomerLoans(ctx context.Context, customerID int64) ([]*Loan, error)
}

var _ LoanService = (*loanService)(nil)

type loanService struct {
	repo            Repository
	customerService customer.CustomerService
	scoreEngine     creditscore.Engine
	pub             event.Publisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewLoanService(repo Repository, cs customer.CustomerService, engine creditscore.Engine, pub event.Publisher, logger *slog.Logger) LoanService {
	if repo == nil || cs == nil || engine == nil {
		panic("loan service dependencies cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &loanService{
		repo:            repo,
		customerService: cs,
		scoreEngine:     engine,
		pub:             pub,
		logger:          logger.With(slog.String("component", "loanService")),
		now:             time.Now,
	}
}

func (s *loanService) Evaluate(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, tenureMonths int) (*Decision, error) {
	cust, err := s.customerService.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	score, err := s.scoreEngine.ComputeScore(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute credit score: %w", err)
	}

	decision := &Decision{
		CustomerID:    customerID,
		CreditScore:   score,
		InterestRate:  interestRate,
		CorrectedRate: interestRate,
		TenureMonths:  tenureMonths,
		emiCap:        affordabilityCap(cust.MonthlyIncome),
	}

	approved, correctedRate := applyTierPolicy(score, interestRate)
	decision.CorrectedRate = correctedRate

	if !approved {
		// Score tier rejection skips the affordability check entirely and
		// reports a zero installment.
		decision.Message = msgRejectedScore
		s.logger.InfoContext(ctx, "Eligibility rejected on credit score", "customer_id", customerID, "score", score)
		monitoring.RecordEligibilityDecision("rejected_score")
		return decision, nil
	}

	installment, err := CalculateInstallment(amount, correctedRate, tenureMonths)
	if err != nil {
		return nil, err
	}
	decision.MonthlyInstallment = installment

	affordable, err := s.checkAffordability(ctx, customerID, installment, decision.emiCap)
	if err != nil {
		return nil, err
	}
	if !affordable {
		// The candidate installment stays in the decision for transparency.
		decision.Message = msgRejectedAffordabiliy
		s.logger.InfoContext(ctx, "Eligibility rejected on affordability", "customer_id", customerID, "score", score)
		monitoring.RecordEligibilityDecision("rejected_affordability")
		return decision, nil
	}

	decision.Approved = true
	decision.Message = msgApproved
	monitoring.RecordEligibilityDecision("approved")
	return decision, nil
}

// applyTierPolicy maps the credit score to an approval and the minimum
// acceptable interest rate for that tier.
func applyTierPolicy(score int, requestedRate decimal.Decimal) (bool, decimal.Decimal) {
	switch {
	case score > tierUpperBound:
		return true, requestedRate
	case score > tierMidBound:
		return true, decimal.Max(requestedRate, rateFloorMidTier)
	case score > tierLowBound:
		return true, decimal.Max(requestedRate, rateFloorLowTier)
	default:
		return false, requestedRate
	}
}

func (s *loanService) checkAffordability(ctx context.Context, customerID int64, candidateEMI, emiCap decimal.Decimal) (bool, error) {
	existing, err := s.repo.SumActiveInstallments(ctx, customerID, dateOnly(s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sum active installments", "customer_id", customerID, slog.Any("error", err))
		return false, fmt.Errorf("failed to read current EMIs for customer %d: %w", customerID, err)
	}

	return existing.Add(candidateEMI).LessThanOrEqual(emiCap), nil
}

// affordabilityCap is half of monthly income.
func affordabilityCap(monthlyIncome int64) decimal.Decimal {
	return decimal.NewFromInt(monthlyIncome).Div(two)
}

func (s *loanService) CreateLoan(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, tenureMonths int) (*CreateResult, error) {
	decision, err := s.Evaluate(ctx, customerID, amount, interestRate, tenureMonths)
	if err != nil {
		return nil, err
	}

	if !decision.Approved {
		s.publishDecision(ctx, decision, nil)
		return &CreateResult{
			CustomerID:         customerID,
			Approved:           false,
			MonthlyInstallment: decision.MonthlyInstallment,
			Message:            decision.Message,
		}, nil
	}

	newLoan := NewApprovedLoan(customerID, amount, tenureMonths, decision.CorrectedRate, decision.MonthlyInstallment, dateOnly(s.now()))

	created, err := s.repo.CreateLoanGuarded(ctx, newLoan, decision.emiCap)
	if err != nil {
		if errors.Is(err, ErrAffordabilityExceeded) {
			// A concurrent approval won the race under the lock; report the
			// same rejection the affordability check would have produced.
			s.logger.InfoContext(ctx, "Loan rejected by transactional affordability guard", "customer_id", customerID)
			monitoring.RecordEligibilityDecision("rejected_affordability")
			decision.Approved = false
			decision.Message = msgRejectedAffordabiliy
			s.publishDecision(ctx, decision, nil)
			return &CreateResult{
				CustomerID:         customerID,
				Approved:           false,
				MonthlyInstallment: decision.MonthlyInstallment,
				Message:            msgRejectedAffordabiliy,
			}, nil
		}
		s.logger.ErrorContext(ctx, "Failed to persist approved loan", "customer_id", customerID, slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to persist loan: %v", apperrors.ErrInternalServer, err)
	}

	// Invalidate only after a successful persist so a failed insert never
	// leaves the cache cold for no reason. The new loan changes future score
	// inputs, so the stale entry must go now.
	if err := s.scoreEngine.InvalidateScore(ctx, customerID); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate score after loan creation", "customer_id", customerID, slog.Any("error", err))
	}

	monitoring.RecordLoanCreated()
	s.publishDecision(ctx, decision, &created.ID)
	s.logger.InfoContext(ctx, "Loan created", "loan_id", created.ID, "customer_id", customerID)

	return &CreateResult{
		LoanID:             &created.ID,
		CustomerID:         customerID,
		Approved:           true,
		MonthlyInstallment: created.MonthlyInstallment,
		Message:            msgApproved,
	}, nil
}

func (s *loanService) publishDecision(ctx context.Context, decision *Decision, loanID *int64) {
	evt := event.NewLoanDecisionEvent(decision.CustomerID, loanID, decision.Approved, decision.CreditScore, decision.CorrectedRate, decision.MonthlyInstallment)
	if err := s.pub.PublishLoanDecision(ctx, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish loan decision event", "customer_id", decision.CustomerID, slog.Any("error", err))
	}
}

func (s *loanService) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loan_id", loanID, slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l, nil
}

func (s *loanService) ListCustomerLoans(ctx context.Context, customerID int64) ([]*Loan, error) {
	if _, err := s.customerService.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	loans, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list customer loans", "customer_id", customerID, slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to list loans for customer %d: %v", apperrors.ErrInternalServer, customerID, err)
	}
	return loans, nil
}
