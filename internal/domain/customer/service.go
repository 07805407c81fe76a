package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"credit-engine/internal/event"
	"credit-engine/internal/pkg/apperrors"
)

type CustomerService interface {
	// RegisterCustomer onboards a new customer, deriving the approved credit
	// limit from monthly income.
	RegisterCustomer(ctx context.Context, firstName, lastName, phoneNumber string, age int, monthlyIncome int64) (*Customer, error)

	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.Publisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, pub event.Publisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &customerService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func (s *customerService) RegisterCustomer(ctx context.Context, firstName, lastName, phoneNumber string, age int, monthlyIncome int64) (*Customer, error) {
	s.logger.InfoContext(ctx, "Registering new customer")

	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, apperrors.NewValidationError("name", "first and last name cannot be empty")
	}
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, apperrors.NewValidationError("phone_number", "phone number cannot be empty")
	}
	if age <= 0 {
		return nil, apperrors.NewValidationError("age", "age must be positive")
	}
	if monthlyIncome < 0 {
		return nil, apperrors.NewValidationError("monthly_income", "monthly income cannot be negative")
	}

	cust := NewCustomer(firstName, lastName, phoneNumber, age, monthlyIncome)
	if err := s.repo.Save(ctx, cust); err != nil {
		if errors.Is(err, ErrDuplicatePhoneNumber) || errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Duplicate phone number on registration", slog.Any("error", err))
			return nil, fmt.Errorf("%w: phone number %s already registered", apperrors.ErrConflict, phoneNumber)
		}
		s.logger.ErrorContext(ctx, "Failed to save customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to register customer: %w", err)
	}

	if err := s.pub.PublishCustomerRegistered(ctx, event.NewCustomerRegisteredEvent(cust.CustomerID, cust.FullName(), cust.ApprovedLimit)); err != nil {
		// Registration already succeeded; event loss is logged, not surfaced.
		s.logger.WarnContext(ctx, "Failed to publish customer registered event", slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "Customer registered", "customer_id", cust.CustomerID, "approved_limit", cust.ApprovedLimit)
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrCustomerNotFound, customerID)
		}
		s.logger.ErrorContext(ctx, "Failed to get customer", "customer_id", customerID, slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	return cust, nil
}
