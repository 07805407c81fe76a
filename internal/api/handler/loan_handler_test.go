package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"credit-engine/internal/api/handler/dto"
	"credit-engine/internal/domain/customer"
	"credit-engine/internal/domain/loan"
	"credit-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Evaluate(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, tenureMonths int) (*loan.Decision, error) {
	args := m.Called(ctx, customerID, amount, interestRate, tenureMonths)
	if decision, ok := args.Get(0).(*loan.Decision); ok {
		return decision, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) CreateLoan(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, tenureMonths int) (*loan.CreateResult, error) {
	args := m.Called(ctx, customerID, amount, interestRate, tenureMonths)
	if result, ok := args.Get(0).(*loan.CreateResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListCustomerLoans(ctx context.Context, customerID int64) ([]*loan.Loan, error) {
	args := m.Called(ctx, customerID)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) RegisterCustomer(ctx context.Context, firstName, lastName, phoneNumber string, age int, monthlyIncome int64) (*customer.Customer, error) {
	args := m.Called(ctx, firstName, lastName, phoneNumber, age, monthlyIncome)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if c, ok := args.Get(0).(*customer.Customer); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestLoanHandler(t *testing.T) (*LoanHandler, *MockLoanService, *MockCustomerService) {
	t.Helper()
	mockService := new(MockLoanService)
	mockCustomers := new(MockCustomerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewLoanHandler(mockService, mockCustomers, logger), mockService, mockCustomers
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{key}, Values: []string{value}},
	}))
}

func TestLoanHandlerCheckEligibility(t *testing.T) {
	h, mockService, _ := newTestLoanHandler(t)

	t.Run("returns the decision on success", func(t *testing.T) {
		decision := &loan.Decision{
			CustomerID:         1,
			Approved:           true,
			CreditScore:        62,
			InterestRate:       decimal.NewFromFloat(10.5),
			CorrectedRate:      decimal.NewFromInt(12),
			TenureMonths:       24,
			MonthlyInstallment: decimal.RequireFromString("23536.74"),
			Message:            "Loan approved",
		}
		mockService.On("Evaluate", mock.Anything, int64(1), mock.Anything, mock.Anything, 24).
			Return(decision, nil).Once()

		body := `{"customer_id":1,"loan_amount":500000,"interest_rate":10.5,"tenure":24}`
		req := httptest.NewRequest(http.MethodPost, "/check-eligibility", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.CheckEligibility(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.EligibilityResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Approval)
		assert.Equal(t, "12", resp.CorrectedInterestRate)
		assert.Equal(t, "23536.74", resp.MonthlyInstallment)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/check-eligibility", strings.NewReader(`{"customer_id":`))
		rec := httptest.NewRecorder()

		h.CheckEligibility(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects non-positive tenure before calling the service", func(t *testing.T) {
		body := `{"customer_id":1,"loan_amount":500000,"interest_rate":10.5,"tenure":0}`
		req := httptest.NewRequest(http.MethodPost, "/check-eligibility", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.CheckEligibility(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps unknown customer to 404", func(t *testing.T) {
		mockService.On("Evaluate", mock.Anything, int64(404), mock.Anything, mock.Anything, 12).
			Return(nil, apperrors.ErrCustomerNotFound).Once()

		body := `{"customer_id":404,"loan_amount":100000,"interest_rate":10,"tenure":12}`
		req := httptest.NewRequest(http.MethodPost, "/check-eligibility", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.CheckEligibility(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerCreateLoan(t *testing.T) {
	h, mockService, _ := newTestLoanHandler(t)

	t.Run("returns 201 with loan ID on approval", func(t *testing.T) {
		loanID := int64(55)
		result := &loan.CreateResult{
			LoanID:             &loanID,
			CustomerID:         1,
			Approved:           true,
			MonthlyInstallment: decimal.RequireFromString("23536.74"),
			Message:            "Loan approved",
		}
		mockService.On("CreateLoan", mock.Anything, int64(1), mock.Anything, mock.Anything, 24).
			Return(result, nil).Once()

		body := `{"customer_id":1,"loan_amount":500000,"interest_rate":10.5,"tenure":24}`
		req := httptest.NewRequest(http.MethodPost, "/create-loan", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.CreateLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CreateLoanResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.LoanApproved)
		if assert.NotNil(t, resp.LoanID) {
			assert.Equal(t, loanID, *resp.LoanID)
		}
		mockService.AssertExpectations(t)
	})

	t.Run("returns 201 with null loan ID on rejection", func(t *testing.T) {
		result := &loan.CreateResult{
			CustomerID:         1,
			Approved:           false,
			MonthlyInstallment: decimal.Zero,
			Message:            "Loan rejected: credit score too low",
		}
		mockService.On("CreateLoan", mock.Anything, int64(1), mock.Anything, mock.Anything, 24).
			Return(result, nil).Once()

		body := `{"customer_id":1,"loan_amount":500000,"interest_rate":10.5,"tenure":24}`
		req := httptest.NewRequest(http.MethodPost, "/create-loan", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.CreateLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CreateLoanResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.LoanApproved)
		assert.Nil(t, resp.LoanID)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerViewLoan(t *testing.T) {
	h, mockService, mockCustomers := newTestLoanHandler(t)

	t.Run("embeds customer details", func(t *testing.T) {
		mockLoan := &loan.Loan{
			ID:                 123,
			CustomerID:         1,
			Amount:             decimal.NewFromInt(500_000),
			InterestRate:       decimal.NewFromInt(12),
			MonthlyInstallment: decimal.RequireFromString("23536.74"),
			TenureMonths:       24,
			Status:             loan.StatusApproved,
		}
		mockService.On("GetLoan", mock.Anything, int64(123)).Return(mockLoan, nil).Once()
		mockCustomers.On("GetCustomer", mock.Anything, int64(1)).Return(&customer.Customer{
			CustomerID:  1,
			FirstName:   "Aarav",
			LastName:    "Sharma",
			PhoneNumber: "9876543210",
			Age:         32,
		}, nil).Once()

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/view-loan/123", nil), "loanID", "123")
		rec := httptest.NewRecorder()

		h.ViewLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanDetailResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(123), resp.LoanID)
		assert.Equal(t, "Aarav", resp.Customer.FirstName)
		mockService.AssertExpectations(t)
		mockCustomers.AssertExpectations(t)
	})

	t.Run("maps missing loan to 404", func(t *testing.T) {
		mockService.On("GetLoan", mock.Anything, int64(404)).Return(nil, apperrors.ErrNotFound).Once()

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/view-loan/404", nil), "loanID", "404")
		rec := httptest.NewRecorder()

		h.ViewLoan(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects a non-numeric loan ID", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/view-loan/abc", nil), "loanID", "abc")
		rec := httptest.NewRecorder()

		h.ViewLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoanHandlerViewLoans(t *testing.T) {
	h, mockService, _ := newTestLoanHandler(t)

	t.Run("returns empty list for customer without loans", func(t *testing.T) {
		mockService.On("ListCustomerLoans", mock.Anything, int64(7)).Return([]*loan.Loan{}, nil).Once()

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/view-loans/7", nil), "customerID", "7")
		rec := httptest.NewRecorder()

		h.ViewLoans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
		mockService.AssertExpectations(t)
	})
}
