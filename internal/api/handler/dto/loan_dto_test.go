package dto

import (
	"testing"
	"time"

	"credit-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validEligibilityRequest() EligibilityRequest {
	return EligibilityRequest{
		CustomerID:   1,
		LoanAmount:   500_000,
		InterestRate: 10.5,
		Tenure:       24,
	}
}

func TestEligibilityRequestValidate(t *testing.T) {
	req := validEligibilityRequest()
	assert.NoError(t, req.Validate())

	req = validEligibilityRequest()
	req.CustomerID = 0
	assert.Error(t, req.Validate())

	req = validEligibilityRequest()
	req.LoanAmount = -1
	assert.Error(t, req.Validate())

	req = validEligibilityRequest()
	req.InterestRate = -0.5
	assert.Error(t, req.Validate())

	req = validEligibilityRequest()
	req.Tenure = 0
	assert.Error(t, req.Validate())
}

func TestNewEligibilityResponseFormatsMoney(t *testing.T) {
	d := &loan.Decision{
		CustomerID:         1,
		Approved:           true,
		CreditScore:        62,
		InterestRate:       decimal.RequireFromString("10.5"),
		CorrectedRate:      decimal.RequireFromString("12"),
		TenureMonths:       24,
		MonthlyInstallment: decimal.RequireFromString("23536.7"),
	}

	resp := NewEligibilityResponse(d)
	assert.True(t, resp.Approval)
	assert.Equal(t, "10.5", resp.InterestRate)
	assert.Equal(t, "12", resp.CorrectedInterestRate)
	assert.Equal(t, "23536.70", resp.MonthlyInstallment)
}

func TestNewCreateLoanResponseOnRejection(t *testing.T) {
	res := &loan.CreateResult{
		CustomerID:         7,
		Approved:           false,
		MonthlyInstallment: decimal.Zero,
		Message:            "Loan rejected: credit score too low",
	}

	resp := NewCreateLoanResponse(res)
	assert.Nil(t, resp.LoanID)
	assert.False(t, resp.LoanApproved)
	assert.Equal(t, "0.00", resp.MonthlyInstallment)
}

func TestNewLoanListResponse(t *testing.T) {
	loans := []*loan.Loan{
		{
			ID:                 11,
			Amount:             decimal.NewFromInt(200_000),
			InterestRate:       decimal.NewFromInt(14),
			MonthlyInstallment: decimal.RequireFromString("9602.39"),
			TenureMonths:       24,
			EMIsPaidOnTime:     6,
			StartDate:          time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			Status:             loan.StatusApproved,
		},
	}

	items := NewLoanListResponse(loans)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(11), items[0].LoanID)
	assert.Equal(t, "200000.00", items[0].LoanAmount)
	assert.Equal(t, 18, items[0].RepaymentsLeft)
}
