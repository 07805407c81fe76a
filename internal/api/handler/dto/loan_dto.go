package dto

import (
	"fmt"

	"credit-engine/internal/domain/loan"
)

// EligibilityRequest is shared by the check-eligibility and create-loan
// endpoints; both take the same payload.
type EligibilityRequest struct {
	CustomerID   int64   `json:"customer_id"`
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	Tenure       int     `json:"tenure"`
}

func (r *EligibilityRequest) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("customer_id must be positive")
	}
	if r.LoanAmount < 0 {
		return fmt.Errorf("loan_amount cannot be negative")
	}
	if r.InterestRate < 0 {
		return fmt.Errorf("interest_rate cannot be negative")
	}
	if r.Tenure <= 0 {
		return fmt.Errorf("tenure must be positive")
	}
	return nil
}

type EligibilityResponse struct {
	CustomerID            int64  `json:"customer_id"`
	Approval              bool   `json:"approval"`
	InterestRate          string `json:"interest_rate"`
	CorrectedInterestRate string `json:"corrected_interest_rate"`
	Tenure                int    `json:"tenure"`
	MonthlyInstallment    string `json:"monthly_installment"`
	Message               string `json:"message,omitempty"`
}

func NewEligibilityResponse(d *loan.Decision) EligibilityResponse {
	return EligibilityResponse{
		CustomerID:            d.CustomerID,
		Approval:              d.Approved,
		InterestRate:          d.InterestRate.String(),
		CorrectedInterestRate: d.CorrectedRate.String(),
		Tenure:                d.TenureMonths,
		MonthlyInstallment:    d.MonthlyInstallment.StringFixed(2),
		Message:               d.Message,
	}
}

type CreateLoanResponse struct {
	LoanID             *int64 `json:"loan_id"`
	CustomerID         int64  `json:"customer_id"`
	LoanApproved       bool   `json:"loan_approved"`
	Message            string `json:"message"`
	MonthlyInstallment string `json:"monthly_installment"`
}

func NewCreateLoanResponse(res *loan.CreateResult) CreateLoanResponse {
	return CreateLoanResponse{
		LoanID:             res.LoanID,
		CustomerID:         res.CustomerID,
		LoanApproved:       res.Approved,
		Message:            res.Message,
		MonthlyInstallment: res.MonthlyInstallment.StringFixed(2),
	}
}

type LoanDetailResponse struct {
	LoanID             int64           `json:"loan_id"`
	Customer           CustomerSummary `json:"customer"`
	LoanAmount         string          `json:"loan_amount"`
	InterestRate       string          `json:"interest_rate"`
	MonthlyInstallment string          `json:"monthly_installment"`
	Tenure             int             `json:"tenure"`
	Status             string          `json:"status"`
}

func NewLoanDetailResponse(l *loan.Loan, summary CustomerSummary) LoanDetailResponse {
	return LoanDetailResponse{
		LoanID:             l.ID,
		Customer:           summary,
		LoanAmount:         l.Amount.StringFixed(2),
		InterestRate:       l.InterestRate.String(),
		MonthlyInstallment: l.MonthlyInstallment.StringFixed(2),
		Tenure:             l.TenureMonths,
		Status:             string(l.Status),
	}
}

type LoanListItem struct {
	LoanID             int64  `json:"loan_id"`
	LoanAmount         string `json:"loan_amount"`
	InterestRate       string `json:"interest_rate"`
	MonthlyInstallment string `json:"monthly_installment"`
	RepaymentsLeft     int    `json:"repayments_left"`
}

func NewLoanListResponse(loans []*loan.Loan) []LoanListItem {
	items := make([]LoanListItem, len(loans))
	for i, l := range loans {
		items[i] = LoanListItem{
			LoanID:             l.ID,
			LoanAmount:         l.Amount.StringFixed(2),
			InterestRate:       l.InterestRate.String(),
			MonthlyInstallment: l.MonthlyInstallment.StringFixed(2),
			RepaymentsLeft:     l.RepaymentsLeft(),
		}
	}
	return items
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}
