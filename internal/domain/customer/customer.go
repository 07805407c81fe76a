package customer

import (
	"time"

	"credit-engine/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// ApprovedLimitMultiplier scales monthly income into the credit ceiling
// granted at onboarding.
const ApprovedLimitMultiplier = 36

type Customer struct {
	CustomerID    int64           `json:"customerId"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	PhoneNumber   string          `json:"phoneNumber"`
	Age           int             `json:"age"`
	MonthlyIncome int64           `json:"monthlyIncome"`
	ApprovedLimit int64           `json:"approvedLimit"`
	CurrentDebt   decimal.Decimal `json:"currentDebt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewCustomer derives the approved limit from income; the limit is immutable
// after creation.
func NewCustomer(firstName, lastName, phoneNumber string, age int, monthlyIncome int64) *Customer {
	now := time.Now()
	return &Customer{
		FirstName:     firstName,
		LastName:      lastName,
		PhoneNumber:   phoneNumber,
		Age:           age,
		MonthlyIncome: monthlyIncome,
		ApprovedLimit: CalculateApprovedLimit(monthlyIncome),
		CurrentDebt:   decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CalculateApprovedLimit returns 36x monthly income rounded to the nearest
// 100,000, half up. Negative income yields a zero limit.
func CalculateApprovedLimit(monthlyIncome int64) int64 {
	if monthlyIncome <= 0 {
		return 0
	}
	return money.RoundToLakh(ApprovedLimitMultiplier * monthlyIncome)
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
