package dto

import (
	"testing"

	"credit-engine/internal/domain/customer"

	"github.com/stretchr/testify/assert"
)

func validRegisterRequest() RegisterCustomerRequest {
	return RegisterCustomerRequest{
		FirstName:     "Aarav",
		LastName:      "Sharma",
		Age:           32,
		MonthlyIncome: 85_000,
		PhoneNumber:   "9876543210",
	}
}

func TestRegisterCustomerRequestValidate(t *testing.T) {
	req := validRegisterRequest()
	assert.NoError(t, req.Validate())

	req = validRegisterRequest()
	req.FirstName = "  "
	assert.Error(t, req.Validate())

	req = validRegisterRequest()
	req.Age = 0
	assert.Error(t, req.Validate())

	req = validRegisterRequest()
	req.MonthlyIncome = -1
	assert.Error(t, req.Validate())

	req = validRegisterRequest()
	req.PhoneNumber = ""
	assert.Error(t, req.Validate())
}

func TestNewCustomerResponse(t *testing.T) {
	c := &customer.Customer{
		CustomerID:    3,
		FirstName:     "Aarav",
		LastName:      "Sharma",
		PhoneNumber:   "9876543210",
		Age:           32,
		MonthlyIncome: 85_000,
		ApprovedLimit: 3_100_000,
	}

	resp := NewCustomerResponse(c)
	assert.Equal(t, int64(3), resp.CustomerID)
	assert.Equal(t, "Aarav Sharma", resp.Name)
	assert.Equal(t, int64(3_100_000), resp.ApprovedLimit)
}
