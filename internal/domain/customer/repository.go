package customer

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("customer not found")

	ErrDuplicatePhoneNumber = errors.New("phone number already registered")
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	// SaveBatch inserts customers in bulk, skipping conflicting rows. Used by
	// historical data onboarding only.
	SaveBatch(ctx context.Context, customers []*Customer) (int64, error)

	Delete(ctx context.Context, customerID int64) error
}
