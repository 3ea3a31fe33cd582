package domain

import (
	"time"
)

// Customer is created once per natural key (customer_id) and never updated
// by the intake workflow afterwards.
type Customer struct {
	ID         int64     `json:"id"`
	CustomerID string    `json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Merchant struct {
	ID         int64     `json:"id"`
	MerchantID string    `json:"merchant_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type CustomerRepository interface {
	// GetByCustomerID returns (nil, nil) when no row matches; absence is a
	// normal branch during upsert resolution, not an error.
	GetByCustomerID(customerID string) (*Customer, error)
	CreateCustomer(customer *Customer) error
}

type MerchantRepository interface {
	GetByMerchantID(merchantID string) (*Merchant, error)
	CreateMerchant(merchant *Merchant) error
}
