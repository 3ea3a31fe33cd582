package repository

import (
	"log/slog"
	"time"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

type billingAddressRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewBillingAddressRepository(db SQLExecutor, logger *slog.Logger) domain.BillingAddressRepository {
	return &billingAddressRepository{
		db:     db,
		logger: logger,
	}
}

func (r *billingAddressRepository) CreateBillingAddress(address *domain.BillingAddress) error {
	query := `
		INSERT INTO billing_address
		(customer_id, first_name, last_name, mobile_no, email_id, address_line_1, city, state, zip, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	now := time.Now()

	// State is the only nullable billing field.
	var state interface{}
	if address.State != nil {
		state = *address.State
	}

	err := r.db.QueryRow(
		query,
		address.CustomerID,
		address.FirstName,
		address.LastName,
		address.MobileNo,
		address.EmailID,
		address.AddressLine1,
		address.City,
		state,
		address.Zip,
		address.Country,
		now,
	).Scan(&address.ID)

	if err != nil {
		r.logger.Error("Failed to create billing address", "customer_id", address.CustomerID, "error", err)
		return errors.NewPersistenceError("failed to create billing address", err)
	}

	address.CreatedAt = now
	return nil
}
