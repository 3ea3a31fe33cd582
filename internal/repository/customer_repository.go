package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

type customerRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewCustomerRepository(db SQLExecutor, logger *slog.Logger) domain.CustomerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *customerRepository) GetByCustomerID(customerID string) (*domain.Customer, error) {
	query := `
		SELECT id, customer_id, created_at
		FROM customer WHERE customer_id = $1
	`

	var customer domain.Customer
	err := r.db.QueryRow(query, customerID).Scan(
		&customer.ID,
		&customer.CustomerID,
		&customer.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			// Absence is a normal branch for the upsert resolver.
			return nil, nil
		}
		r.logger.Error("Failed to look up customer", "customer_id", customerID, "error", err)
		return nil, errors.NewPersistenceError("failed to look up customer", err)
	}

	return &customer, nil
}

func (r *customerRepository) CreateCustomer(customer *domain.Customer) error {
	query := `
		INSERT INTO customer (customer_id, created_at)
		VALUES ($1, $2)
		RETURNING id
	`

	now := time.Now()
	if err := r.db.QueryRow(query, customer.CustomerID, now).Scan(&customer.ID); err != nil {
		r.logger.Error("Failed to create customer", "customer_id", customer.CustomerID, "error", err)
		return errors.NewPersistenceError("failed to create customer", err)
	}

	customer.CreatedAt = now
	r.logger.Info("Customer created", "customer_id", customer.CustomerID)
	return nil
}
