package repository

import (
	"database/sql"
	"log/slog"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

// Store implements domain.Store on top of database/sql. A Store built with
// NewStore runs every repository call in autocommit mode; the Store handed to
// a WithTransaction body is bound to a single open *sql.Tx.
type Store struct {
	db       *sql.DB
	executor SQLExecutor
	logger   *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		executor: db,
		logger:   logger,
	}
}

func (s *Store) Customers() domain.CustomerRepository {
	return NewCustomerRepository(s.executor, s.logger)
}

func (s *Store) Merchants() domain.MerchantRepository {
	return NewMerchantRepository(s.executor, s.logger)
}

func (s *Store) BillingAddresses() domain.BillingAddressRepository {
	return NewBillingAddressRepository(s.executor, s.logger)
}

func (s *Store) PaymentDetails() domain.PaymentDetailRepository {
	return NewPaymentDetailRepository(s.executor, s.logger)
}

func (s *Store) Transactions() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// WithTransaction opens exactly one database transaction, runs fn against a
// Store bound to it, and commits when fn returns nil. Any error from fn, and
// any panic, rolls the whole scope back; partial write graphs never persist.
// Nested scopes are not supported.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	if s.db == nil {
		return errors.NewAppError(errors.InternalError, "store is already transaction-bound")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewPersistenceError("failed to begin transaction", err)
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		// Commit failure is terminal for the scope; the driver has already
		// discarded the writes.
		return errors.NewPersistenceError("failed to commit transaction", err)
	}

	return nil
}

var _ domain.Store = (*Store)(nil)
