package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	query := `
		INSERT INTO transaction
		(txn_amount, payment_type, currency_code, txn_reference, seriestype, method,
		 success_url, fail_url, merchant_id, customer_id, payment_detail_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	now := time.Now()

	var seriestype, method interface{}
	if tx.Seriestype != nil {
		seriestype = *tx.Seriestype
	}
	if tx.Method != nil {
		method = *tx.Method
	}

	err := r.db.QueryRow(
		query,
		tx.TxnAmount.String(),
		tx.PaymentType,
		tx.CurrencyCode,
		tx.TxnReference,
		seriestype,
		method,
		tx.SuccessURL,
		tx.FailURL,
		tx.MerchantID,
		tx.CustomerID,
		tx.PaymentDetailID,
		now,
	).Scan(&tx.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" { // foreign_key_violation
				r.logger.Error("Transaction references missing parent row",
					"merchant_id", tx.MerchantID,
					"customer_id", tx.CustomerID,
					"payment_detail_id", tx.PaymentDetailID)
			}
		}
		r.logger.Error("Failed to create transaction",
			"txn_reference", tx.TxnReference,
			"merchant_id", tx.MerchantID,
			"customer_id", tx.CustomerID,
			"error", err)
		return errors.NewPersistenceError("failed to create transaction", err)
	}

	tx.CreatedAt = now
	r.logger.Info("Transaction created",
		"transaction_id", tx.ID,
		"txn_reference", tx.TxnReference)
	return nil
}

func (r *transactionRepository) GetByReference(txnReference string) (*domain.Transaction, error) {
	query := `
		SELECT id, txn_amount, payment_type, currency_code, txn_reference, seriestype, method,
		       success_url, fail_url, merchant_id, customer_id, payment_detail_id, created_at
		FROM transaction WHERE txn_reference = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var (
		tx         domain.Transaction
		amountStr  string
		seriestype sql.NullString
		method     sql.NullString
	)

	err := r.db.QueryRow(query, txnReference).Scan(
		&tx.ID,
		&amountStr,
		&tx.PaymentType,
		&tx.CurrencyCode,
		&tx.TxnReference,
		&seriestype,
		&method,
		&tx.SuccessURL,
		&tx.FailURL,
		&tx.MerchantID,
		&tx.CustomerID,
		&tx.PaymentDetailID,
		&tx.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", "txn_reference", txnReference, "error", err)
		return nil, errors.NewPersistenceError("failed to get transaction", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to parse transaction amount", err)
	}
	tx.TxnAmount = amount

	if seriestype.Valid {
		tx.Seriestype = &seriestype.String
	}
	if method.Valid {
		tx.Method = &method.String
	}

	return &tx, nil
}
