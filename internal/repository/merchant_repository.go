package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

type merchantRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewMerchantRepository(db SQLExecutor, logger *slog.Logger) domain.MerchantRepository {
	return &merchantRepository{
		db:     db,
		logger: logger,
	}
}

func (r *merchantRepository) GetByMerchantID(merchantID string) (*domain.Merchant, error) {
	query := `
		SELECT id, merchant_id, created_at
		FROM merchant WHERE merchant_id = $1
	`

	var merchant domain.Merchant
	err := r.db.QueryRow(query, merchantID).Scan(
		&merchant.ID,
		&merchant.MerchantID,
		&merchant.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to look up merchant", "merchant_id", merchantID, "error", err)
		return nil, errors.NewPersistenceError("failed to look up merchant", err)
	}

	return &merchant, nil
}

func (r *merchantRepository) CreateMerchant(merchant *domain.Merchant) error {
	query := `
		INSERT INTO merchant (merchant_id, created_at)
		VALUES ($1, $2)
		RETURNING id
	`

	now := time.Now()
	if err := r.db.QueryRow(query, merchant.MerchantID, now).Scan(&merchant.ID); err != nil {
		r.logger.Error("Failed to create merchant", "merchant_id", merchant.MerchantID, "error", err)
		return errors.NewPersistenceError("failed to create merchant", err)
	}

	merchant.CreatedAt = now
	r.logger.Info("Merchant created", "merchant_id", merchant.MerchantID)
	return nil
}
