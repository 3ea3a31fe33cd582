package repository

import (
	"log/slog"
	"time"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

type paymentDetailRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewPaymentDetailRepository(db SQLExecutor, logger *slog.Logger) domain.PaymentDetailRepository {
	return &paymentDetailRepository{
		db:     db,
		logger: logger,
	}
}

// CreatePaymentDetail inserts the row and scans back the generated identity.
// Inside an open transaction this is the flush point: detail.ID becomes
// usable as a foreign key while the row itself is still rollback-able.
func (r *paymentDetailRepository) CreatePaymentDetail(detail *domain.PaymentDetail) error {
	query := `
		INSERT INTO payment_detail
		(card_number, card_type, exp_year, exp_month, name_on_card, save_details, cvv, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		detail.CardNumber,
		detail.CardType,
		detail.ExpYear,
		detail.ExpMonth,
		detail.NameOnCard,
		detail.SaveDetails,
		detail.CVV,
		now,
	).Scan(&detail.ID)

	if err != nil {
		r.logger.Error("Failed to create payment detail", "error", err)
		return errors.NewPersistenceError("failed to create payment detail", err)
	}

	detail.CreatedAt = now
	return nil
}
