package service

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"payment-intake/internal/domain"
	"payment-intake/internal/errors"
)

// saveDetailsTrueToken is the only value that stores save_details as true.
// Anything else, including case variants and malformed input, stores false.
// This lenient coercion is a deliberate product decision; do not tighten it.
const saveDetailsTrueToken = "true"

type TransactionService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewTransactionService(store domain.Store, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		logger: logger,
	}
}

// IntakeRequest is the already-validated submission handed in by the HTTP
// layer. Amount and expiry fields arrive parsed; SaveDetails stays a raw
// token so the exact-match coercion rule applies here, in one place.
type IntakeRequest struct {
	Lang         string
	MerchantID   string
	CustomerID   string
	Billing      BillingAddressInput
	Payment      PaymentDetailInput
	TxnAmount    decimal.Decimal
	PaymentType  string
	CurrencyCode string
	TxnReference string
	Seriestype   *string
	Method       *string
	SuccessURL   string
	FailURL      string
}

type BillingAddressInput struct {
	FirstName    string
	LastName     string
	MobileNo     string
	EmailID      string
	AddressLine1 string
	City         string
	State        *string
	Zip          string
	Country      string
}

type PaymentDetailInput struct {
	CardNumber  string
	CardType    string
	ExpYear     int
	ExpMonth    int
	NameOnCard  string
	SaveDetails string
	CVV         string
}

// InsertTransaction persists the full record graph for one submission inside
// a single atomic scope. Customer and merchant are resolved-or-created by
// natural key; billing address and payment detail are created fresh every
// time; the transaction row is written last, after the payment detail's
// generated identity is known. Any failure rolls the whole scope back and
// surfaces as a persistence-coded error wrapping the cause.
func (s *TransactionService) InsertTransaction(req *IntakeRequest) error {
	s.logger.Info("Processing transaction intake",
		"txn_reference", req.TxnReference,
		"merchant_id", req.MerchantID,
		"customer_id", req.CustomerID)

	err := s.store.WithTransaction(func(tx domain.Store) error {
		if err := s.resolveCustomer(tx, req.CustomerID); err != nil {
			return err
		}

		if err := s.resolveMerchant(tx, req.MerchantID); err != nil {
			return err
		}

		address := &domain.BillingAddress{
			CustomerID:   req.CustomerID,
			FirstName:    req.Billing.FirstName,
			LastName:     req.Billing.LastName,
			MobileNo:     req.Billing.MobileNo,
			EmailID:      req.Billing.EmailID,
			AddressLine1: req.Billing.AddressLine1,
			City:         req.Billing.City,
			State:        req.Billing.State,
			Zip:          req.Billing.Zip,
			Country:      req.Billing.Country,
		}
		if err := tx.BillingAddresses().CreateBillingAddress(address); err != nil {
			return err
		}

		detail := &domain.PaymentDetail{
			CardNumber:  req.Payment.CardNumber,
			CardType:    req.Payment.CardType,
			ExpYear:     req.Payment.ExpYear,
			ExpMonth:    req.Payment.ExpMonth,
			NameOnCard:  req.Payment.NameOnCard,
			SaveDetails: req.Payment.SaveDetails == saveDetailsTrueToken,
			CVV:         req.Payment.CVV,
		}
		// This insert doubles as the flush: detail.ID comes back from the
		// database while the scope is still open, so the transaction row
		// below can reference it and still roll back with everything else.
		if err := tx.PaymentDetails().CreatePaymentDetail(detail); err != nil {
			return err
		}

		transaction := &domain.Transaction{
			TxnAmount:       req.TxnAmount,
			PaymentType:     req.PaymentType,
			CurrencyCode:    req.CurrencyCode,
			TxnReference:    req.TxnReference,
			Seriestype:      req.Seriestype,
			Method:          req.Method,
			SuccessURL:      req.SuccessURL,
			FailURL:         req.FailURL,
			MerchantID:      req.MerchantID,
			CustomerID:      req.CustomerID,
			PaymentDetailID: detail.ID,
		}

		return tx.Transactions().CreateTransaction(transaction)
	})

	if err != nil {
		s.logger.Error("Transaction intake failed",
			"txn_reference", req.TxnReference,
			"error", err)
		if appErr, ok := err.(*errors.AppError); ok {
			return appErr
		}
		return errors.NewPersistenceError("failed to persist transaction", err)
	}

	s.logger.Info("Transaction intake completed", "txn_reference", req.TxnReference)
	return nil
}

// resolveCustomer is the upsert half for customers: reuse the existing row
// when the natural key is known, otherwise insert it within the current
// scope. Two concurrent scopes racing on the same new key are not isolated
// here; the loser hits the unique constraint and its scope rolls back.
func (s *TransactionService) resolveCustomer(tx domain.Store, customerID string) error {
	existing, err := tx.Customers().GetByCustomerID(customerID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return tx.Customers().CreateCustomer(&domain.Customer{CustomerID: customerID})
}

func (s *TransactionService) resolveMerchant(tx domain.Store, merchantID string) error {
	existing, err := tx.Merchants().GetByMerchantID(merchantID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return tx.Merchants().CreateMerchant(&domain.Merchant{MerchantID: merchantID})
}

// GetTransactionByReference returns the most recent transaction for a
// reference string, for the read-side lookup endpoint.
func (s *TransactionService) GetTransactionByReference(txnReference string) (*domain.Transaction, error) {
	if txnReference == "" {
		return nil, errors.NewAppError(errors.ValidationError, "txn_reference must not be empty")
	}

	tx, err := s.store.Transactions().GetByReference(txnReference)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, errors.ErrTransactionNotFound
	}

	return tx, nil
}
