package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingAddress is created fresh on every submission; identical addresses
// are deliberately not deduplicated.
type BillingAddress struct {
	ID           int64     `json:"id"`
	CustomerID   string    `json:"customer_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	MobileNo     string    `json:"mobile_no"`
	EmailID      string    `json:"email_id"`
	AddressLine1 string    `json:"address_line_1"`
	City         string    `json:"city"`
	State        *string   `json:"state,omitempty"`
	Zip          string    `json:"zip"`
	Country      string    `json:"country"`
	CreatedAt    time.Time `json:"created_at"`
}

// PaymentDetail's ID is assigned by the database at insert time and must be
// known before the owning Transaction row can be written.
type PaymentDetail struct {
	ID          int64     `json:"id"`
	CardNumber  string    `json:"card_number"`
	CardType    string    `json:"card_type"`
	ExpYear     int       `json:"exp_year"`
	ExpMonth    int       `json:"exp_month"`
	NameOnCard  string    `json:"name_on_card"`
	SaveDetails bool      `json:"save_details"`
	CVV         string    `json:"cvv"`
	CreatedAt   time.Time `json:"created_at"`
}

type Transaction struct {
	ID              int64           `json:"id"`
	TxnAmount       decimal.Decimal `json:"txn_amount"`
	PaymentType     string          `json:"payment_type"`
	CurrencyCode    string          `json:"currency_code"`
	TxnReference    string          `json:"txn_reference"`
	Seriestype      *string         `json:"seriestype,omitempty"`
	Method          *string         `json:"method,omitempty"`
	SuccessURL      string          `json:"success_url"`
	FailURL         string          `json:"fail_url"`
	MerchantID      string          `json:"merchant_id"`
	CustomerID      string          `json:"customer_id"`
	PaymentDetailID int64           `json:"payment_detail_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

type BillingAddressRepository interface {
	CreateBillingAddress(address *BillingAddress) error
}

type PaymentDetailRepository interface {
	// CreatePaymentDetail inserts the row and assigns detail.ID from the
	// database-generated identity before returning.
	CreatePaymentDetail(detail *PaymentDetail) error
}

type TransactionRepository interface {
	CreateTransaction(tx *Transaction) error
	// GetByReference returns the most recent transaction carrying the
	// reference, or (nil, nil) when none exists.
	GetByReference(txnReference string) (*Transaction, error)
}
