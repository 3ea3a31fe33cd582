package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"payment-intake/internal/errors"
	"payment-intake/internal/service"
)

// RequestModel is the inbound wire shape. Field names follow the upstream
// gateway contract, camelCase and all.
type RequestModel struct {
	Lang        string           `json:"lang"`
	Merchant    MerchantModel    `json:"merchant"`
	Customer    CustomerModel    `json:"customer"`
	Transaction TransactionModel `json:"transaction"`
}

type MerchantModel struct {
	MerchantID string `json:"merchantID"`
	CustomerID string `json:"customerID"`
}

type CustomerModel struct {
	BillingAddress BillingAddressModel `json:"billingAddress"`
}

type BillingAddressModel struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	MobileNo     string  `json:"mobileNo"`
	EmailID      string  `json:"emailId"`
	AddressLine1 string  `json:"addressLine1"`
	City         string  `json:"city"`
	State        *string `json:"state,omitempty"`
	Zip          string  `json:"zip"`
	Country      string  `json:"country"`
}

type TransactionModel struct {
	TxnAmount     json.Number        `json:"txnAmount"`
	PaymentType   string             `json:"paymentType"`
	CurrencyCode  string             `json:"currencyCode"`
	TxnReference  string             `json:"txnReference"`
	Seriestype    *string            `json:"seriestype,omitempty"`
	Method        *string            `json:"method,omitempty"`
	PaymentDetail PaymentDetailModel `json:"paymentDetail"`
	URL           URLModel           `json:"url"`
}

type PaymentDetailModel struct {
	CardNumber string      `json:"cardNumber"`
	CardType   string      `json:"cardType"`
	ExpYear    json.Number `json:"expYear"`
	ExpMonth   json.Number `json:"expMonth"`
	NameOnCard string      `json:"nameOnCard"`
	// SaveDetails is kept raw: some gateways send a JSON bool, others the
	// string "true"/"false". The coercion rule downstream is exact-match
	// against the token "true".
	SaveDetails json.RawMessage `json:"saveDetails"`
	CVV         string          `json:"cvv"`
}

type URLModel struct {
	SuccessURL string `json:"successURL"`
	FailURL    string `json:"failURL"`
}

// Validate rejects malformed requests before they reach the persistence
// workflow. It checks presence, email syntax, the two-character country
// code, and that the numeric fields parse.
func (r *RequestModel) Validate() *errors.AppError {
	required := []struct {
		name  string
		value string
	}{
		{"merchant.merchantID", r.Merchant.MerchantID},
		{"merchant.customerID", r.Merchant.CustomerID},
		{"customer.billingAddress.firstName", r.Customer.BillingAddress.FirstName},
		{"customer.billingAddress.lastName", r.Customer.BillingAddress.LastName},
		{"customer.billingAddress.mobileNo", r.Customer.BillingAddress.MobileNo},
		{"customer.billingAddress.emailId", r.Customer.BillingAddress.EmailID},
		{"customer.billingAddress.addressLine1", r.Customer.BillingAddress.AddressLine1},
		{"customer.billingAddress.city", r.Customer.BillingAddress.City},
		{"customer.billingAddress.zip", r.Customer.BillingAddress.Zip},
		{"transaction.paymentType", r.Transaction.PaymentType},
		{"transaction.currencyCode", r.Transaction.CurrencyCode},
		{"transaction.txnReference", r.Transaction.TxnReference},
		{"transaction.paymentDetail.cardNumber", r.Transaction.PaymentDetail.CardNumber},
		{"transaction.paymentDetail.cardType", r.Transaction.PaymentDetail.CardType},
		{"transaction.paymentDetail.nameOnCard", r.Transaction.PaymentDetail.NameOnCard},
		{"transaction.paymentDetail.cvv", r.Transaction.PaymentDetail.CVV},
		{"transaction.url.successURL", r.Transaction.URL.SuccessURL},
		{"transaction.url.failURL", r.Transaction.URL.FailURL},
	}
	for _, field := range required {
		if field.value == "" {
			return errors.NewAppErrorf(errors.ValidationError, "%s is required", field.name)
		}
	}

	if _, err := mail.ParseAddress(r.Customer.BillingAddress.EmailID); err != nil {
		return errors.NewAppError(errors.ValidationError, "customer.billingAddress.emailId is not a valid email address")
	}

	if len(r.Customer.BillingAddress.Country) != 2 {
		return errors.NewAppError(errors.ValidationError, "customer.billingAddress.country must be exactly 2 characters")
	}

	amount, err := decimal.NewFromString(r.Transaction.TxnAmount.String())
	if err != nil {
		return errors.NewAppError(errors.ValidationError, "transaction.txnAmount must be a decimal number")
	}
	if amount.IsNegative() || amount.IsZero() {
		return errors.NewAppError(errors.ValidationError, "transaction.txnAmount must be positive")
	}

	if _, err := r.Transaction.PaymentDetail.ExpYear.Int64(); err != nil {
		return errors.NewAppError(errors.ValidationError, "transaction.paymentDetail.expYear must be an integer")
	}
	if _, err := r.Transaction.PaymentDetail.ExpMonth.Int64(); err != nil {
		return errors.NewAppError(errors.ValidationError, "transaction.paymentDetail.expMonth must be an integer")
	}

	return nil
}

// ToIntakeRequest converts the validated wire model into the service input.
// Validate must have succeeded first.
func (r *RequestModel) ToIntakeRequest() (*service.IntakeRequest, error) {
	amount, err := decimal.NewFromString(r.Transaction.TxnAmount.String())
	if err != nil {
		return nil, errors.NewAppError(errors.ValidationError, "transaction.txnAmount must be a decimal number")
	}

	expYear, err := r.Transaction.PaymentDetail.ExpYear.Int64()
	if err != nil {
		return nil, errors.NewAppError(errors.ValidationError, "transaction.paymentDetail.expYear must be an integer")
	}
	expMonth, err := r.Transaction.PaymentDetail.ExpMonth.Int64()
	if err != nil {
		return nil, errors.NewAppError(errors.ValidationError, "transaction.paymentDetail.expMonth must be an integer")
	}

	return &service.IntakeRequest{
		Lang:       r.Lang,
		MerchantID: r.Merchant.MerchantID,
		CustomerID: r.Merchant.CustomerID,
		Billing: service.BillingAddressInput{
			FirstName:    r.Customer.BillingAddress.FirstName,
			LastName:     r.Customer.BillingAddress.LastName,
			MobileNo:     r.Customer.BillingAddress.MobileNo,
			EmailID:      r.Customer.BillingAddress.EmailID,
			AddressLine1: r.Customer.BillingAddress.AddressLine1,
			City:         r.Customer.BillingAddress.City,
			State:        r.Customer.BillingAddress.State,
			Zip:          r.Customer.BillingAddress.Zip,
			Country:      r.Customer.BillingAddress.Country,
		},
		Payment: service.PaymentDetailInput{
			CardNumber:  r.Transaction.PaymentDetail.CardNumber,
			CardType:    r.Transaction.PaymentDetail.CardType,
			ExpYear:     int(expYear),
			ExpMonth:    int(expMonth),
			NameOnCard:  r.Transaction.PaymentDetail.NameOnCard,
			SaveDetails: r.Transaction.PaymentDetail.saveDetailsToken(),
			CVV:         r.Transaction.PaymentDetail.CVV,
		},
		TxnAmount:    amount,
		PaymentType:  r.Transaction.PaymentType,
		CurrencyCode: r.Transaction.CurrencyCode,
		TxnReference: r.Transaction.TxnReference,
		Seriestype:   r.Transaction.Seriestype,
		Method:       r.Transaction.Method,
		SuccessURL:   r.Transaction.URL.SuccessURL,
		FailURL:      r.Transaction.URL.FailURL,
	}, nil
}

// saveDetailsToken normalizes the raw saveDetails value to a bare token:
// a JSON string yields its contents, anything else (bool, number, absent)
// yields its raw text. Malformed input degrades to a token that simply
// won't match "true".
func (d *PaymentDetailModel) saveDetailsToken() string {
	if len(d.SaveDetails) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(d.SaveDetails, &s); err == nil {
		return s
	}

	return strings.TrimSpace(string(d.SaveDetails))
}

// Fingerprint hashes the canonical re-marshalled form of the request; two
// submissions with identical content map to the same cache key regardless
// of whitespace or field order on the wire.
func (r *RequestModel) Fingerprint() (string, []byte, error) {
	canonical, err := json.Marshal(r)
	if err != nil {
		return "", nil, err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), canonical, nil
}
