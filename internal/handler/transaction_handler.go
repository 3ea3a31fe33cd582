package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"payment-intake/internal/cache"
	"payment-intake/internal/errors"
	"payment-intake/internal/queue"
	"payment-intake/internal/service"
)

// responseCacheTTL is how long a processed submission keeps answering
// repeats from the cache instead of writing a second record graph.
const responseCacheTTL = 10 * time.Minute

type TransactionHandler struct {
	transactionService *service.TransactionService
	cache              cache.ResponseCache
	publisher          queue.Publisher
	logger             *slog.Logger
}

func NewTransactionHandler(
	transactionService *service.TransactionService,
	responseCache cache.ResponseCache,
	publisher queue.Publisher,
	logger *slog.Logger,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		cache:              responseCache,
		publisher:          publisher,
		logger:             logger,
	}
}

type IntakeResponse struct {
	Description  string `json:"description"`
	StatusCode   int    `json:"statusCode"`
	TxnReference string `json:"txnReference"`
}

// ProcessTransaction is the intake endpoint: validate, answer repeats from
// the cache, persist the record graph, push the raw request onto the audit
// queue, cache and return the confirmation.
func (h *TransactionHandler) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	var req RequestModel
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.ValidationError, "invalid request body").WithDetails(err.Error()))
		return
	}

	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr)
		return
	}

	fingerprint, canonical, err := req.Fingerprint()
	if err != nil {
		writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
		return
	}

	ctx := r.Context()

	// A cache outage must not take the intake path down, so lookup errors
	// degrade to a miss.
	if cached, ok, err := h.cache.Get(ctx, fingerprint); err == nil && ok {
		h.logger.Info("Serving cached response", "txn_reference", req.Transaction.TxnReference)
		writeJSONBytes(w, http.StatusOK, cached)
		return
	}

	intakeReq, err := req.ToIntakeRequest()
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			writeError(w, appErr)
		} else {
			writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
		}
		return
	}

	if err := h.transactionService.InsertTransaction(intakeReq); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			writeError(w, appErr)
		} else {
			writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
		}
		return
	}

	// Audit publish is best-effort; the graph is already committed.
	if err := h.publisher.Publish(ctx, canonical); err != nil {
		h.logger.Error("Failed to publish intake request to audit queue",
			"txn_reference", req.Transaction.TxnReference,
			"error", err)
	}

	data := IntakeResponse{
		Description:  "Transaction has been processed successfully",
		StatusCode:   http.StatusOK,
		TxnReference: req.Transaction.TxnReference,
	}

	body, err := json.Marshal(Response{Data: data})
	if err != nil {
		writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
		return
	}

	if err := h.cache.Set(ctx, fingerprint, body, responseCacheTTL); err != nil {
		h.logger.Error("Failed to cache response", "txn_reference", req.Transaction.TxnReference, "error", err)
	}

	writeJSONBytes(w, http.StatusOK, body)
}

type TransactionResponse struct {
	TransactionID   int64   `json:"transaction_id"`
	TxnAmount       string  `json:"txn_amount"`
	PaymentType     string  `json:"payment_type"`
	CurrencyCode    string  `json:"currency_code"`
	TxnReference    string  `json:"txn_reference"`
	Seriestype      *string `json:"seriestype,omitempty"`
	Method          *string `json:"method,omitempty"`
	MerchantID      string  `json:"merchant_id"`
	CustomerID      string  `json:"customer_id"`
	PaymentDetailID int64   `json:"payment_detail_id"`
	CreatedAt       string  `json:"created_at"`
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	txnReference := vars["txn_reference"]

	transaction, err := h.transactionService.GetTransactionByReference(txnReference)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			writeError(w, appErr)
		} else {
			writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred"))
		}
		return
	}

	response := TransactionResponse{
		TransactionID:   transaction.ID,
		TxnAmount:       transaction.TxnAmount.String(),
		PaymentType:     transaction.PaymentType,
		CurrencyCode:    transaction.CurrencyCode,
		TxnReference:    transaction.TxnReference,
		Seriestype:      transaction.Seriestype,
		Method:          transaction.Method,
		MerchantID:      transaction.MerchantID,
		CustomerID:      transaction.CustomerID,
		PaymentDetailID: transaction.PaymentDetailID,
		CreatedAt:       transaction.CreatedAt.UTC().Format(time.RFC3339),
	}

	writeJSON(w, http.StatusOK, response)
}
