package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"summerfest/internal/models"
	"summerfest/internal/service"
)

// FamilyHandler serves family dashboards and the payments desk
type FamilyHandler struct {
	summary *service.SummaryService
	ledger  *service.LedgerService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(summary *service.SummaryService, ledger *service.LedgerService) *FamilyHandler {
	return &FamilyHandler{summary: summary, ledger: ledger}
}

// Summary handles GET /families/{id}/summary?date=
func (h *FamilyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", err)
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDate, "", err)
		return
	}

	summary, err := h.summary.GetFamilyWeeklySummary(r.Context(), familyID, date)
	if err != nil {
		respondWithServiceError(w, "Error building summary", err)
		return
	}
	respondJSON(w, http.StatusOK, newSummaryView(summary))
}

type paymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	RecordedBy string          `json:"recorded_by"`
	Note       string          `json:"note"`
	Reference  string          `json:"reference"`
}

type paymentResponse struct {
	Transaction TransactionView `json:"transaction"`
	Duplicate   bool            `json:"duplicate,omitempty"`
}

// RecordPayment handles POST /families/{id}/payments. Gateway confirmations
// carry a reference and method stripe; anything else is a desk payment.
func (h *FamilyHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequest, "", err)
		return
	}

	var txn *models.LedgerTransaction
	method := models.PaymentMethod(req.Method)
	if method == models.MethodStripe {
		txn, err = h.ledger.RecordGatewayPayment(r.Context(), familyID, req.Amount, req.Reference)
	} else {
		txn, err = h.ledger.RecordManualPayment(r.Context(), familyID, req.Amount, method, req.RecordedBy, req.Note)
	}
	if errors.Is(err, service.ErrPaymentAlreadyRecorded) && txn != nil {
		respondJSON(w, http.StatusOK, paymentResponse{Transaction: newTransactionView(*txn), Duplicate: true})
		return
	}
	if err != nil {
		respondWithServiceError(w, "Error recording payment", err)
		return
	}

	respondJSON(w, http.StatusCreated, paymentResponse{Transaction: newTransactionView(*txn)})
}

// Ledger handles GET /families/{id}/ledger
func (h *FamilyHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", err)
		return
	}

	account, err := h.ledger.GetOrCreateAccount(r.Context(), familyID)
	if err != nil {
		respondWithServiceError(w, "Error loading ledger", err)
		return
	}
	txns, err := h.ledger.Transactions(r.Context(), familyID)
	if err != nil {
		respondWithServiceError(w, "Error loading ledger", err)
		return
	}

	view := LedgerView{
		FamilyID:     familyID,
		Balance:      account.Balance.StringFixed(2),
		Transactions: make([]TransactionView, 0, len(txns)),
	}
	for _, txn := range txns {
		view.Transactions = append(view.Transactions, newTransactionView(txn))
	}
	respondJSON(w, http.StatusOK, view)
}
