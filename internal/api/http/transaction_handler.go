package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/service"
)

// TransactionHandler drives transaction creation and lifecycle operations.
type TransactionHandler struct {
	transactions service.TransactionService
}

func NewTransactionHandler(transactions service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

type createTransactionRequest struct {
	FranchiseeID  int32             `json:"franchisee_id"`
	PaymentType   string            `json:"payment_type"`
	Amount        decimal.Decimal   `json:"amount"`
	Description   string            `json:"description"`
	PaymentMethod string            `json:"payment_method"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	ContractID    *int64            `json:"contract_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.transactions.Create(r.Context(), service.NewTransaction{
		FranchiseeID:  req.FranchiseeID,
		PaymentType:   domain.PaymentType(req.PaymentType),
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		DueDate:       req.DueDate,
		ContractID:    req.ContractID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type initiatePaymentResponse struct {
	Transaction  *domain.Transaction `json:"transaction"`
	ClientSecret string              `json:"client_secret"`
}

func (h *TransactionHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, secret, err := h.transactions.InitiatePayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initiatePaymentResponse{Transaction: tx, ClientSecret: secret})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.transactions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type transactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int32                `json:"total"`
	Page         int32                `json:"page"`
	PageSize     int32                `json:"page_size"`
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	franchiseeID, err := queryInt32(r, "franchisee_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize := pagination(r)
	status := domain.TransactionStatus(r.URL.Query().Get("status"))
	txs, total, err := h.transactions.List(r.Context(), franchiseeID, status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{
		Transactions: txs,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reasonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.transactions.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason"`
}

func (h *TransactionHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	refund, err := h.transactions.Refund(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, refund)
}

type stockPurchaseRequest struct {
	FranchiseeID   int32           `json:"franchisee_id"`
	OrderReference string          `json:"order_reference"`
	Amount         decimal.Decimal `json:"amount"`
}

func (h *TransactionHandler) RecordStockPurchase(w http.ResponseWriter, r *http.Request) {
	var req stockPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.transactions.RecordStockPurchase(r.Context(), req.FranchiseeID, req.OrderReference, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func queryInt32(r *http.Request, name string) (int32, error) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return int32(v), nil
}
