package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/service"
)

// AccountHandler serves account balances, movement history and manual
// adjustments.
type AccountHandler struct {
	balance service.BalanceService
}

func NewAccountHandler(balance service.BalanceService) *AccountHandler {
	return &AccountHandler{balance: balance}
}

type openAccountRequest struct {
	FranchiseeID int32           `json:"franchisee_id"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
}

func (h *AccountHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.balance.OpenAccount(r.Context(), req.FranchiseeID, req.CreditLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	franchiseeID, err := pathInt32(r, "franchiseeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.balance.GetAccount(r.Context(), franchiseeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type movementsResponse struct {
	Movements []domain.AccountMovement `json:"movements"`
	Total     int32                    `json:"total"`
	Page      int32                    `json:"page"`
	PageSize  int32                    `json:"page_size"`
}

func (h *AccountHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	franchiseeID, err := pathInt32(r, "franchiseeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize := pagination(r)
	movements, total, err := h.balance.ListMovements(r.Context(), franchiseeID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movementsResponse{
		Movements: movements,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	})
}

type adjustRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *AccountHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	franchiseeID, err := pathInt32(r, "franchiseeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	movement, err := h.balance.Adjust(r.Context(), franchiseeID, req.Amount, req.Description, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, movement)
}

type creditCheckResponse struct {
	Sufficient bool `json:"sufficient"`
}

func (h *AccountHandler) CreditCheck(w http.ResponseWriter, r *http.Request) {
	franchiseeID, err := pathInt32(r, "franchiseeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, r, domain.NewValidationError("amount", "must be a decimal number"))
		return
	}
	ok, err := h.balance.HasSufficientCredit(r.Context(), franchiseeID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creditCheckResponse{Sufficient: ok})
}

func pathInt32(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return int32(v), nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

func pagination(r *http.Request) (int32, int32) {
	page := int32(1)
	pageSize := int32(20)
	if v, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 32); err == nil && v > 0 {
		page = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("page_size"), 10, 32); err == nil && v > 0 && v <= 100 {
		pageSize = int32(v)
	}
	return page, pageSize
}
