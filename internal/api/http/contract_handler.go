package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/service"
)

// ContractHandler provisions franchise contracts.
type ContractHandler struct {
	contracts service.ContractService
}

func NewContractHandler(contracts service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

type createContractRequest struct {
	FranchiseeID   int32            `json:"franchisee_id"`
	RoyaltyRate    decimal.Decimal  `json:"royalty_rate"`
	MonthlyRoyalty *decimal.Decimal `json:"monthly_royalty,omitempty"`
	FranchiseFee   decimal.Decimal  `json:"franchise_fee"`
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	contract, err := h.contracts.Create(r.Context(), service.NewContract{
		FranchiseeID:   req.FranchiseeID,
		RoyaltyRate:    req.RoyaltyRate,
		MonthlyRoyalty: req.MonthlyRoyalty,
		FranchiseFee:   req.FranchiseFee,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contract)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contract, err := h.contracts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	contract, err := h.contracts.Activate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}
