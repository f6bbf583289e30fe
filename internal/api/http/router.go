package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Accounts     *AccountHandler
	Transactions *TransactionHandler
	Schedules    *ScheduleHandler
	Contracts    *ContractHandler
	Webhooks     *WebhookHandler
	Auth         *AuthMiddleware
}

// NewRouter builds the HTTP surface. Webhooks authenticate via signature and
// stay outside the bearer token middleware; everything under /api/v1 requires
// a valid token, and mutating operator endpoints additionally require the
// admin role.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/webhooks/payments", h.Webhooks.HandlePaymentEvent).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.Auth.Authenticate)

	// Accounts and ledger
	api.HandleFunc("/accounts", RequireAdmin(h.Accounts.OpenAccount)).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{franchiseeID}", h.Accounts.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{franchiseeID}/movements", h.Accounts.ListMovements).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{franchiseeID}/adjustments", RequireAdmin(h.Accounts.Adjust)).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{franchiseeID}/credit-check", h.Accounts.CreditCheck).Methods(http.MethodGet)

	// Transactions
	api.HandleFunc("/transactions", h.Transactions.Create).Methods(http.MethodPost)
	api.HandleFunc("/transactions", h.Transactions.List).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.Transactions.Get).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}/initiate", h.Transactions.InitiatePayment).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}/cancel", h.Transactions.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}/refund", RequireAdmin(h.Transactions.Refund)).Methods(http.MethodPost)
	api.HandleFunc("/stock-purchases", RequireAdmin(h.Transactions.RecordStockPurchase)).Methods(http.MethodPost)

	// Payment schedules
	api.HandleFunc("/franchisees/{franchiseeID}/schedules", h.Schedules.List).Methods(http.MethodGet)
	api.HandleFunc("/schedules/{id}", h.Schedules.Get).Methods(http.MethodGet)
	api.HandleFunc("/schedules/{id}/revenue", h.Schedules.RecordRevenue).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}/materialize", RequireAdmin(h.Schedules.Materialize)).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}/cancel", RequireAdmin(h.Schedules.Cancel)).Methods(http.MethodPost)

	// Contracts
	api.HandleFunc("/contracts", RequireAdmin(h.Contracts.Create)).Methods(http.MethodPost)
	api.HandleFunc("/contracts/{id}", h.Contracts.Get).Methods(http.MethodGet)
	api.HandleFunc("/contracts/{id}/activate", RequireAdmin(h.Contracts.Activate)).Methods(http.MethodPost)

	return r
}
