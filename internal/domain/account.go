package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusBlocked   AccountStatus = "BLOCKED"
)

// Account is the per-franchisee running balance. One row per franchisee,
// created at provisioning time and never deleted, only status-transitioned.
type Account struct {
	FranchiseeID       int32           `json:"franchisee_id"`
	CurrentBalance     decimal.Decimal `json:"current_balance"`
	AvailableCredit    decimal.Decimal `json:"available_credit"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	TotalRoyaltiesPaid decimal.Decimal `json:"total_royalties_paid"`
	Status             AccountStatus   `json:"status"`
	LastTransactionAt  *time.Time      `json:"last_transaction_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CanPost reports whether the account accepts new movements. Blocked accounts
// are frozen after a failed consistency audit and stay frozen until an
// operator intervenes.
func (a *Account) CanPost() bool {
	return a.Status != AccountStatusBlocked
}

// HasSufficientCredit is informational only. Debits are never blocked by it;
// franchisees are allowed to owe money.
func (a *Account) HasSufficientCredit(amount decimal.Decimal) bool {
	return a.CurrentBalance.Add(a.AvailableCredit).GreaterThanOrEqual(amount)
}
