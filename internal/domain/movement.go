package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementTypeDebit      MovementType = "DEBIT"
	MovementTypeCredit     MovementType = "CREDIT"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// AccountMovement is one immutable ledger line. Rows are append-only; they
// are never updated or deleted once written.
type AccountMovement struct {
	ID            int64           `json:"id"`
	FranchiseeID  int32           `json:"franchisee_id"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
	Type          MovementType    `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	CreatedBy     *int32          `json:"created_by,omitempty"` // admin id for manual adjustments
	CreatedAt     time.Time       `json:"created_at"`
}

// Posting is the input for appending one movement. Amount is strictly
// positive for debits and credits; adjustments carry a signed amount.
type Posting struct {
	FranchiseeID  int32
	Type          MovementType
	Amount        decimal.Decimal
	Description   string
	Category      string
	TransactionID *int64
	CreatedBy     *int32
}

// Signed returns the movement's contribution to the balance: negative for
// debits, positive for credits. Adjustment amounts are stored already signed.
func (m *AccountMovement) Signed() decimal.Decimal {
	switch m.Type {
	case MovementTypeDebit:
		return m.Amount.Neg()
	case MovementTypeCredit:
		return m.Amount
	default:
		return m.Amount
	}
}
