package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeEntryFee       PaymentType = "ENTRY_FEE"
	PaymentTypeMonthlyRoyalty PaymentType = "MONTHLY_ROYALTY"
	PaymentTypeStockPurchase  PaymentType = "STOCK_PURCHASE"
	PaymentTypePenalty        PaymentType = "PENALTY"
	PaymentTypeMaintenance    PaymentType = "MAINTENANCE"
	PaymentTypeRefund         PaymentType = "REFUND"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeEntryFee, PaymentTypeMonthlyRoyalty, PaymentTypeStockPurchase,
		PaymentTypePenalty, PaymentTypeMaintenance, PaymentTypeRefund:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
	TransactionStatusRefunded   TransactionStatus = "REFUNDED"
)

// AllowedTransitions is the closed transition table for the transaction
// lifecycle. Every transaction starts in PENDING; there is no way to create
// one directly in a terminal state.
func AllowedTransitions() map[TransactionStatus][]TransactionStatus {
	return map[TransactionStatus][]TransactionStatus{
		TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
		TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
		TransactionStatusCompleted:  {TransactionStatusRefunded},
		TransactionStatusFailed:     {},
		TransactionStatusCancelled:  {},
		TransactionStatusRefunded:   {},
	}
}

func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	for _, next := range AllowedTransitions()[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Metadata keys the ledger core is allowed to branch on. Everything else in
// the metadata blob is opaque provider payload.
const (
	MetadataFailureReason  = "failure_reason"
	MetadataRequiresAction = "requires_action"
	MetadataAbandonedAt    = "abandoned_at"
	MetadataPeriod         = "period"
	MetadataRefundReason   = "refund_reason"
	MetadataCancelReason   = "cancel_reason"
	MetadataOrderReference = "order_reference"
)

// Transaction is a single payment obligation with a lifecycle. Refunds are
// child transactions pointing at their parent via ParentTransactionID.
type Transaction struct {
	ID                    int64             `json:"id"`
	FranchiseeID          int32             `json:"franchisee_id"`
	PaymentType           PaymentType       `json:"payment_type"`
	Reference             string            `json:"reference"`
	Amount                decimal.Decimal   `json:"amount"`
	Currency              string            `json:"currency"`
	Status                TransactionStatus `json:"status"`
	PaymentMethod         string            `json:"payment_method"`
	ProviderTransactionID *string           `json:"provider_transaction_id,omitempty"`
	ScheduleID            *int64            `json:"schedule_id,omitempty"`
	ParentTransactionID   *int64            `json:"parent_transaction_id,omitempty"`
	ContractID            *int64            `json:"contract_id,omitempty"`
	Description           string            `json:"description"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	DueDate               *time.Time        `json:"due_date,omitempty"`
	InitiatedAt           time.Time         `json:"initiated_at"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// SettlesAsCredit reports whether completing this transaction posts a credit
// movement instead of a debit. Only refunds give money back.
func (t *Transaction) SettlesAsCredit() bool {
	return t.PaymentType == PaymentTypeRefund
}

func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}
