package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/gateway"
)

// BalanceService is the single mutation path for account balances. Every
// balance change produces an account movement; nothing writes current_balance
// outside this service and the settlement path that shares its storage
// primitive.
type BalanceService interface {
	OpenAccount(ctx context.Context, franchiseeID int32, creditLimit decimal.Decimal) (*domain.Account, error)
	GetAccount(ctx context.Context, franchiseeID int32) (*domain.Account, error)
	Debit(ctx context.Context, franchiseeID int32, amount decimal.Decimal, description, category string, transactionID *int64) (*domain.AccountMovement, error)
	Credit(ctx context.Context, franchiseeID int32, amount decimal.Decimal, description, category string, transactionID *int64) (*domain.AccountMovement, error)
	Adjust(ctx context.Context, franchiseeID int32, amount decimal.Decimal, description string, adminID int32) (*domain.AccountMovement, error)
	HasSufficientCredit(ctx context.Context, franchiseeID int32, amount decimal.Decimal) (bool, error)
	ListMovements(ctx context.Context, franchiseeID int32, page, pageSize int32) ([]domain.AccountMovement, int32, error)
}

// NewTransaction carries the caller-supplied fields for transaction creation.
// Reference and status are assigned by the service.
type NewTransaction struct {
	FranchiseeID  int32
	PaymentType   domain.PaymentType
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	DueDate       *time.Time
	ContractID    *int64
	ScheduleID    *int64
	Metadata      map[string]string
}

// TransactionService drives the transaction lifecycle. Completion settles the
// transaction against the ledger and runs the payment-type cascade (entry fee
// activation, royalty counters, refund linkage).
type TransactionService interface {
	Create(ctx context.Context, input NewTransaction) (*domain.Transaction, error)
	// InitiatePayment opens a payment intent with the provider for a pending
	// transaction and returns the client secret the franchisee pays with.
	InitiatePayment(ctx context.Context, id int64) (*domain.Transaction, string, error)
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	List(ctx context.Context, franchiseeID int32, status domain.TransactionStatus, page, pageSize int32) ([]domain.Transaction, int32, error)
	Complete(ctx context.Context, id int64, providerTransactionID string) (*domain.Transaction, error)
	Fail(ctx context.Context, id int64, reason string) (*domain.Transaction, error)
	Cancel(ctx context.Context, id int64, reason string) (*domain.Transaction, error)
	MarkProcessing(ctx context.Context, id int64, requiresAction bool) (*domain.Transaction, error)
	Refund(ctx context.Context, parentID int64, amount *decimal.Decimal, reason string) (*domain.Transaction, error)
	RecordStockPurchase(ctx context.Context, franchiseeID int32, orderReference string, amount decimal.Decimal) (*domain.Transaction, error)
}

// ScheduleService generates and materializes payment schedules.
type ScheduleService interface {
	ScheduleMonthlyRoyalties(ctx context.Context, franchiseeID int32) ([]domain.PaymentSchedule, error)
	Materialize(ctx context.Context, scheduleID int64) (*domain.Transaction, error)
	RecordRevenue(ctx context.Context, scheduleID int64, revenue decimal.Decimal) error
	Get(ctx context.Context, scheduleID int64) (*domain.PaymentSchedule, error)
	List(ctx context.Context, franchiseeID int32, status domain.ScheduleStatus) ([]domain.PaymentSchedule, error)
	Cancel(ctx context.Context, scheduleID int64) error
}

// NewContract carries the operator-supplied contract terms.
type NewContract struct {
	FranchiseeID   int32
	RoyaltyRate    decimal.Decimal
	MonthlyRoyalty *decimal.Decimal
	FranchiseFee   decimal.Decimal
}

// ContractService provisions franchise contracts. Activation normally happens
// through the entry fee settlement cascade; the explicit Activate exists for
// operator overrides.
type ContractService interface {
	Create(ctx context.Context, input NewContract) (*domain.FranchiseContract, error)
	Get(ctx context.Context, id int64) (*domain.FranchiseContract, error)
	GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.FranchiseContract, error)
	Activate(ctx context.Context, id int64) (*domain.FranchiseContract, error)
}

// ReconcilerService applies payment provider events to local transactions.
// Handling is idempotent: replayed and out-of-order events on terminal
// transactions are no-ops.
type ReconcilerService interface {
	HandleEvent(ctx context.Context, event *gateway.Event) error
}

// AuditService verifies that each account balance equals the signed sum of
// its movements. Mismatched accounts are blocked, never repaired.
type AuditService interface {
	AuditAccount(ctx context.Context, franchiseeID int32) error
	AuditAll(ctx context.Context) error
}

// NotificationService delivers franchisee and operator email. Failures are
// logged by callers and never abort the ledger operation that triggered them.
type NotificationService interface {
	SendPaymentReminder(ctx context.Context, tx *domain.Transaction, daysOverdue int, penaltyEstimate decimal.Decimal) error
	SendFinalNotice(ctx context.Context, tx *domain.Transaction, daysOverdue int) error
	SendPaymentConfirmation(ctx context.Context, tx *domain.Transaction) error
	SendOperatorAlert(ctx context.Context, subject, body string) error
}
