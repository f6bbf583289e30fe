package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, acct *domain.Account) error
	GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.Account, error)
	UpdateStatus(ctx context.Context, franchiseeID int32, status domain.AccountStatus) error
	ListFranchiseeIDs(ctx context.Context) ([]int32, error)
}

// LedgerRepository owns the movement journal. Post is the single entry point
// for balance mutation: it locks the account row, applies the balance change
// and appends the movement inside one database transaction. No other code
// writes current_balance.
type LedgerRepository interface {
	Post(ctx context.Context, posting *domain.Posting) (*domain.AccountMovement, error)
	ListMovements(ctx context.Context, franchiseeID int32, page, pageSize int32) ([]domain.AccountMovement, int32, error)
	SumMovements(ctx context.Context, franchiseeID int32) (decimal.Decimal, error)
}

// Settlement describes the completion of a transaction. The implementation
// must perform the status guard, the status update, the balance movement and
// the schedule claim in a single database transaction.
type Settlement struct {
	TransactionID         int64
	ProviderTransactionID string
	CompletedAt           time.Time
}

// SettlementResult reports what the atomic settle actually did.
type SettlementResult struct {
	Transaction *domain.Transaction
	Movement    *domain.AccountMovement
	// ScheduleID is non-nil when the settle claimed and paid a schedule.
	ScheduleID *int64
	// AlreadySettled is true when the transaction was COMPLETED before the
	// call; nothing was changed (idempotent replay).
	AlreadySettled bool
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByProviderID(ctx context.Context, providerID string) (*domain.Transaction, error)
	SetProviderID(ctx context.Context, id int64, providerID string) error

	// TransitionStatus applies a guarded state transition: the current status
	// is read under a row lock, checked against the transition table, and
	// updated together with the metadata merge in one transaction.
	TransitionStatus(ctx context.Context, id int64, to domain.TransactionStatus, metadata map[string]string) (*domain.Transaction, error)

	// Settle completes a transaction and posts the resulting movement
	// atomically. Safe to call repeatedly for the same transaction.
	Settle(ctx context.Context, s Settlement) (*SettlementResult, error)

	ListByFranchisee(ctx context.Context, franchiseeID int32, status string, page, pageSize int32) ([]domain.Transaction, int32, error)
	ListPendingPastDue(ctx context.Context, asOf time.Time) ([]domain.Transaction, error)
	ListPendingOverdueSince(ctx context.Context, dueBefore time.Time) ([]domain.Transaction, error)
	ListAbandoned(ctx context.Context, initiatedBefore time.Time) ([]domain.Transaction, error)
	FlagAbandoned(ctx context.Context, id int64, at time.Time) error
}

type ScheduleRepository interface {
	// CreateBatch inserts the schedules and returns how many rows actually
	// landed. A unique index on (contract_id, type, period_start) drops
	// duplicates silently, so concurrent writers generating the same
	// schedule cannot double it; losers see inserted < len(schedules).
	CreateBatch(ctx context.Context, schedules []*domain.PaymentSchedule) (int, error)
	GetByID(ctx context.Context, id int64) (*domain.PaymentSchedule, error)
	ListByFranchisee(ctx context.Context, franchiseeID int32, status string) ([]domain.PaymentSchedule, error)
	ListDueWithin(ctx context.Context, from, to time.Time) ([]domain.PaymentSchedule, error)
	SetRevenue(ctx context.Context, id int64, revenue decimal.Decimal) error
	IncrementReminder(ctx context.Context, id int64, at time.Time, markOverdue bool) error
	Cancel(ctx context.Context, id int64) error

	// Materialize creates tx as a PENDING transaction and claims the schedule
	// for it in one database transaction. First writer wins; losers get
	// domain.ErrScheduleAlreadyMaterialized and no new transaction.
	Materialize(ctx context.Context, scheduleID int64, tx *domain.Transaction) error

	// ReleaseClaim detaches a failed or cancelled transaction from its
	// schedule so a later sweep can materialize it again. Guarded on the
	// transaction id; a claim held by someone else is left alone.
	ReleaseClaim(ctx context.Context, scheduleID, transactionID int64, asOf time.Time) error
}

// ContactResolver maps a franchisee to a billing contact. The franchisee
// entity itself is owned by an external system; this is a read-only lookup.
type ContactResolver interface {
	FranchiseeContact(ctx context.Context, franchiseeID int32) (email string, name string, err error)
}

type ContractRepository interface {
	Create(ctx context.Context, c *domain.FranchiseContract) error
	GetByID(ctx context.Context, id int64) (*domain.FranchiseContract, error)
	GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.FranchiseContract, error)
	Activate(ctx context.Context, id int64, at time.Time) error
	MarkAtRisk(ctx context.Context, id int64) error
}
