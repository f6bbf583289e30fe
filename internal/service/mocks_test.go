package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

// MockAccountRepo
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acct *domain.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}
func (m *MockAccountRepo) GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.Account, error) {
	args := m.Called(ctx, franchiseeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) UpdateStatus(ctx context.Context, franchiseeID int32, status domain.AccountStatus) error {
	args := m.Called(ctx, franchiseeID, status)
	return args.Error(0)
}
func (m *MockAccountRepo) ListFranchiseeIDs(ctx context.Context) ([]int32, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int32), args.Error(1)
}

// MockLedgerRepo
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Post(ctx context.Context, posting *domain.Posting) (*domain.AccountMovement, error) {
	args := m.Called(ctx, posting)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountMovement), args.Error(1)
}
func (m *MockLedgerRepo) ListMovements(ctx context.Context, franchiseeID int32, page, pageSize int32) ([]domain.AccountMovement, int32, error) {
	args := m.Called(ctx, franchiseeID, page, pageSize)
	return args.Get(0).([]domain.AccountMovement), args.Get(1).(int32), args.Error(2)
}
func (m *MockLedgerRepo) SumMovements(ctx context.Context, franchiseeID int32) (decimal.Decimal, error) {
	args := m.Called(ctx, franchiseeID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTransactionRepo
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}
func (m *MockTransactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) GetByProviderID(ctx context.Context, providerID string) (*domain.Transaction, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) SetProviderID(ctx context.Context, id int64, providerID string) error {
	args := m.Called(ctx, id, providerID)
	return args.Error(0)
}
func (m *MockTransactionRepo) TransitionStatus(ctx context.Context, id int64, to domain.TransactionStatus, metadata map[string]string) (*domain.Transaction, error) {
	args := m.Called(ctx, id, to, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) Settle(ctx context.Context, s repository.Settlement) (*repository.SettlementResult, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SettlementResult), args.Error(1)
}
func (m *MockTransactionRepo) ListByFranchisee(ctx context.Context, franchiseeID int32, status string, page, pageSize int32) ([]domain.Transaction, int32, error) {
	args := m.Called(ctx, franchiseeID, status, page, pageSize)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int32), args.Error(2)
}
func (m *MockTransactionRepo) ListPendingPastDue(ctx context.Context, asOf time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) ListPendingOverdueSince(ctx context.Context, dueBefore time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, dueBefore)
	return args.Get(0).([]domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) ListAbandoned(ctx context.Context, initiatedBefore time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, initiatedBefore)
	return args.Get(0).([]domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) FlagAbandoned(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockScheduleRepo
type MockScheduleRepo struct {
	mock.Mock
}

func (m *MockScheduleRepo) CreateBatch(ctx context.Context, schedules []*domain.PaymentSchedule) (int, error) {
	args := m.Called(ctx, schedules)
	return args.Int(0), args.Error(1)
}
func (m *MockScheduleRepo) GetByID(ctx context.Context, id int64) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSchedule), args.Error(1)
}
func (m *MockScheduleRepo) ListByFranchisee(ctx context.Context, franchiseeID int32, status string) ([]domain.PaymentSchedule, error) {
	args := m.Called(ctx, franchiseeID, status)
	return args.Get(0).([]domain.PaymentSchedule), args.Error(1)
}
func (m *MockScheduleRepo) ListDueWithin(ctx context.Context, from, to time.Time) ([]domain.PaymentSchedule, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.PaymentSchedule), args.Error(1)
}
func (m *MockScheduleRepo) SetRevenue(ctx context.Context, id int64, revenue decimal.Decimal) error {
	args := m.Called(ctx, id, revenue)
	return args.Error(0)
}
func (m *MockScheduleRepo) IncrementReminder(ctx context.Context, id int64, at time.Time, markOverdue bool) error {
	args := m.Called(ctx, id, at, markOverdue)
	return args.Error(0)
}
func (m *MockScheduleRepo) Cancel(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockScheduleRepo) Materialize(ctx context.Context, scheduleID int64, tx *domain.Transaction) error {
	args := m.Called(ctx, scheduleID, tx)
	return args.Error(0)
}
func (m *MockScheduleRepo) ReleaseClaim(ctx context.Context, scheduleID, transactionID int64, asOf time.Time) error {
	args := m.Called(ctx, scheduleID, transactionID, asOf)
	return args.Error(0)
}

// MockContractRepo
type MockContractRepo struct {
	mock.Mock
}

func (m *MockContractRepo) Create(ctx context.Context, c *domain.FranchiseContract) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockContractRepo) GetByID(ctx context.Context, id int64) (*domain.FranchiseContract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FranchiseContract), args.Error(1)
}
func (m *MockContractRepo) GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.FranchiseContract, error) {
	args := m.Called(ctx, franchiseeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FranchiseContract), args.Error(1)
}
func (m *MockContractRepo) Activate(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockContractRepo) MarkAtRisk(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendPaymentReminder(ctx context.Context, tx *domain.Transaction, daysOverdue int, penaltyEstimate decimal.Decimal) error {
	args := m.Called(ctx, tx, daysOverdue, penaltyEstimate)
	return args.Error(0)
}
func (m *MockNotificationService) SendFinalNotice(ctx context.Context, tx *domain.Transaction, daysOverdue int) error {
	args := m.Called(ctx, tx, daysOverdue)
	return args.Error(0)
}
func (m *MockNotificationService) SendPaymentConfirmation(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}
func (m *MockNotificationService) SendOperatorAlert(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}

// MockScheduleService
type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) ScheduleMonthlyRoyalties(ctx context.Context, franchiseeID int32) ([]domain.PaymentSchedule, error) {
	args := m.Called(ctx, franchiseeID)
	return args.Get(0).([]domain.PaymentSchedule), args.Error(1)
}
func (m *MockScheduleService) Materialize(ctx context.Context, scheduleID int64) (*domain.Transaction, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockScheduleService) RecordRevenue(ctx context.Context, scheduleID int64, revenue decimal.Decimal) error {
	args := m.Called(ctx, scheduleID, revenue)
	return args.Error(0)
}
func (m *MockScheduleService) Get(ctx context.Context, scheduleID int64) (*domain.PaymentSchedule, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSchedule), args.Error(1)
}
func (m *MockScheduleService) List(ctx context.Context, franchiseeID int32, status domain.ScheduleStatus) ([]domain.PaymentSchedule, error) {
	args := m.Called(ctx, franchiseeID, status)
	return args.Get(0).([]domain.PaymentSchedule), args.Error(1)
}
func (m *MockScheduleService) Cancel(ctx context.Context, scheduleID int64) error {
	args := m.Called(ctx, scheduleID)
	return args.Error(0)
}

// MockTransactionService
type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Create(ctx context.Context, input NewTransaction) (*domain.Transaction, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) InitiatePayment(ctx context.Context, id int64) (*domain.Transaction, string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*domain.Transaction), args.String(1), args.Error(2)
}
func (m *MockTransactionService) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) List(ctx context.Context, franchiseeID int32, status domain.TransactionStatus, page, pageSize int32) ([]domain.Transaction, int32, error) {
	args := m.Called(ctx, franchiseeID, status, page, pageSize)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int32), args.Error(2)
}
func (m *MockTransactionService) Complete(ctx context.Context, id int64, providerTransactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, id, providerTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) Fail(ctx context.Context, id int64, reason string) (*domain.Transaction, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) Cancel(ctx context.Context, id int64, reason string) (*domain.Transaction, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) MarkProcessing(ctx context.Context, id int64, requiresAction bool) (*domain.Transaction, error) {
	args := m.Called(ctx, id, requiresAction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) Refund(ctx context.Context, parentID int64, amount *decimal.Decimal, reason string) (*domain.Transaction, error) {
	args := m.Called(ctx, parentID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionService) RecordStockPurchase(ctx context.Context, franchiseeID int32, orderReference string, amount decimal.Decimal) (*domain.Transaction, error) {
	args := m.Called(ctx, franchiseeID, orderReference, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
