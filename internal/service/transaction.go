package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/gateway"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository"
)

type transactionService struct {
	txRepo       repository.TransactionRepository
	accountRepo  repository.AccountRepository
	contractRepo repository.ContractRepository
	scheduleRepo repository.ScheduleRepository
	scheduleSvc  ScheduleService
	notifier     NotificationService
	gateway      *gateway.Client
	clock        clock.Clock
	currency     string
}

func NewTransactionService(
	txRepo repository.TransactionRepository,
	accountRepo repository.AccountRepository,
	contractRepo repository.ContractRepository,
	scheduleRepo repository.ScheduleRepository,
	scheduleSvc ScheduleService,
	notifier NotificationService,
	gw *gateway.Client,
	clk clock.Clock,
	currency string,
) TransactionService {
	return &transactionService{
		txRepo:       txRepo,
		accountRepo:  accountRepo,
		contractRepo: contractRepo,
		scheduleRepo: scheduleRepo,
		scheduleSvc:  scheduleSvc,
		notifier:     notifier,
		gateway:      gw,
		clock:        clk,
		currency:     currency,
	}
}

// NewReference builds a transaction reference. References are opaque but
// unique, and stable across retries of the same logical payment only if the
// caller persists them.
func NewReference() string {
	return "TXN-" + uuid.New().String()
}

func (s *transactionService) Create(ctx context.Context, input NewTransaction) (*domain.Transaction, error) {
	if !input.PaymentType.Valid() {
		return nil, domain.NewValidationError("payment_type", "unknown payment type")
	}
	if input.PaymentType == domain.PaymentTypeRefund {
		return nil, domain.NewValidationError("payment_type", "refunds are created through the refund operation")
	}
	if !input.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	tx := &domain.Transaction{
		FranchiseeID:  input.FranchiseeID,
		PaymentType:   input.PaymentType,
		Reference:     NewReference(),
		Amount:        input.Amount,
		Currency:      s.currency,
		Status:        domain.TransactionStatusPending,
		PaymentMethod: input.PaymentMethod,
		ScheduleID:    input.ScheduleID,
		ContractID:    input.ContractID,
		Description:   input.Description,
		Metadata:      input.Metadata,
		DueDate:       input.DueDate,
		InitiatedAt:   s.clock.Now(),
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *transactionService) InitiatePayment(ctx context.Context, id int64) (*domain.Transaction, string, error) {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if tx.IsTerminal() {
		return nil, "", &domain.ConflictError{Op: "initiate", From: string(tx.Status), To: string(domain.TransactionStatusProcessing), Subject: fmt.Sprintf("transaction %d", id)}
	}

	intent, err := s.gateway.CreateIntent(ctx, tx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open payment intent: %w", err)
	}
	if err := s.txRepo.SetProviderID(ctx, tx.ID, intent.ID); err != nil {
		return nil, "", err
	}
	tx.ProviderTransactionID = &intent.ID
	return tx, intent.ClientSecret, nil
}

func (s *transactionService) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

func (s *transactionService) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.txRepo.GetByReference(ctx, reference)
}

func (s *transactionService) List(ctx context.Context, franchiseeID int32, status domain.TransactionStatus, page, pageSize int32) ([]domain.Transaction, int32, error) {
	return s.txRepo.ListByFranchisee(ctx, franchiseeID, string(status), page, pageSize)
}

// Complete settles the transaction and runs the payment-type cascade. The
// cascade re-runs on idempotent replays as well: each step is itself
// idempotent, so a replayed webhook can finish work a crashed first attempt
// left undone.
func (s *transactionService) Complete(ctx context.Context, id int64, providerTransactionID string) (*domain.Transaction, error) {
	result, err := s.txRepo.Settle(ctx, repository.Settlement{
		TransactionID:         id,
		ProviderTransactionID: providerTransactionID,
		CompletedAt:           s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	tx := result.Transaction

	if result.AlreadySettled {
		logger.InfoContext(ctx, "settlement replayed, no ledger change",
			"transaction_id", tx.ID, "reference", tx.Reference)
	} else {
		logger.InfoContext(ctx, "transaction settled",
			"transaction_id", tx.ID, "reference", tx.Reference,
			"payment_type", tx.PaymentType, "amount", tx.Amount.String())
		if err := s.notifier.SendPaymentConfirmation(ctx, tx); err != nil {
			logger.ErrorContext(ctx, "failed to send payment confirmation", "transaction_id", tx.ID, "error", err)
		}
	}

	if tx.PaymentType == domain.PaymentTypeEntryFee {
		if err := s.activateFranchise(ctx, tx); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// activateFranchise runs the entry fee cascade: unlock the account, activate
// the contract and lay down the royalty schedule. Every step tolerates having
// already run.
func (s *transactionService) activateFranchise(ctx context.Context, tx *domain.Transaction) error {
	account, err := s.accountRepo.GetByFranchisee(ctx, tx.FranchiseeID)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountStatusSuspended {
		if err := s.accountRepo.UpdateStatus(ctx, tx.FranchiseeID, domain.AccountStatusActive); err != nil {
			return fmt.Errorf("failed to activate account: %w", err)
		}
	}

	contract, err := s.resolveContract(ctx, tx)
	if err != nil {
		return err
	}
	if contract.Status != domain.ContractStatusActive {
		activatedAt := s.clock.Now()
		if tx.CompletedAt != nil {
			activatedAt = *tx.CompletedAt
		}
		if err := s.contractRepo.Activate(ctx, contract.ID, activatedAt); err != nil {
			return fmt.Errorf("failed to activate contract: %w", err)
		}
	}

	if _, err := s.scheduleSvc.ScheduleMonthlyRoyalties(ctx, tx.FranchiseeID); err != nil {
		return fmt.Errorf("failed to schedule royalties: %w", err)
	}
	logger.InfoContext(ctx, "franchise activated",
		"franchisee_id", tx.FranchiseeID, "contract_id", contract.ID)
	return nil
}

func (s *transactionService) resolveContract(ctx context.Context, tx *domain.Transaction) (*domain.FranchiseContract, error) {
	if tx.ContractID != nil {
		return s.contractRepo.GetByID(ctx, *tx.ContractID)
	}
	return s.contractRepo.GetByFranchisee(ctx, tx.FranchiseeID)
}

func (s *transactionService) Fail(ctx context.Context, id int64, reason string) (*domain.Transaction, error) {
	meta := map[string]string{}
	if reason != "" {
		meta[domain.MetadataFailureReason] = reason
	}
	tx, err := s.txRepo.TransitionStatus(ctx, id, domain.TransactionStatusFailed, meta)
	if err != nil {
		return nil, err
	}
	s.releaseSchedule(ctx, tx)
	logger.InfoContext(ctx, "transaction failed",
		"transaction_id", tx.ID, "reference", tx.Reference, "reason", reason)
	return tx, nil
}

func (s *transactionService) Cancel(ctx context.Context, id int64, reason string) (*domain.Transaction, error) {
	meta := map[string]string{}
	if reason != "" {
		meta[domain.MetadataCancelReason] = reason
	}
	tx, err := s.txRepo.TransitionStatus(ctx, id, domain.TransactionStatusCancelled, meta)
	if err != nil {
		return nil, err
	}
	s.releaseSchedule(ctx, tx)
	return tx, nil
}

func (s *transactionService) MarkProcessing(ctx context.Context, id int64, requiresAction bool) (*domain.Transaction, error) {
	var meta map[string]string
	if requiresAction {
		meta = map[string]string{domain.MetadataRequiresAction: "true"}
	}
	return s.txRepo.TransitionStatus(ctx, id, domain.TransactionStatusProcessing, meta)
}

// releaseSchedule frees the schedule claimed by a dead transaction so the
// next sweep can materialize a fresh one. Best effort: the sweep tolerates a
// stuck claim and the audit job surfaces it.
func (s *transactionService) releaseSchedule(ctx context.Context, tx *domain.Transaction) {
	if tx.ScheduleID == nil {
		return
	}
	if err := s.scheduleRepo.ReleaseClaim(ctx, *tx.ScheduleID, tx.ID, s.clock.Now()); err != nil {
		logger.ErrorContext(ctx, "failed to release schedule claim",
			"schedule_id", *tx.ScheduleID, "transaction_id", tx.ID, "error", err)
	}
}

// Refund creates a child refund transaction and settles it immediately. The
// settlement credits the account and flips the parent to REFUNDED in the same
// database transaction.
func (s *transactionService) Refund(ctx context.Context, parentID int64, amount *decimal.Decimal, reason string) (*domain.Transaction, error) {
	parent, err := s.txRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Status != domain.TransactionStatusCompleted {
		return nil, &domain.ConflictError{
			Op:      "refund",
			From:    string(parent.Status),
			To:      string(domain.TransactionStatusRefunded),
			Subject: fmt.Sprintf("transaction %d", parentID),
		}
	}

	amt := parent.Amount
	if amount != nil {
		amt = *amount
	}
	if !amt.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if amt.GreaterThan(parent.Amount) {
		return nil, domain.NewValidationError("amount", "exceeds the original payment")
	}

	meta := map[string]string{}
	if reason != "" {
		meta[domain.MetadataRefundReason] = reason
	}
	child := &domain.Transaction{
		FranchiseeID:        parent.FranchiseeID,
		PaymentType:         domain.PaymentTypeRefund,
		Reference:           NewReference(),
		Amount:              amt,
		Currency:            parent.Currency,
		Status:              domain.TransactionStatusPending,
		PaymentMethod:       parent.PaymentMethod,
		ParentTransactionID: &parent.ID,
		Description:         fmt.Sprintf("Refund of %s", parent.Reference),
		Metadata:            meta,
		InitiatedAt:         s.clock.Now(),
	}
	if err := s.txRepo.Create(ctx, child); err != nil {
		return nil, err
	}

	result, err := s.txRepo.Settle(ctx, repository.Settlement{
		TransactionID: child.ID,
		CompletedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "refund settled",
		"transaction_id", result.Transaction.ID, "parent_id", parent.ID, "amount", amt.String())
	return result.Transaction, nil
}

// RecordStockPurchase books an on-account stock purchase: the transaction is
// created and settled in one go, debiting the franchisee's balance.
func (s *transactionService) RecordStockPurchase(ctx context.Context, franchiseeID int32, orderReference string, amount decimal.Decimal) (*domain.Transaction, error) {
	if orderReference == "" {
		return nil, domain.NewValidationError("order_reference", "is required")
	}
	tx, err := s.Create(ctx, NewTransaction{
		FranchiseeID: franchiseeID,
		PaymentType:  domain.PaymentTypeStockPurchase,
		Amount:       amount,
		Description:  fmt.Sprintf("Stock purchase %s", orderReference),
		Metadata:     map[string]string{domain.MetadataOrderReference: orderReference},
	})
	if err != nil {
		return nil, err
	}
	result, err := s.txRepo.Settle(ctx, repository.Settlement{
		TransactionID: tx.ID,
		CompletedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return result.Transaction, nil
}
