package service

import (
	"context"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

type balanceService struct {
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
}

func NewBalanceService(accountRepo repository.AccountRepository, ledgerRepo repository.LedgerRepository) BalanceService {
	return &balanceService{accountRepo: accountRepo, ledgerRepo: ledgerRepo}
}

func (s *balanceService) OpenAccount(ctx context.Context, franchiseeID int32, creditLimit decimal.Decimal) (*domain.Account, error) {
	if creditLimit.IsNegative() {
		return nil, domain.NewValidationError("credit_limit", "must not be negative")
	}
	account := &domain.Account{
		FranchiseeID:       franchiseeID,
		CurrentBalance:     decimal.Zero,
		AvailableCredit:    creditLimit,
		CreditLimit:        creditLimit,
		TotalSpent:         decimal.Zero,
		TotalRoyaltiesPaid: decimal.Zero,
		// Accounts start suspended and are activated when the entry fee
		// settles.
		Status: domain.AccountStatusSuspended,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *balanceService) GetAccount(ctx context.Context, franchiseeID int32) (*domain.Account, error) {
	return s.accountRepo.GetByFranchisee(ctx, franchiseeID)
}

func (s *balanceService) Debit(ctx context.Context, franchiseeID int32, amount decimal.Decimal, description, category string, transactionID *int64) (*domain.AccountMovement, error) {
	return s.post(ctx, franchiseeID, domain.MovementTypeDebit, amount, description, category, transactionID, nil)
}

func (s *balanceService) Credit(ctx context.Context, franchiseeID int32, amount decimal.Decimal, description, category string, transactionID *int64) (*domain.AccountMovement, error) {
	return s.post(ctx, franchiseeID, domain.MovementTypeCredit, amount, description, category, transactionID, nil)
}

func (s *balanceService) Adjust(ctx context.Context, franchiseeID int32, amount decimal.Decimal, description string, adminID int32) (*domain.AccountMovement, error) {
	if amount.IsZero() {
		return nil, domain.NewValidationError("amount", "adjustment must be non-zero")
	}
	if description == "" {
		return nil, domain.NewValidationError("description", "is required for adjustments")
	}
	return s.ledgerRepo.Post(ctx, &domain.Posting{
		FranchiseeID: franchiseeID,
		Type:         domain.MovementTypeAdjustment,
		Amount:       amount,
		Description:  description,
		Category:     "adjustment",
		CreatedBy:    &adminID,
	})
}

func (s *balanceService) HasSufficientCredit(ctx context.Context, franchiseeID int32, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, domain.NewValidationError("amount", "must not be negative")
	}
	account, err := s.accountRepo.GetByFranchisee(ctx, franchiseeID)
	if err != nil {
		return false, err
	}
	return account.HasSufficientCredit(amount), nil
}

func (s *balanceService) ListMovements(ctx context.Context, franchiseeID int32, page, pageSize int32) ([]domain.AccountMovement, int32, error) {
	return s.ledgerRepo.ListMovements(ctx, franchiseeID, page, pageSize)
}

func (s *balanceService) post(ctx context.Context, franchiseeID int32, movementType domain.MovementType, amount decimal.Decimal, description, category string, transactionID *int64, createdBy *int32) (*domain.AccountMovement, error) {
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if category == "" {
		category = "manual"
	}
	return s.ledgerRepo.Post(ctx, &domain.Posting{
		FranchiseeID:  franchiseeID,
		Type:          movementType,
		Amount:        amount,
		Description:   description,
		Category:      category,
		TransactionID: transactionID,
		CreatedBy:     createdBy,
	})
}
