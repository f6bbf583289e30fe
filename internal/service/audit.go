package service

import (
	"context"
	"errors"
	"fmt"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository"
)

type auditService struct {
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	notifier    NotificationService
}

func NewAuditService(accountRepo repository.AccountRepository, ledgerRepo repository.LedgerRepository, notifier NotificationService) AuditService {
	return &auditService{accountRepo: accountRepo, ledgerRepo: ledgerRepo, notifier: notifier}
}

// AuditAccount compares the stored balance against the signed sum of the
// movement journal. On mismatch the account is blocked and an operator alert
// goes out; the balance is never rewritten here. Repair is a manual
// adjustment with its own movement row.
func (s *auditService) AuditAccount(ctx context.Context, franchiseeID int32) error {
	account, err := s.accountRepo.GetByFranchisee(ctx, franchiseeID)
	if err != nil {
		return err
	}
	sum, err := s.ledgerRepo.SumMovements(ctx, franchiseeID)
	if err != nil {
		return err
	}
	if account.CurrentBalance.Equal(sum) {
		return nil
	}

	inconsistency := &domain.ConsistencyError{
		FranchiseeID: franchiseeID,
		Balance:      account.CurrentBalance,
		MovementSum:  sum,
	}
	logger.ErrorContext(ctx, "ledger consistency violation",
		"franchisee_id", franchiseeID,
		"balance", account.CurrentBalance.String(),
		"movement_sum", sum.String())

	if account.Status != domain.AccountStatusBlocked {
		if err := s.accountRepo.UpdateStatus(ctx, franchiseeID, domain.AccountStatusBlocked); err != nil {
			return errors.Join(inconsistency, err)
		}
	}
	if err := s.notifier.SendOperatorAlert(ctx,
		fmt.Sprintf("Ledger inconsistency on account %d", franchiseeID),
		inconsistency.Error()); err != nil {
		logger.ErrorContext(ctx, "failed to send consistency alert", "franchisee_id", franchiseeID, "error", err)
	}
	return inconsistency
}

// AuditAll sweeps every account. A single bad account does not stop the
// sweep; the combined error carries every finding.
func (s *auditService) AuditAll(ctx context.Context) error {
	ids, err := s.accountRepo.ListFranchiseeIDs(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if err := s.AuditAccount(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
