package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository"
)

type scheduleService struct {
	scheduleRepo repository.ScheduleRepository
	contractRepo repository.ContractRepository
	txRepo       repository.TransactionRepository
	clock        clock.Clock
	currency     string
	monthsAhead  int
}

func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	contractRepo repository.ContractRepository,
	txRepo repository.TransactionRepository,
	clk clock.Clock,
	currency string,
	monthsAhead int,
) ScheduleService {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		contractRepo: contractRepo,
		txRepo:       txRepo,
		clock:        clk,
		currency:     currency,
		monthsAhead:  monthsAhead,
	}
}

// ScheduleMonthlyRoyalties lays down the royalty schedule for an activated
// contract: one row per month starting one month after activation. Calling it
// again for a contract that already has royalty schedules is a no-op that
// returns the existing rows.
func (s *scheduleService) ScheduleMonthlyRoyalties(ctx context.Context, franchiseeID int32) ([]domain.PaymentSchedule, error) {
	contract, err := s.contractRepo.GetByFranchisee(ctx, franchiseeID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.ContractStatusActive || contract.ActivatedAt == nil {
		return nil, &domain.ConflictError{
			Op:      "schedule_royalties",
			From:    string(contract.Status),
			To:      string(domain.ContractStatusActive),
			Subject: fmt.Sprintf("contract %d", contract.ID),
		}
	}

	current, err := s.royaltyRows(ctx, franchiseeID, contract.ID)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		logger.InfoContext(ctx, "royalty schedule already exists",
			"franchisee_id", franchiseeID, "contract_id", contract.ID, "count", len(current))
		return current, nil
	}

	base := *contract.ActivatedAt
	schedules := make([]*domain.PaymentSchedule, 0, s.monthsAhead)
	for n := 1; n <= s.monthsAhead; n++ {
		sch := &domain.PaymentSchedule{
			FranchiseeID: franchiseeID,
			ContractID:   contract.ID,
			Type:         domain.PaymentTypeMonthlyRoyalty,
			DueDate:      base.AddDate(0, n, 0),
			PeriodStart:  base.AddDate(0, n-1, 0),
			PeriodEnd:    base.AddDate(0, n, 0),
			Status:       domain.ScheduleStatusPending,
		}
		if !contract.RevenueBased() {
			amount := *contract.MonthlyRoyalty
			sch.Amount = &amount
		}
		schedules = append(schedules, sch)
	}
	inserted, err := s.scheduleRepo.CreateBatch(ctx, schedules)
	if err != nil {
		return nil, err
	}
	if inserted < len(schedules) {
		// A concurrent caller generated the schedule between our existence
		// check and the insert. The unique index dropped our duplicates;
		// hand back whatever is on record now.
		logger.InfoContext(ctx, "royalty schedule created concurrently elsewhere",
			"franchisee_id", franchiseeID, "contract_id", contract.ID, "inserted", inserted)
		return s.royaltyRows(ctx, franchiseeID, contract.ID)
	}

	created := make([]domain.PaymentSchedule, 0, len(schedules))
	for _, sch := range schedules {
		created = append(created, *sch)
	}
	logger.InfoContext(ctx, "royalty schedule created",
		"franchisee_id", franchiseeID, "contract_id", contract.ID, "months", len(created))
	return created, nil
}

// royaltyRows returns the contract's non-cancelled monthly royalty schedules.
func (s *scheduleService) royaltyRows(ctx context.Context, franchiseeID int32, contractID int64) ([]domain.PaymentSchedule, error) {
	existing, err := s.scheduleRepo.ListByFranchisee(ctx, franchiseeID, "")
	if err != nil {
		return nil, err
	}
	var rows []domain.PaymentSchedule
	for _, sch := range existing {
		if sch.ContractID == contractID && sch.Type == domain.PaymentTypeMonthlyRoyalty && sch.Status != domain.ScheduleStatusCancelled {
			rows = append(rows, sch)
		}
	}
	return rows, nil
}

// Materialize turns a due schedule into a pending transaction. Revenue-based
// royalties need declared revenue first; without it the schedule stays
// untouched and the caller gets a validation error. Concurrent calls are
// safe: the first writer wins and everyone else is handed the winner's
// transaction.
func (s *scheduleService) Materialize(ctx context.Context, scheduleID int64) (*domain.Transaction, error) {
	sch, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sch.Status == domain.ScheduleStatusCancelled {
		return nil, &domain.ConflictError{Op: "materialize", From: string(sch.Status), Subject: fmt.Sprintf("schedule %d", scheduleID)}
	}
	if sch.Materialized() {
		return s.txRepo.GetByID(ctx, *sch.TransactionID)
	}

	amount, err := s.scheduleAmount(ctx, sch)
	if err != nil {
		return nil, err
	}

	period := sch.PeriodStart.Format("2006-01")
	tx := &domain.Transaction{
		FranchiseeID: sch.FranchiseeID,
		PaymentType:  sch.Type,
		Reference:    NewReference(),
		Amount:       amount,
		Currency:     s.currency,
		Status:       domain.TransactionStatusPending,
		ScheduleID:   &sch.ID,
		ContractID:   &sch.ContractID,
		Description:  fmt.Sprintf("Monthly royalty for %s", period),
		Metadata:     map[string]string{domain.MetadataPeriod: period},
		DueDate:      &sch.DueDate,
		InitiatedAt:  s.clock.Now(),
	}
	err = s.scheduleRepo.Materialize(ctx, scheduleID, tx)
	if errors.Is(err, domain.ErrScheduleAlreadyMaterialized) {
		// Lost the race. Hand back the winner's transaction.
		sch, err = s.scheduleRepo.GetByID(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		if sch.TransactionID == nil {
			return nil, domain.ErrScheduleAlreadyMaterialized
		}
		return s.txRepo.GetByID(ctx, *sch.TransactionID)
	}
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "schedule materialized",
		"schedule_id", scheduleID, "transaction_id", tx.ID, "amount", amount.String())
	return tx, nil
}

func (s *scheduleService) scheduleAmount(ctx context.Context, sch *domain.PaymentSchedule) (decimal.Decimal, error) {
	if sch.Amount != nil {
		return *sch.Amount, nil
	}
	if sch.CalculatedRevenue == nil {
		return decimal.Zero, domain.NewValidationError("revenue", "not declared for revenue-based royalty")
	}
	contract, err := s.contractRepo.GetByID(ctx, sch.ContractID)
	if err != nil {
		return decimal.Zero, err
	}
	return sch.CalculatedRevenue.Mul(contract.RoyaltyRate).Round(2), nil
}

func (s *scheduleService) RecordRevenue(ctx context.Context, scheduleID int64, revenue decimal.Decimal) error {
	if revenue.IsNegative() {
		return domain.NewValidationError("revenue", "must not be negative")
	}
	return s.scheduleRepo.SetRevenue(ctx, scheduleID, revenue)
}

func (s *scheduleService) Get(ctx context.Context, scheduleID int64) (*domain.PaymentSchedule, error) {
	return s.scheduleRepo.GetByID(ctx, scheduleID)
}

func (s *scheduleService) List(ctx context.Context, franchiseeID int32, status domain.ScheduleStatus) ([]domain.PaymentSchedule, error) {
	return s.scheduleRepo.ListByFranchisee(ctx, franchiseeID, string(status))
}

func (s *scheduleService) Cancel(ctx context.Context, scheduleID int64) error {
	return s.scheduleRepo.Cancel(ctx, scheduleID)
}
