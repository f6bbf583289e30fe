package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/domain"
)

func fixedRoyaltyContract(activatedAt time.Time) *domain.FranchiseContract {
	royalty := decimal.RequireFromString("750.00")
	return &domain.FranchiseContract{
		ID:             3,
		FranchiseeID:   9,
		Status:         domain.ContractStatusActive,
		RoyaltyRate:    decimal.RequireFromString("0.05"),
		MonthlyRoyalty: &royalty,
		FranchiseFee:   decimal.RequireFromString("25000.00"),
		ActivatedAt:    &activatedAt,
	}
}

func TestScheduleService_ScheduleMonthlyRoyalties(t *testing.T) {
	ctx := context.Background()
	activatedAt := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(activatedAt)

	t.Run("TwelveMonthsFromActivation", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, nil, clk, "EUR", 12)

		contractRepo.On("GetByFranchisee", ctx, int32(9)).Return(fixedRoyaltyContract(activatedAt), nil).Once()
		scheduleRepo.On("ListByFranchisee", ctx, int32(9), "").Return([]domain.PaymentSchedule{}, nil).Once()
		scheduleRepo.On("CreateBatch", ctx, mock.MatchedBy(func(schedules []*domain.PaymentSchedule) bool {
			if len(schedules) != 12 {
				return false
			}
			first, last := schedules[0], schedules[11]
			return first.DueDate.Equal(activatedAt.AddDate(0, 1, 0)) &&
				first.PeriodStart.Equal(activatedAt) &&
				last.DueDate.Equal(activatedAt.AddDate(0, 12, 0)) &&
				first.Amount != nil && first.Amount.Equal(decimal.RequireFromString("750.00")) &&
				first.Status == domain.ScheduleStatusPending &&
				first.Type == domain.PaymentTypeMonthlyRoyalty
		})).Return(12, nil).Once()

		schedules, err := svc.ScheduleMonthlyRoyalties(ctx, 9)
		assert.NoError(t, err)
		assert.Len(t, schedules, 12)
		scheduleRepo.AssertExpectations(t)
	})

	t.Run("RevenueBasedRowsCarryNoAmount", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, nil, clk, "EUR", 12)

		contract := fixedRoyaltyContract(activatedAt)
		contract.MonthlyRoyalty = nil
		contractRepo.On("GetByFranchisee", ctx, int32(9)).Return(contract, nil).Once()
		scheduleRepo.On("ListByFranchisee", ctx, int32(9), "").Return([]domain.PaymentSchedule{}, nil).Once()
		scheduleRepo.On("CreateBatch", ctx, mock.MatchedBy(func(schedules []*domain.PaymentSchedule) bool {
			for _, s := range schedules {
				if s.Amount != nil {
					return false
				}
			}
			return len(schedules) == 12
		})).Return(12, nil).Once()

		_, err := svc.ScheduleMonthlyRoyalties(ctx, 9)
		assert.NoError(t, err)
		scheduleRepo.AssertExpectations(t)
	})

	t.Run("ExistingScheduleIsReturnedNotRegenerated", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, nil, clk, "EUR", 12)

		contractRepo.On("GetByFranchisee", ctx, int32(9)).Return(fixedRoyaltyContract(activatedAt), nil).Once()
		existing := []domain.PaymentSchedule{
			{ID: 1, ContractID: 3, Type: domain.PaymentTypeMonthlyRoyalty, Status: domain.ScheduleStatusPending},
			{ID: 2, ContractID: 3, Type: domain.PaymentTypeMonthlyRoyalty, Status: domain.ScheduleStatusPaid},
		}
		scheduleRepo.On("ListByFranchisee", ctx, int32(9), "").Return(existing, nil).Once()

		schedules, err := svc.ScheduleMonthlyRoyalties(ctx, 9)
		assert.NoError(t, err)
		assert.Len(t, schedules, 2)
		scheduleRepo.AssertNotCalled(t, "CreateBatch")
	})

	t.Run("DuplicateDeliveryHandsBackWinnersRows", func(t *testing.T) {
		// Two deliveries of the same succeeded event both pass the existence
		// check before either inserts. The unique index drops the loser's
		// rows; it must return the winner's schedule instead of doubling it.
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, nil, clk, "EUR", 12)

		contractRepo.On("GetByFranchisee", ctx, int32(9)).Return(fixedRoyaltyContract(activatedAt), nil).Once()
		scheduleRepo.On("ListByFranchisee", ctx, int32(9), "").Return([]domain.PaymentSchedule{}, nil).Once()
		scheduleRepo.On("CreateBatch", ctx, mock.AnythingOfType("[]*domain.PaymentSchedule")).Return(0, nil).Once()

		winners := make([]domain.PaymentSchedule, 0, 12)
		for i := 0; i < 12; i++ {
			winners = append(winners, domain.PaymentSchedule{
				ID:         int64(100 + i),
				ContractID: 3,
				Type:       domain.PaymentTypeMonthlyRoyalty,
				Status:     domain.ScheduleStatusPending,
			})
		}
		scheduleRepo.On("ListByFranchisee", ctx, int32(9), "").Return(winners, nil).Once()

		schedules, err := svc.ScheduleMonthlyRoyalties(ctx, 9)
		assert.NoError(t, err)
		assert.Len(t, schedules, 12)
		assert.Equal(t, int64(100), schedules[0].ID)
		scheduleRepo.AssertExpectations(t)
	})

	t.Run("InactiveContractConflicts", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, nil, clk, "EUR", 12)

		contract := fixedRoyaltyContract(activatedAt)
		contract.Status = domain.ContractStatusPending
		contract.ActivatedAt = nil
		contractRepo.On("GetByFranchisee", ctx, int32(9)).Return(contract, nil).Once()

		_, err := svc.ScheduleMonthlyRoyalties(ctx, 9)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestScheduleService_Materialize(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	dueDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	pendingSchedule := func() *domain.PaymentSchedule {
		return &domain.PaymentSchedule{
			ID:           77,
			FranchiseeID: 9,
			ContractID:   3,
			Type:         domain.PaymentTypeMonthlyRoyalty,
			DueDate:      dueDate,
			PeriodStart:  time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
			PeriodEnd:    dueDate,
			Status:       domain.ScheduleStatusPending,
		}
	}

	t.Run("RevenueBasedAmountIsRateTimesRevenue", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		txRepo := new(MockTransactionRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, txRepo, clk, "EUR", 12)

		sch := pendingSchedule()
		revenue := decimal.RequireFromString("15333.33")
		sch.CalculatedRevenue = &revenue

		contract := fixedRoyaltyContract(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
		contract.MonthlyRoyalty = nil

		scheduleRepo.On("GetByID", ctx, int64(77)).Return(sch, nil).Once()
		contractRepo.On("GetByID", ctx, int64(3)).Return(contract, nil).Once()
		scheduleRepo.On("Materialize", ctx, int64(77), mock.MatchedBy(func(tx *domain.Transaction) bool {
			// 15333.33 * 0.05 rounded to cents
			return tx.Amount.Equal(decimal.RequireFromString("766.67")) &&
				tx.PaymentType == domain.PaymentTypeMonthlyRoyalty &&
				tx.Metadata[domain.MetadataPeriod] == "2025-02" &&
				tx.DueDate != nil && tx.DueDate.Equal(dueDate)
		})).Return(nil).Once()

		tx, err := svc.Materialize(ctx, 77)
		assert.NoError(t, err)
		assert.Equal(t, "EUR", tx.Currency)
		scheduleRepo.AssertExpectations(t)
	})

	t.Run("UndeclaredRevenueRejected", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		contractRepo := new(MockContractRepo)
		svc := NewScheduleService(scheduleRepo, contractRepo, nil, clk, "EUR", 12)

		sch := pendingSchedule()
		scheduleRepo.On("GetByID", ctx, int64(77)).Return(sch, nil).Once()

		_, err := svc.Materialize(ctx, 77)
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve)
		scheduleRepo.AssertNotCalled(t, "Materialize")
	})

	t.Run("MaterializedScheduleReturnsLinkedTransaction", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		txRepo := new(MockTransactionRepo)
		svc := NewScheduleService(scheduleRepo, nil, txRepo, clk, "EUR", 12)

		sch := pendingSchedule()
		linked := int64(500)
		sch.TransactionID = &linked
		sch.Status = domain.ScheduleStatusSent
		scheduleRepo.On("GetByID", ctx, int64(77)).Return(sch, nil).Once()
		txRepo.On("GetByID", ctx, int64(500)).Return(&domain.Transaction{ID: 500}, nil).Once()

		tx, err := svc.Materialize(ctx, 77)
		assert.NoError(t, err)
		assert.Equal(t, int64(500), tx.ID)
		scheduleRepo.AssertNotCalled(t, "Materialize")
	})

	t.Run("LostRaceHandsBackWinner", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		txRepo := new(MockTransactionRepo)
		svc := NewScheduleService(scheduleRepo, nil, txRepo, clk, "EUR", 12)

		sch := pendingSchedule()
		amount := decimal.RequireFromString("750.00")
		sch.Amount = &amount
		scheduleRepo.On("GetByID", ctx, int64(77)).Return(sch, nil).Once()
		scheduleRepo.On("Materialize", ctx, int64(77), mock.Anything).
			Return(domain.ErrScheduleAlreadyMaterialized).Once()

		claimed := *sch
		winner := int64(501)
		claimed.TransactionID = &winner
		claimed.Status = domain.ScheduleStatusSent
		scheduleRepo.On("GetByID", ctx, int64(77)).Return(&claimed, nil).Once()
		txRepo.On("GetByID", ctx, int64(501)).Return(&domain.Transaction{ID: 501}, nil).Once()

		tx, err := svc.Materialize(ctx, 77)
		assert.NoError(t, err)
		assert.Equal(t, int64(501), tx.ID)
	})

	t.Run("CancelledScheduleConflicts", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		svc := NewScheduleService(scheduleRepo, nil, nil, clk, "EUR", 12)

		sch := pendingSchedule()
		sch.Status = domain.ScheduleStatusCancelled
		scheduleRepo.On("GetByID", ctx, int64(77)).Return(sch, nil).Once()

		_, err := svc.Materialize(ctx, 77)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestScheduleService_RecordRevenue(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFrozen(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	t.Run("NegativeRevenueRejected", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		svc := NewScheduleService(scheduleRepo, nil, nil, clk, "EUR", 12)

		err := svc.RecordRevenue(ctx, 77, decimal.RequireFromString("-1"))
		var ve *domain.ValidationError
		assert.ErrorAs(t, err, &ve)
		scheduleRepo.AssertNotCalled(t, "SetRevenue")
	})

	t.Run("ZeroRevenueIsAllowed", func(t *testing.T) {
		scheduleRepo := new(MockScheduleRepo)
		svc := NewScheduleService(scheduleRepo, nil, nil, clk, "EUR", 12)

		scheduleRepo.On("SetRevenue", ctx, int64(77), decimal.Zero).Return(nil).Once()
		err := svc.RecordRevenue(ctx, 77, decimal.Zero)
		assert.NoError(t, err)
		scheduleRepo.AssertExpectations(t)
	})
}
