package service

import (
	"context"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

var decimalOne = decimal.NewFromInt(1)

type contractService struct {
	contractRepo repository.ContractRepository
	clock        clock.Clock
}

func NewContractService(contractRepo repository.ContractRepository, clk clock.Clock) ContractService {
	return &contractService{contractRepo: contractRepo, clock: clk}
}

func (s *contractService) Create(ctx context.Context, input NewContract) (*domain.FranchiseContract, error) {
	if input.RoyaltyRate.IsNegative() || input.RoyaltyRate.GreaterThan(decimalOne) {
		return nil, domain.NewValidationError("royalty_rate", "must be a fraction between 0 and 1")
	}
	if input.MonthlyRoyalty != nil && !input.MonthlyRoyalty.IsPositive() {
		return nil, domain.NewValidationError("monthly_royalty", "must be positive when set")
	}
	if input.FranchiseFee.IsNegative() {
		return nil, domain.NewValidationError("franchise_fee", "must not be negative")
	}
	contract := &domain.FranchiseContract{
		FranchiseeID:   input.FranchiseeID,
		Status:         domain.ContractStatusPending,
		RoyaltyRate:    input.RoyaltyRate,
		MonthlyRoyalty: input.MonthlyRoyalty,
		FranchiseFee:   input.FranchiseFee,
	}
	if err := s.contractRepo.Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *contractService) Get(ctx context.Context, id int64) (*domain.FranchiseContract, error) {
	return s.contractRepo.GetByID(ctx, id)
}

func (s *contractService) GetByFranchisee(ctx context.Context, franchiseeID int32) (*domain.FranchiseContract, error) {
	return s.contractRepo.GetByFranchisee(ctx, franchiseeID)
}

func (s *contractService) Activate(ctx context.Context, id int64) (*domain.FranchiseContract, error) {
	if err := s.contractRepo.Activate(ctx, id, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.contractRepo.GetByID(ctx, id)
}
