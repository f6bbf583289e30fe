package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractStatusPending    ContractStatus = "PENDING"
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusSuspended  ContractStatus = "SUSPENDED"
	ContractStatusTerminated ContractStatus = "TERMINATED"
)

// FranchiseContract governs the royalty terms for one franchisee. The ledger
// core reads it for schedule generation and only ever mutates it on
// activation and at-risk flagging.
type FranchiseContract struct {
	ID             int64            `json:"id"`
	FranchiseeID   int32            `json:"franchisee_id"`
	Status         ContractStatus   `json:"status"`
	RoyaltyRate    decimal.Decimal  `json:"royalty_rate"` // fraction of declared revenue, e.g. 0.05
	MonthlyRoyalty *decimal.Decimal `json:"monthly_royalty,omitempty"`
	FranchiseFee   decimal.Decimal  `json:"franchise_fee"`
	AtRisk         bool             `json:"at_risk"`
	ActivatedAt    *time.Time       `json:"activated_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// RevenueBased reports whether the monthly royalty is computed from declared
// revenue rather than being a fixed amount.
func (c *FranchiseContract) RevenueBased() bool {
	return c.MonthlyRoyalty == nil
}
