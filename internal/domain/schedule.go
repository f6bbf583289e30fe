package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "PENDING"
	ScheduleStatusSent      ScheduleStatus = "SENT"
	ScheduleStatusPaid      ScheduleStatus = "PAID"
	ScheduleStatusOverdue   ScheduleStatus = "OVERDUE"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// PaymentSchedule is a future obligation derived from a contract, usually a
// monthly royalty. Amount is nil for revenue-based royalties until the period
// revenue is declared; the concrete amount is computed at materialization.
type PaymentSchedule struct {
	ID                int64            `json:"id"`
	FranchiseeID      int32            `json:"franchisee_id"`
	ContractID        int64            `json:"contract_id"`
	Type              PaymentType      `json:"type"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	DueDate           time.Time        `json:"due_date"`
	PeriodStart       time.Time        `json:"period_start"`
	PeriodEnd         time.Time        `json:"period_end"`
	CalculatedRevenue *decimal.Decimal `json:"calculated_revenue,omitempty"`
	Status            ScheduleStatus   `json:"status"`
	TransactionID     *int64           `json:"transaction_id,omitempty"`
	ReminderCount     int32            `json:"reminder_count"`
	LastReminderAt    *time.Time       `json:"last_reminder_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Materialized reports whether a transaction has already claimed this
// schedule. At most one non-cancelled transaction is ever linked.
func (s *PaymentSchedule) Materialized() bool {
	return s.TransactionID != nil
}
