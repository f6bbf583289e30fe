package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/logger"
)

// MaterializeUpcomingSchedules turns schedules falling due within the
// configured window into pending transactions. Revenue-based schedules whose
// revenue has not been declared yet are skipped and picked up on a later run.
func (jr *JobRunner) MaterializeUpcomingSchedules() {
	jr.runWithRecovery("MaterializeUpcomingSchedules", func() {
		ctx := context.Background()
		now := jr.clock.Now()

		// The zero lower bound also picks up past-due schedules whose claim
		// was released after a failed payment.
		windowEnd := now.AddDate(0, 0, jr.config.Ledger.UpcomingWindowDays)
		schedules, err := jr.store.ScheduleRepository.ListDueWithin(ctx, time.Time{}, windowEnd)
		if err != nil {
			logger.Error("Failed to list due schedules", "error", err)
			return
		}

		materialized := 0
		for _, sch := range schedules {
			_, err := jr.services.Schedule.Materialize(ctx, sch.ID)
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				logger.Warn("Schedule not ready to materialize",
					"schedule_id", sch.ID, "franchisee_id", sch.FranchiseeID, "reason", ve.Reason)
				continue
			}
			if err != nil {
				logger.Error("Failed to materialize schedule", "schedule_id", sch.ID, "error", err)
				continue
			}
			materialized++
		}
		logger.Info("Materialized upcoming schedules", "due", len(schedules), "materialized", materialized)
	})
}

// SendOverdueReminders emails every franchisee with a pending transaction
// past its due date, including an advisory late penalty estimate. Schedule
// backed transactions carry a reminder counter and a cooldown so a daily run
// does not double-send.
func (jr *JobRunner) SendOverdueReminders() {
	jr.runWithRecovery("SendOverdueReminders", func() {
		ctx := context.Background()
		now := jr.clock.Now()
		cooldown := time.Duration(jr.config.Ledger.ReminderCooldownHours) * time.Hour
		penaltyRate := jr.config.Ledger.PenaltyRate()

		overdue, err := jr.store.TransactionRepository.ListPendingPastDue(ctx, now)
		if err != nil {
			logger.Error("Failed to list overdue transactions", "error", err)
			return
		}

		sent := 0
		for i := range overdue {
			tx := &overdue[i]
			if tx.DueDate == nil {
				continue
			}
			daysOverdue := int(now.Sub(*tx.DueDate).Hours() / 24)
			if daysOverdue < 1 {
				continue
			}

			if tx.ScheduleID != nil {
				sch, err := jr.store.ScheduleRepository.GetByID(ctx, *tx.ScheduleID)
				if err != nil {
					logger.Error("Failed to load schedule for reminder", "schedule_id", *tx.ScheduleID, "error", err)
					continue
				}
				if sch.LastReminderAt != nil && now.Sub(*sch.LastReminderAt) < cooldown {
					continue
				}
			}

			// Advisory only. Actual penalties are explicit PENALTY
			// transactions booked by an operator.
			penalty := penaltyRate.Mul(decimal.NewFromInt(int64(daysOverdue)))
			if err := jr.services.Notification.SendPaymentReminder(ctx, tx, daysOverdue, penalty); err != nil {
				logger.Error("Failed to send payment reminder",
					"transaction_id", tx.ID, "franchisee_id", tx.FranchiseeID, "error", err)
				continue
			}
			sent++

			if tx.ScheduleID != nil {
				if err := jr.store.ScheduleRepository.IncrementReminder(ctx, *tx.ScheduleID, now, true); err != nil {
					logger.Error("Failed to record reminder", "schedule_id", *tx.ScheduleID, "error", err)
				}
			}
		}
		logger.Info("Sent overdue reminders", "overdue", len(overdue), "sent", sent)
	})
}

// EscalateFinalNotices handles long-overdue payments: the franchisee gets a
// final notice, the contract is flagged at risk and the operator is alerted.
// A contract already flagged is not escalated again.
func (jr *JobRunner) EscalateFinalNotices() {
	jr.runWithRecovery("EscalateFinalNotices", func() {
		ctx := context.Background()
		now := jr.clock.Now()
		cutoff := now.AddDate(0, 0, -jr.config.Ledger.FinalNoticeDays)

		longOverdue, err := jr.store.TransactionRepository.ListPendingOverdueSince(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to list long-overdue transactions", "error", err)
			return
		}

		for i := range longOverdue {
			tx := &longOverdue[i]
			if tx.DueDate == nil {
				continue
			}

			contract, err := jr.store.ContractRepository.GetByFranchisee(ctx, tx.FranchiseeID)
			if err != nil {
				logger.Error("Failed to load contract for escalation",
					"franchisee_id", tx.FranchiseeID, "error", err)
				continue
			}
			if contract.AtRisk {
				continue
			}

			daysOverdue := int(now.Sub(*tx.DueDate).Hours() / 24)
			if err := jr.services.Notification.SendFinalNotice(ctx, tx, daysOverdue); err != nil {
				logger.Error("Failed to send final notice", "transaction_id", tx.ID, "error", err)
				continue
			}
			if err := jr.store.ContractRepository.MarkAtRisk(ctx, contract.ID); err != nil {
				logger.Error("Failed to mark contract at risk", "contract_id", contract.ID, "error", err)
				continue
			}
			if err := jr.services.Notification.SendOperatorAlert(ctx,
				fmt.Sprintf("Franchise %d escalated", tx.FranchiseeID),
				fmt.Sprintf("Payment %s (%s %s) is %d days overdue. Contract %d flagged at risk.",
					tx.Reference, tx.Amount.StringFixed(2), tx.Currency, daysOverdue, contract.ID)); err != nil {
				logger.Error("Failed to send operator alert", "franchisee_id", tx.FranchiseeID, "error", err)
			}
			logger.Info("Escalated long-overdue payment",
				"transaction_id", tx.ID, "franchisee_id", tx.FranchiseeID,
				"contract_id", contract.ID, "days_overdue", daysOverdue)
		}
	})
}

// FlagAbandonedPayments tags pending transactions nobody touched within the
// abandonment window. The transactions stay PENDING and payable; the tag only
// keeps them out of operator dashboards.
func (jr *JobRunner) FlagAbandonedPayments() {
	jr.runWithRecovery("FlagAbandonedPayments", func() {
		ctx := context.Background()
		now := jr.clock.Now()
		cutoff := now.Add(-time.Duration(jr.config.Ledger.AbandonedAfterHours) * time.Hour)

		abandoned, err := jr.store.TransactionRepository.ListAbandoned(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to list abandoned transactions", "error", err)
			return
		}

		flagged := 0
		for i := range abandoned {
			tx := &abandoned[i]
			if err := jr.store.TransactionRepository.FlagAbandoned(ctx, tx.ID, now); err != nil {
				logger.Error("Failed to flag abandoned transaction", "transaction_id", tx.ID, "error", err)
				continue
			}
			flagged++
		}
		logger.Info("Flagged abandoned payments", "candidates", len(abandoned), "flagged", flagged)
	})
}

// AuditLedgerConsistency sweeps every account and blocks the ones whose
// balance no longer matches the movement journal.
func (jr *JobRunner) AuditLedgerConsistency() {
	jr.runWithRecovery("AuditLedgerConsistency", func() {
		ctx := context.Background()
		if err := jr.services.Audit.AuditAll(ctx); err != nil {
			logger.Error("Ledger consistency audit found violations", "error", err)
			return
		}
		logger.Info("Ledger consistency audit passed")
	})
}
