package jobs

import (
	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/config"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository/postgres"
	"franchise-ledger-backend/internal/service"
)

// JobRunner coordinates all scheduled ledger jobs
type JobRunner struct {
	store    *postgres.Store
	services *Services
	config   *config.Config
	clock    clock.Clock
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Schedule     service.ScheduleService
	Notification service.NotificationService
	Audit        service.AuditService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store *postgres.Store, services *Services, cfg *config.Config, clk clock.Clock) *JobRunner {
	return &JobRunner{
		store:    store,
		services: services,
		config:   cfg,
		clock:    clk,
	}
}

// Config exposes the runner's configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllDailyJobs runs every daily job in dependency order (for manual
// execution with -run-once)
func (jr *JobRunner) RunAllDailyJobs() {
	jr.MaterializeUpcomingSchedules()
	jr.SendOverdueReminders()
	jr.EscalateFinalNotices()
	jr.FlagAbandonedPayments()
	jr.AuditLedgerConsistency()
}
