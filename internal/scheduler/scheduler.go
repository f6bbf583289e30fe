package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"franchise-ledger-backend/internal/jobs"
	"franchise-ledger-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	// Materialize schedules falling due soon
	_, err := s.cron.AddFunc(cfg.MaterializeUpcoming, s.jobs.MaterializeUpcomingSchedules)
	if err != nil {
		logger.Error("Failed to register MaterializeUpcomingSchedules job", "error", err)
	}

	// Overdue payment reminders
	_, err = s.cron.AddFunc(cfg.SendOverdueReminders, s.jobs.SendOverdueReminders)
	if err != nil {
		logger.Error("Failed to register SendOverdueReminders job", "error", err)
	}

	// Final notices and contract escalation
	_, err = s.cron.AddFunc(cfg.EscalateFinalNotices, s.jobs.EscalateFinalNotices)
	if err != nil {
		logger.Error("Failed to register EscalateFinalNotices job", "error", err)
	}

	// Abandoned payment intents
	_, err = s.cron.AddFunc(cfg.FlagAbandonedPayments, s.jobs.FlagAbandonedPayments)
	if err != nil {
		logger.Error("Failed to register FlagAbandonedPayments job", "error", err)
	}

	// Balance vs movement journal audit
	_, err = s.cron.AddFunc(cfg.AuditConsistency, s.jobs.AuditLedgerConsistency)
	if err != nil {
		logger.Error("Failed to register AuditLedgerConsistency job", "error", err)
	}

	logger.Info("All cron jobs registered successfully")
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
