package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/config"
	"franchise-ledger-backend/internal/jobs"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository/postgres"
	"franchise-ledger-backend/internal/scheduler"
	"franchise-ledger-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'send-overdue-reminders', 'all-daily')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Ledger Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)
	contacts := postgres.NewContactResolver(db)
	clk := clock.New()

	// Initialize Services
	notificationService := service.NewEmailService(cfg.SendGrid, contacts)
	scheduleService := service.NewScheduleService(
		store.ScheduleRepository,
		store.ContractRepository,
		store.TransactionRepository,
		clk,
		cfg.Ledger.Currency,
		cfg.Ledger.RoyaltyMonthsAhead,
	)
	auditService := service.NewAuditService(
		store.AccountRepository,
		store.LedgerRepository,
		notificationService,
	)

	jobServices := &jobs.Services{
		Schedule:     scheduleService,
		Notification: notificationService,
		Audit:        auditService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, jobServices, cfg, clk)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "materialize-upcoming-schedules":
		jobRunner.MaterializeUpcomingSchedules()
	case "send-overdue-reminders":
		jobRunner.SendOverdueReminders()
	case "escalate-final-notices":
		jobRunner.EscalateFinalNotices()
	case "flag-abandoned-payments":
		jobRunner.FlagAbandonedPayments()
	case "audit-ledger-consistency":
		jobRunner.AuditLedgerConsistency()
	case "all-daily":
		jobRunner.RunAllDailyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - materialize-upcoming-schedules\n")
		fmt.Printf("  - send-overdue-reminders\n")
		fmt.Printf("  - escalate-final-notices\n")
		fmt.Printf("  - flag-abandoned-payments\n")
		fmt.Printf("  - audit-ledger-consistency\n")
		fmt.Printf("  - all-daily\n")
		os.Exit(1)
	}
}
