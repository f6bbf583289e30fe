package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "franchise-ledger-backend/internal/api/http"
	"franchise-ledger-backend/internal/clock"
	"franchise-ledger-backend/internal/config"
	"franchise-ledger-backend/internal/gateway"
	"franchise-ledger-backend/internal/logger"
	"franchise-ledger-backend/internal/repository/postgres"
	"franchise-ledger-backend/internal/security"
	"franchise-ledger-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Franchise Ledger Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
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

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize payment gateway
	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.SecretKey,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
		cfg.Gateway.MaxRetries,
	)
	clk := clock.New()
	verifier := gateway.NewSignatureVerifier(
		cfg.Gateway.WebhookSecret,
		time.Duration(cfg.Gateway.SignatureTolerance)*time.Second,
		clk,
	)

	// Initialize Services
	notificationSvc := service.NewEmailService(cfg.SendGrid, contacts)
	balanceSvc := service.NewBalanceService(store.AccountRepository, store.LedgerRepository)
	scheduleSvc := service.NewScheduleService(
		store.ScheduleRepository,
		store.ContractRepository,
		store.TransactionRepository,
		clk,
		cfg.Ledger.Currency,
		cfg.Ledger.RoyaltyMonthsAhead,
	)
	transactionSvc := service.NewTransactionService(
		store.TransactionRepository,
		store.AccountRepository,
		store.ContractRepository,
		store.ScheduleRepository,
		scheduleSvc,
		notificationSvc,
		gatewayClient,
		clk,
		cfg.Ledger.Currency,
	)
	contractSvc := service.NewContractService(store.ContractRepository, clk)
	reconcilerSvc := service.NewReconcilerService(store.TransactionRepository, transactionSvc)

	// Initialize HTTP handlers
	handlers := &httpapi.Handlers{
		Accounts:     httpapi.NewAccountHandler(balanceSvc),
		Transactions: httpapi.NewTransactionHandler(transactionSvc),
		Schedules:    httpapi.NewScheduleHandler(scheduleSvc),
		Contracts:    httpapi.NewContractHandler(contractSvc),
		Webhooks:     httpapi.NewWebhookHandler(verifier, reconcilerSvc),
		Auth:         httpapi.NewAuthMiddleware(tokenManager),
	}
	router := httpapi.NewRouter(handlers)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down...", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}
