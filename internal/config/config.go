package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	JWT       JWTConfig       `yaml:"jwt"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// SendGridConfig contains notification delivery settings
type SendGridConfig struct {
	APIKey        string `yaml:"api_key"`
	FromEmail     string `yaml:"from_email"`
	FromName      string `yaml:"from_name"`
	OperatorEmail string `yaml:"operator_email"`
}

// JWTConfig contains admin API token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// GatewayConfig contains payment provider settings
type GatewayConfig struct {
	BaseURL            string `yaml:"base_url"`
	SecretKey          string `yaml:"secret_key"`
	WebhookSecret      string `yaml:"webhook_secret"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MaxRetries         int    `yaml:"max_retries"`
	SignatureTolerance int    `yaml:"signature_tolerance_seconds"`
}

// LedgerConfig contains bookkeeping and escalation settings
type LedgerConfig struct {
	Currency              string `yaml:"currency"`
	UpcomingWindowDays    int    `yaml:"upcoming_window_days"`
	FinalNoticeDays       int    `yaml:"final_notice_days"`
	AbandonedAfterHours   int    `yaml:"abandoned_after_hours"`
	PenaltyDailyRate      string `yaml:"penalty_daily_rate"` // decimal, e.g. "0.50" per day
	RoyaltyMonthsAhead    int    `yaml:"royalty_months_ahead"`
	ReminderCooldownHours int    `yaml:"reminder_cooldown_hours"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	MaterializeUpcoming   string `yaml:"materialize_upcoming"`
	SendOverdueReminders  string `yaml:"send_overdue_reminders"`
	EscalateFinalNotices  string `yaml:"escalate_final_notices"`
	FlagAbandonedPayments string `yaml:"flag_abandoned_payments"`
	AuditConsistency      string `yaml:"audit_consistency"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("SENDGRID_FROM_EMAIL"); val != "" {
		c.SendGrid.FromEmail = val
	}
	if val := os.Getenv("OPERATOR_EMAIL"); val != "" {
		c.SendGrid.OperatorEmail = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Gateway
	if val := os.Getenv("GATEWAY_BASE_URL"); val != "" {
		c.Gateway.BaseURL = val
	}
	if val := os.Getenv("GATEWAY_SECRET_KEY"); val != "" {
		c.Gateway.SecretKey = val
	}
	if val := os.Getenv("GATEWAY_WEBHOOK_SECRET"); val != "" {
		c.Gateway.WebhookSecret = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration and applies defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Gateway validation and defaults
	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("gateway webhook secret is required")
	}
	if c.Gateway.TimeoutSeconds == 0 {
		c.Gateway.TimeoutSeconds = 10
	}
	if c.Gateway.MaxRetries == 0 {
		c.Gateway.MaxRetries = 3
	}
	if c.Gateway.SignatureTolerance == 0 {
		c.Gateway.SignatureTolerance = 300 // 5 minutes
	}

	// Ledger defaults
	if c.Ledger.Currency == "" {
		c.Ledger.Currency = "EUR"
	}
	if c.Ledger.UpcomingWindowDays == 0 {
		c.Ledger.UpcomingWindowDays = 7
	}
	if c.Ledger.FinalNoticeDays == 0 {
		c.Ledger.FinalNoticeDays = 21
	}
	if c.Ledger.AbandonedAfterHours == 0 {
		c.Ledger.AbandonedAfterHours = 24
	}
	if c.Ledger.PenaltyDailyRate == "" {
		c.Ledger.PenaltyDailyRate = "0.50"
	}
	if _, err := decimal.NewFromString(c.Ledger.PenaltyDailyRate); err != nil {
		return fmt.Errorf("invalid penalty daily rate %q: %w", c.Ledger.PenaltyDailyRate, err)
	}
	if c.Ledger.RoyaltyMonthsAhead == 0 {
		c.Ledger.RoyaltyMonthsAhead = 12
	}
	if c.Ledger.ReminderCooldownHours == 0 {
		c.Ledger.ReminderCooldownHours = 24
	}

	// Scheduler defaults
	if c.Scheduler.MaterializeUpcoming == "" {
		c.Scheduler.MaterializeUpcoming = "0 0 1 * * *" // 1 AM UTC
	}
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 8 * * *" // 8 AM UTC
	}
	if c.Scheduler.EscalateFinalNotices == "" {
		c.Scheduler.EscalateFinalNotices = "0 30 8 * * *" // 8:30 AM UTC
	}
	if c.Scheduler.FlagAbandonedPayments == "" {
		c.Scheduler.FlagAbandonedPayments = "0 0 * * * *" // hourly
	}
	if c.Scheduler.AuditConsistency == "" {
		c.Scheduler.AuditConsistency = "0 0 4 * * *" // 4 AM UTC
	}

	return nil
}

// PenaltyRate returns the parsed daily penalty rate. Validate guarantees the
// string parses.
func (c *LedgerConfig) PenaltyRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.PenaltyDailyRate)
	return rate
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
