package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:",prefix=SERVER_"`

	// Ledger backend configuration
	Ledger LedgerConfig `env:",prefix=LEDGER_"`

	// Database configuration (postgres ledger backend only)
	Database DatabaseConfig `env:",prefix=DB_"`

	// Campaign configuration
	Campaign CampaignConfig `env:",prefix=CAMPAIGN_"`

	// CRM provider configuration
	CRM CRMConfig `env:",prefix=CRM_"`

	// Rate limiting for the public submission endpoints
	RateLimit RateLimitConfig `env:",prefix=RATE_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// LedgerConfig selects and configures the submission ledger backend
type LedgerConfig struct {
	// Backend is one of "file", "postgres" or "memory". The file backend is
	// single-process only; multi-instance deployments need postgres.
	Backend  string `env:"BACKEND,default=file"`
	FilePath string `env:"FILE_PATH,default=data/used-codes.json"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=giveaway"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	MaxConns int    `env:"MAX_CONNS,default=25"`
	MinConns int    `env:"MIN_CONNS,default=5"`
}

// CampaignConfig identifies the running campaign
type CampaignConfig struct {
	Name string `env:"NAME,default=rubbellos_2025"`

	// Website is the originating-site identifier stamped on ledger entries
	// when a submission does not carry one; BaseDomain is the bare domain
	// the newsletter flow derives per-source subdomains from.
	Website    string `env:"WEBSITE,default=rubbellos.sweetsausallerwelt.de"`
	BaseDomain string `env:"BASE_DOMAIN,default=sweetsausallerwelt.de"`
	CodeLength int    `env:"CODE_LENGTH,default=5"`
}

// CRMConfig selects the marketing platform and carries its credentials
type CRMConfig struct {
	// Provider is "klaviyo" or "mailchimp"
	Provider string `env:"PROVIDER,default=klaviyo"`

	KlaviyoAPIKey string `env:"KLAVIYO_API_KEY"`
	KlaviyoListID string `env:"KLAVIYO_LIST_ID"`

	MailchimpAPIKey     string `env:"MAILCHIMP_API_KEY"`
	MailchimpAudienceID string `env:"MAILCHIMP_AUDIENCE_ID"`
}

// RateLimitConfig bounds the public submission endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"LIMIT_RPS,default=10"`
	Burst             int     `env:"LIMIT_BURST,default=20"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	Debug       bool   `env:"DEBUG,default=false"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Ledger.Backend {
	case "file", "postgres", "memory":
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}

	switch c.CRM.Provider {
	case "klaviyo", "mailchimp", "none":
	default:
		return fmt.Errorf("unknown crm provider %q", c.CRM.Provider)
	}

	if c.Campaign.CodeLength < 4 || c.Campaign.CodeLength > 16 {
		return fmt.Errorf("campaign code length %d out of range", c.Campaign.CodeLength)
	}

	return nil
}

// GetDatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
