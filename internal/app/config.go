package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Payment contract names accepted by POS_PAYMENT_CONTRACT.
const (
	PaymentContractAction = "action"
	PaymentContractLegacy = "legacy"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"50s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"40s"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	APIBaseURL string        `envconfig:"API_BASE_URL" default:"https://ringmotos.onrender.com"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"20s"`

	PaymentContract   string `envconfig:"POS_PAYMENT_CONTRACT" default:"action"`
	LedgerPaymentMode string `envconfig:"LEDGER_PAYMENT_MODE" default:"direct"`
	LedgerBalanceSign string `envconfig:"LEDGER_BALANCE_SIGN" default:"positive_owes"`

	ReportsCacheTTL time.Duration `envconfig:"REPORTS_CACHE_TTL" default:"5m"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerAPIToken    string `envconfig:"WORKER_API_TOKEN"`
	UseJobQueue       bool   `envconfig:"POS_USE_JOB_QUEUE" default:"true"`

	GotenbergURL      string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	BusinessName      string `envconfig:"BUSINESS_NAME" default:"Ring Motos"`
	QuoteValidityDays int    `envconfig:"QUOTE_VALIDITY_DAYS" default:"15"`
}

// LoadConfig reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment wins.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks secrets and enumerated settings.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("session secret must be provided")
	}
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	switch c.PaymentContract {
	case PaymentContractAction, PaymentContractLegacy:
	default:
		return fmt.Errorf("invalid POS_PAYMENT_CONTRACT %q", c.PaymentContract)
	}
	switch c.LedgerPaymentMode {
	case "direct", "allocations", "confirm_pending":
	default:
		return fmt.Errorf("invalid LEDGER_PAYMENT_MODE %q", c.LedgerPaymentMode)
	}
	switch c.LedgerBalanceSign {
	case "positive_owes", "negative_owes":
	default:
		return fmt.Errorf("invalid LEDGER_BALANCE_SIGN %q", c.LedgerBalanceSign)
	}
	if c.APITimeout <= 0 || c.AppRequestTimeout <= c.APITimeout {
		return fmt.Errorf("APP_REQUEST_TIMEOUT (%s) must exceed API_TIMEOUT (%s)", c.AppRequestTimeout, c.APITimeout)
	}
	if c.AppWriteTimeout <= c.AppRequestTimeout {
		return fmt.Errorf("APP_WRITE_TIMEOUT (%s) must exceed APP_REQUEST_TIMEOUT (%s)", c.AppWriteTimeout, c.AppRequestTimeout)
	}
	if c.QuoteValidityDays <= 0 {
		return errors.New("quote validity days must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
