// Package config loads the relay configuration from .env files, an optional
// YAML file and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Messaging providers
const (
	ProviderZAPI   = "zapi"
	ProviderTwilio = "twilio"
)

// Config is the full relay configuration
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogFormat   string `yaml:"log_format"` // text or json

	Database  Database  `yaml:"database"`
	Redis     Redis     `yaml:"redis"`
	Guard     Guard     `yaml:"guard"`
	Messaging Messaging `yaml:"messaging"`
	Partner   Partner   `yaml:"partner"`
	Payment   Payment   `yaml:"payment"`
	HTTP      HTTP      `yaml:"http"`

	AdminToken             string `yaml:"admin_token"`
	BillingWebhookSecret   string `yaml:"billing_webhook_secret"`
	DefaultMaxInstallments int    `yaml:"default_max_installments"`
	InvoiceDueDays         int    `yaml:"invoice_due_days"`
}

// Database selects the durable store
type Database struct {
	Driver string `yaml:"driver"` // postgres, sqlite or memory
	DSN    string `yaml:"dsn"`
}

// Redis configures the session cache. An empty URL selects the in-process cache.
type Redis struct {
	URL        string        `yaml:"url"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Guard configures webhook idempotency and per-phone locking
type Guard struct {
	DedupTTL    time.Duration `yaml:"dedup_ttl"`
	DebounceTTL time.Duration `yaml:"debounce_ttl"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	LockWait    time.Duration `yaml:"lock_wait"`
}

// Messaging configures the WhatsApp gateway
type Messaging struct {
	Provider          string `yaml:"provider"`
	OwnNumber         string `yaml:"own_number"`
	ZAPIBaseURL       string `yaml:"zapi_base_url"`
	ZAPIInstance      string `yaml:"zapi_instance"`
	ZAPIToken         string `yaml:"zapi_token"`
	ZAPIClientToken   string `yaml:"zapi_client_token"`
	TwilioAccountSID  string `yaml:"twilio_account_sid"`
	TwilioAuthToken   string `yaml:"twilio_auth_token"`
	TwilioFrom        string `yaml:"twilio_from"`
	DisableValidation bool   `yaml:"disable_validation"`
}

// Partner configures the partner backend (customers, cohorts, catalog)
type Partner struct {
	BaseURL         string        `yaml:"base_url"`
	Email           string        `yaml:"email"`
	Password        string        `yaml:"password"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Payment configures the payment backend
type Payment struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// HTTP configures every outbound call
type HTTP struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:        "8080",
		Environment: "development",
		LogFormat:   "text",
		Database:    Database{Driver: "postgres"},
		Redis:       Redis{SessionTTL: time.Hour},
		Guard: Guard{
			DedupTTL:    10 * time.Minute,
			DebounceTTL: 3 * time.Second,
			LockTTL:     10 * time.Second,
			LockWait:    5 * time.Second,
		},
		Messaging: Messaging{
			Provider:    ProviderZAPI,
			ZAPIBaseURL: "https://api.z-api.io",
		},
		Partner:                Partner{RefreshInterval: 30 * time.Minute},
		HTTP:                   HTTP{Timeout: 10 * time.Second, MaxRetries: 2},
		DefaultMaxInstallments: 12,
		InvoiceDueDays:         3,
	}
}

// Load reads and validates the configuration
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read reads .env files, the optional CONFIG_FILE and the environment without validating
func Read() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			slog.Debug("no .env file found, using process environment")
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else {
				slog.Warn("ignoring invalid duration", "key", key, "value", v)
			}
		}
	}
	integer := func(dst *int, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else {
				slog.Warn("ignoring invalid integer", "key", key, "value", v)
			}
		}
	}

	str(&c.Port, "PORT")
	str(&c.Environment, "ENVIRONMENT")
	str(&c.LogFormat, "LOG_FORMAT")

	str(&c.Database.Driver, "DB_DRIVER")
	str(&c.Database.DSN, "DATABASE_URL")

	str(&c.Redis.URL, "REDIS_URL")
	dur(&c.Redis.SessionTTL, "SESSION_CACHE_TTL")

	dur(&c.Guard.DedupTTL, "DEDUP_TTL")
	dur(&c.Guard.DebounceTTL, "DEBOUNCE_TTL")
	dur(&c.Guard.LockTTL, "LOCK_TTL")
	dur(&c.Guard.LockWait, "LOCK_WAIT")

	str(&c.Messaging.Provider, "MESSAGING_PROVIDER")
	str(&c.Messaging.OwnNumber, "WHATSAPP_OWN_NUMBER")
	str(&c.Messaging.ZAPIBaseURL, "ZAPI_BASE_URL")
	str(&c.Messaging.ZAPIInstance, "ZAPI_INSTANCE_ID")
	str(&c.Messaging.ZAPIToken, "ZAPI_TOKEN")
	str(&c.Messaging.ZAPIClientToken, "ZAPI_CLIENT_TOKEN")
	str(&c.Messaging.TwilioAccountSID, "TWILIO_ACCOUNT_SID")
	str(&c.Messaging.TwilioAuthToken, "TWILIO_AUTH_TOKEN")
	str(&c.Messaging.TwilioFrom, "TWILIO_WHATSAPP_FROM")
	if v := getenv("DISABLE_WEBHOOK_VALIDATION"); v != "" {
		c.Messaging.DisableValidation = v == "true"
	}

	str(&c.Partner.BaseURL, "PARTNER_API_URL")
	str(&c.Partner.Email, "PARTNER_API_EMAIL")
	str(&c.Partner.Password, "PARTNER_API_PASSWORD")
	dur(&c.Partner.RefreshInterval, "PARTNER_TOKEN_REFRESH")

	str(&c.Payment.BaseURL, "PAYMENT_API_URL")
	str(&c.Payment.APIKey, "PAYMENT_API_KEY")

	dur(&c.HTTP.Timeout, "HTTP_TIMEOUT")
	integer(&c.HTTP.MaxRetries, "HTTP_MAX_RETRIES")

	str(&c.AdminToken, "ADMIN_TOKEN")
	str(&c.BillingWebhookSecret, "BILLING_WEBHOOK_SECRET")
	integer(&c.DefaultMaxInstallments, "DEFAULT_MAX_INSTALLMENTS")
	integer(&c.InvoiceDueDays, "INVOICE_DUE_DAYS")
}

// Validate checks the settings the process cannot start without
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Messaging.Provider {
	case ProviderZAPI:
		if c.Messaging.ZAPIInstance == "" || c.Messaging.ZAPIToken == "" {
			errs = append(errs, errors.New("ZAPI_INSTANCE_ID and ZAPI_TOKEN are required"))
		}
	case ProviderTwilio:
		if c.Messaging.TwilioAccountSID == "" || c.Messaging.TwilioAuthToken == "" || c.Messaging.TwilioFrom == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported MESSAGING_PROVIDER %q", c.Messaging.Provider))
	}

	if c.Partner.BaseURL == "" || c.Partner.Email == "" || c.Partner.Password == "" {
		errs = append(errs, errors.New("PARTNER_API_URL, PARTNER_API_EMAIL and PARTNER_API_PASSWORD are required"))
	}
	if c.Payment.BaseURL == "" || c.Payment.APIKey == "" {
		errs = append(errs, errors.New("PAYMENT_API_URL and PAYMENT_API_KEY are required"))
	}
	if c.DefaultMaxInstallments < 1 {
		errs = append(errs, errors.New("DEFAULT_MAX_INSTALLMENTS must be at least 1"))
	}
	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, errors.New("HTTP_MAX_RETRIES cannot be negative"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the relay runs with production settings
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
