package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Data backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// MinSessionKeyLength is the shortest accepted SESSION_KEY.
const MinSessionKeyLength = 32

type Config struct {
	// HTTP Server
	Port string
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// X-Forwarded-For is believed.
	TrustedProxies []string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// PaymentsAPIURL points the calendar at another dashboard's payments
	// endpoints instead of the local store.
	PaymentsAPIURL string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions
	SessionKey    string
	SecureCookies bool

	// Gym
	Timezone      string
	MonthlyFeeCRC int64

	// Due payments cache
	DueCacheTTL  time.Duration
	DueCacheSize int

	// Google Sheets ledger (worker)
	LedgerSpreadsheetID      string
	LedgerSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	LedgerBatchSize    int
	LedgerSyncInterval time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gymdash.db"),

		PaymentsAPIURL: getEnv("PAYMENTS_API_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gymdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "gym_payments"),

		SessionKey:    getEnv("SESSION_KEY", ""),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),

		Timezone:      getEnv("TIMEZONE", "America/Costa_Rica"),
		MonthlyFeeCRC: int64(getEnvInt("MONTHLY_FEE_CRC", 25000)),

		DueCacheTTL:  getEnvDuration("DUE_CACHE_TTL", 5*time.Minute),
		DueCacheSize: getEnvInt("DUE_CACHE_SIZE", 24),

		LedgerSpreadsheetID:      getEnv("LEDGER_SPREADSHEET_ID", ""),
		LedgerSheetName:          getEnv("LEDGER_SHEET_NAME", "Ingresos"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LedgerBatchSize:    getEnvInt("LEDGER_BATCH_SIZE", 25),
		LedgerSyncInterval: getEnvDuration("LEDGER_SYNC_INTERVAL", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Location returns the gym's time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LedgerEnabled reports whether the worker should write to Google Sheets.
func (c *Config) LedgerEnabled() bool {
	return strings.TrimSpace(c.LedgerSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.PaymentsAPIURL != "" {
		if u, err := url.Parse(c.PaymentsAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid payments API URL '%s': must be an absolute http(s) URL", c.PaymentsAPIURL))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SessionKey != "" && len(c.SessionKey) < MinSessionKeyLength {
		errors = append(errors, fmt.Sprintf("session key too short: need at least %d bytes", MinSessionKeyLength))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.MonthlyFeeCRC <= 0 {
		errors = append(errors, fmt.Sprintf("invalid monthly fee %d: must be positive", c.MonthlyFeeCRC))
	}

	if c.DueCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid due cache size %d: must be at least 1", c.DueCacheSize))
	}
	if c.DueCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid due cache TTL %v: must not be negative", c.DueCacheTTL))
	}

	// Validate worker configuration
	if c.LedgerBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid ledger batch size %d: must be at least 1", c.LedgerBatchSize))
	} else if c.LedgerBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid ledger batch size %d: must be at most 1000", c.LedgerBatchSize))
	}

	if c.LedgerSyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid ledger sync interval %v: must be at least 1 second", c.LedgerSyncInterval))
	} else if c.LedgerSyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid ledger sync interval %v: must be at most 24 hours", c.LedgerSyncInterval))
	}

	if c.LedgerEnabled() && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errors = append(errors, "ledger spreadsheet configured but no service account credentials provided")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
