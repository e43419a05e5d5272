package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/log"
)

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Persistence
	DataBackend  string
	DatabasePath string

	// Auth
	AuthIssuer        string
	FirebaseProjectID string
	AuthSigningKey    string
	AuthDisabled      bool

	// Sessions and deferred saves
	SessionCacheSize  int
	SessionTTL        time.Duration
	SaveRetryInterval time.Duration
	SaveMaxBackoff    time.Duration

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	GoogleSpreadsheetID string
	MirrorInterval      time.Duration

	// Logging and calendar
	LogLevel  string
	LogFormat string
	Timezone  string
}

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "3001"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		DatabasePath: getEnv("DATABASE_URL", getEnv("MONGODB_URI", "./data/fintrack.db")),

		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		AuthSigningKey:    getEnv("AUTH_SIGNING_KEY", ""),
		AuthDisabled:      getEnvBool("AUTH_DISABLED", false),

		SessionCacheSize:  getEnvInt("SESSION_CACHE_SIZE", 256),
		SessionTTL:        getEnvDuration("SESSION_TTL", 30*time.Minute),
		SaveRetryInterval: getEnvDuration("SAVE_RETRY_INTERVAL", 5*time.Second),
		SaveMaxBackoff:    getEnvDuration("SAVE_MAX_BACKOFF", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "collection_saved"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		MirrorInterval:      getEnvDuration("MIRROR_INTERVAL", 15*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", log.FormatText),
		Timezone:  getEnv("TIMEZONE", "Local"),
	}

	cfg.AuthIssuer = getEnv("AUTH_ISSUER", "")
	if cfg.AuthIssuer == "" && cfg.FirebaseProjectID != "" {
		cfg.AuthIssuer = auth.FirebaseIssuerPrefix + cfg.FirebaseProjectID
	}

	return cfg
}

// Validate checks the API server configuration and returns every problem
// in one error.
func (c *Config) Validate() error {
	problems := c.common()

	if !c.AuthDisabled && strings.TrimSpace(c.AuthSigningKey) == "" {
		problems = append(problems, "AUTH_SIGNING_KEY is required unless AUTH_DISABLED=true")
	}
	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid CORS origin '%s'", origin))
		}
	}
	if c.SessionCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.SessionTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid session TTL %v: must be at least 1 second", c.SessionTTL))
	}
	if c.SaveRetryInterval <= 0 {
		problems = append(problems, fmt.Sprintf("invalid save retry interval %v: must be positive", c.SaveRetryInterval))
	} else if c.SaveMaxBackoff < c.SaveRetryInterval {
		problems = append(problems, fmt.Sprintf("invalid save max backoff %v: must be at least the retry interval %v", c.SaveMaxBackoff, c.SaveRetryInterval))
	}

	return combine(problems)
}

// ValidateWorker checks the mirror worker configuration.
func (c *Config) ValidateWorker() error {
	problems := c.common()

	if c.DataBackend != BackendSQLite {
		problems = append(problems, "the mirror worker requires DATA_BACKEND=sqlite")
	}
	if c.AMQPURL == "" {
		problems = append(problems, "AMQP_URL is required for the mirror worker")
	}
	if c.GoogleSpreadsheetID == "" {
		problems = append(problems, "GOOGLE_SPREADSHEET_ID is required for the mirror worker")
	}
	if c.MirrorInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid mirror interval %v: must be at least 1 second", c.MirrorInterval))
	} else if c.MirrorInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid mirror interval %v: must be at most 24 hours", c.MirrorInterval))
	}

	return combine(problems)
}

func (c *Config) common() []string {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.DatabasePath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.DatabasePath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch c.LogFormat {
	case log.FormatText, log.FormatJSON, log.FormatTint:
	default:
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text, json or tint", c.LogFormat))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	return problems
}

// Location returns the calendar used for "today" and "this month".
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// AuthAudience is the expected token audience, empty when unchecked.
func (c *Config) AuthAudience() string {
	return c.FirebaseProjectID
}

func combine(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
