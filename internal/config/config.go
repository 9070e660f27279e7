package config

import (
	"os"
	"strconv"
)

// UpstreamConfig holds settings for the Nginx Proxy Manager API the gateway
// forwards to.
type UpstreamConfig struct {
	// BaseURL is the root of the upstream API, e.g. http://npm:81.
	BaseURL            string
	RequestTimeoutSec  int
	InsecureSkipVerify bool
}

// RetryConfig controls how the upstream client retries failed requests.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// InitialBackoffMs is the delay before the first retry.
	InitialBackoffMs int
	// MaxBackoffMs caps the per-retry delay when exponential backoff is on.
	MaxBackoffMs int
	// Exponential doubles the delay between attempts when true; otherwise a
	// constant InitialBackoffMs delay is used between attempts.
	Exponential bool
}

// CORSConfig holds the cross-origin settings applied to every response.
type CORSConfig struct {
	AllowOrigins string
	AllowMethods string
	AllowHeaders string
}

// DatabaseConfig holds PostgreSQL settings for the audit log store.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// ArchiveConfig holds object storage settings for the certificate archive.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AppConfig is the centralized configuration struct for the gateway.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port        string
	FrontendDir string
	AuditDB     bool
	Upstream    UpstreamConfig
	Retry       RetryConfig
	CORS        CORSConfig
	Database    DatabaseConfig
	Archive     ArchiveConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:        getEnv("PORT", "3001"),
		FrontendDir: getEnv("FRONTEND_DIR", "./dist"),
		AuditDB:     getEnvBool("AUDIT_DB_ENABLED", false),
		Upstream: UpstreamConfig{
			BaseURL:            getEnv("NPM_API_URL", "http://localhost:81"),
			RequestTimeoutSec:  getEnvInt("NPM_REQUEST_TIMEOUT_SEC", 30),
			InsecureSkipVerify: getEnvBool("NPM_INSECURE_SKIP_VERIFY", false),
		},
		Retry: RetryConfig{
			MaxAttempts:      getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			InitialBackoffMs: getEnvInt("RETRY_INITIAL_BACKOFF_MS", 250),
			MaxBackoffMs:     getEnvInt("RETRY_MAX_BACKOFF_MS", 5000),
			Exponential:      getEnvBool("RETRY_EXPONENTIAL", true),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Authorization,Content-Type,X-Request-ID"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Archive: ArchiveConfig{
			Enabled:   getEnvBool("ARCHIVE_ENABLED", false),
			Endpoint:  getEnv("ARCHIVE_ENDPOINT", ""),
			AccessKey: getEnv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey: getEnv("ARCHIVE_SECRET_KEY", ""),
			Bucket:    getEnv("ARCHIVE_BUCKET", "npmdeck-certificates"),
			UseSSL:    getEnvBool("ARCHIVE_USE_SSL", false),
		},
	}
}

const redacted = "***"

// Redacted returns a copy of the configuration safe to expose on the /config
// endpoint: credentials and keys are masked, everything else is left as-is.
func (c *AppConfig) Redacted() AppConfig {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = redacted
	}
	if out.Archive.AccessKey != "" {
		out.Archive.AccessKey = redacted
	}
	if out.Archive.SecretKey != "" {
		out.Archive.SecretKey = redacted
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
