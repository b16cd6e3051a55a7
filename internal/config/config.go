package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendJWT = "jwt"
	SessionBackendDB  = "db"

	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string
	DBMigrate    bool // Run goose migrations on startup

	// Sessions
	SessionBackend string // "jwt" or "db"
	JWTSecret      string
	SessionExpiry  time.Duration

	// Observability (optional)
	SentryDSN string

	// Blob storage
	StorageBackend string // "local" or "s3"
	StorageRoot    string // Root directory for the local backend

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "StudyVault"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/studyvault.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		DBMigrate:    envBool("DB_MIGRATE", true),

		// Sessions
		SessionBackend: envString("SESSION_BACKEND", SessionBackendJWT),
		JWTSecret:      envRequired("JWT_SECRET"),
		SessionExpiry:  envDuration("SESSION_EXPIRY", 168*time.Hour), // 7 days

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Blob storage
		StorageBackend: envString("STORAGE_BACKEND", StorageBackendLocal),
		StorageRoot:    envString("STORAGE_ROOT", "./data/uploads"),

		// S3 (only read when STORAGE_BACKEND=s3)
		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	err = cfg.Validate()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	return cfg
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets and credentials are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:        c.AppName,
		AppEnv:         c.AppEnv,
		Port:           c.Port,
		DBDriver:       c.DBDriver,
		SessionBackend: c.SessionBackend,
		SessionExpiry:  c.SessionExpiry,
		StorageBackend: c.StorageBackend,
		StorageRoot:    c.StorageRoot,
		S3Region:       c.S3Region,
		S3Bucket:       c.S3Bucket,
		S3Endpoint:     c.S3Endpoint,
	}
}
