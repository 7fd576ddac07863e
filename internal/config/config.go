package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Import   ImportConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins []string
	// DevTokens enables the unauthenticated /dev/token endpoint.
	DevTokens bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

type UploadConfig struct {
	MaxFileSize     int64 // bytes
	AllowedTypes    []string
	BatchInsertSize int
	IdempotencyTTL  time.Duration
}

// ImportConfig controls the asynchronous import pipeline.
type ImportConfig struct {
	MaxRetries    int
	RetryBaseWait time.Duration
	Timeout       time.Duration
}

// IngestConfig controls the CSV engine.
type IngestConfig struct {
	ProgressEvery int
	PreviewLimit  int
	// DefaultLimit caps rows per import when the request sets none. Zero means all.
	DefaultLimit int
}

// LoadDotEnv loads variables from the given files, or .env when none are
// given, without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
			DevTokens:      getEnv("DEV_TOKENS", "false") == "true",
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "compass"),
			Password: getEnv("DB_PASSWORD", "compass_dev_password"),
			DBName:   getEnv("DB_NAME", "farm_ingest"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 20),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Issuer:      getEnv("JWT_ISSUER", "legacy-compass"),
			ExpiryHours: getIntEnv("JWT_EXPIRY_HOURS", 24),
		},
		Upload: UploadConfig{
			MaxFileSize:     int64(getIntEnv("UPLOAD_MAX_SIZE_MB", 100)) * 1024 * 1024,
			AllowedTypes:    []string{"text/csv", "application/csv", "application/vnd.ms-excel", "text/plain"},
			BatchInsertSize: getIntEnv("UPLOAD_BATCH_INSERT_SIZE", 1000),
			IdempotencyTTL:  getDurationEnv("UPLOAD_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Import: ImportConfig{
			MaxRetries:    getIntEnv("IMPORT_MAX_RETRIES", 3),
			RetryBaseWait: getDurationEnv("IMPORT_RETRY_BASE_WAIT", 2*time.Second),
			Timeout:       getDurationEnv("IMPORT_TIMEOUT", 10*time.Minute),
		},
		Ingest: IngestConfig{
			ProgressEvery: getIntEnv("INGEST_PROGRESS_EVERY", 100),
			PreviewLimit:  getIntEnv("INGEST_PREVIEW_LIMIT", 200),
			DefaultLimit:  getIntEnv("INGEST_DEFAULT_LIMIT", 0),
		},
	}
}

// DSN returns the Postgres connection string.
func (d *DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getListEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
