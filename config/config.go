// Package config provides configuration management for the crop advisor service.
// It reads environment variables (optionally seeded from a .env file by main), applies
// defaults, and reports every problem at once instead of failing on the first one.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/user/cropadvisor-go/apperror"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// DefaultSecretKey is the development fallback used when SECRET_KEY is unset.
// main logs a warning when it is in use.
const DefaultSecretKey = "dev-secret"

// DatabaseConfig describes where users are stored.
// A postgres:// or postgresql:// DATABASE_URL selects PostgreSQL; otherwise the
// service falls back to a local SQLite file, which is handy for development.
type DatabaseConfig struct {
	URL            string
	SQLitePath     string
	MaxConns       int
	MigrationsPath string
}

// UsesPostgres reports whether the configured URL points at PostgreSQL.
func (c *DatabaseConfig) UsesPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	SecretKey        string        // Signs the session cookie
	SessionTTL       time.Duration // Lifetime of a login session
	SessionStore     string        // memory or badger
	SessionBadgerDir string        // Directory for the badger session store
	CookieSecure     bool          // Sets the Secure flag on the session cookie
	BcryptCost       int           // Work factor for password hashes
	RateLimit        int           // Requests per minute per IP on /login and /register
}

// ArtifactConfig holds the locations of the files produced by the trainer.
type ArtifactConfig struct {
	ModelPath    string
	EncoderPath  string
	CropInfoPath string
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	Database  *DatabaseConfig
	Auth      *AuthConfig
	Artifacts *ArtifactConfig
	Server    *ServerConfig
	Log       *LogConfig
}

// Helper function to get an optional environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get an optional environment variable parsed as an int.
// A value that does not parse is recorded in errors and the default is used.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// Helper function to get an optional environment variable parsed as a bool.
func getOptionalEnvBool(key string, defaultValue bool, errors *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// Helper function to get an optional environment variable parsed as time.Duration.
// `time.ParseDuration` expects a string like "15m" or "24h".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	if valueDuration <= 0 {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: duration must be positive, got '%s'", key, valueStr))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the pool size between 5 and 100, recording a note when clamped.
func clampPoolSize(size int, varName string, errors *[]string) int {
	if size < 5 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 5", varName, size))
		return 5
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100", varName, size))
		return 100
	}
	return size
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadConfig creates and returns an AppConfig by reading and validating environment variables.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	database := &DatabaseConfig{
		URL:            getOptionalEnv("DATABASE_URL", ""),
		SQLitePath:     getOptionalEnv("SQLITE_PATH", "local.db"),
		MaxConns:       clampPoolSize(getOptionalEnvInt("DB_MAX_CONNS", 10, &errors), "DB_MAX_CONNS", &errors),
		MigrationsPath: getOptionalEnv("MIGRATIONS_PATH", "./migrations"),
	}
	if database.URL != "" && !database.UsesPostgres() {
		errors = append(errors, fmt.Sprintf("DATABASE_URL must be a postgres:// or postgresql:// URL, got scheme of '%s'", schemeOf(database.URL)))
	}

	authConfig := &AuthConfig{
		SecretKey:        getOptionalEnv("SECRET_KEY", DefaultSecretKey),
		SessionTTL:       getOptionalEnvDuration("SESSION_TTL", 24*time.Hour, &errors),
		SessionStore:     strings.ToLower(getOptionalEnv("SESSION_STORE", SessionStoreMemory)),
		SessionBadgerDir: getOptionalEnv("SESSION_BADGER_DIR", "data/sessions"),
		CookieSecure:     getOptionalEnvBool("COOKIE_SECURE", false, &errors),
		BcryptCost:       getOptionalEnvInt("BCRYPT_COST", 10, &errors),
		RateLimit:        getOptionalEnvInt("AUTH_RATE_LIMIT", 20, &errors),
	}
	if authConfig.SessionStore != SessionStoreMemory && authConfig.SessionStore != SessionStoreBadger {
		errors = append(errors, fmt.Sprintf("invalid value for SESSION_STORE: expected memory or badger, got '%s'", authConfig.SessionStore))
	}
	// bcrypt accepts 4..31; anything else silently falls back inside the library.
	if authConfig.BcryptCost < 4 || authConfig.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid value for BCRYPT_COST: must be between 4 and 31, got %d", authConfig.BcryptCost))
	}
	if authConfig.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid value for AUTH_RATE_LIMIT: must not be negative, got %d", authConfig.RateLimit))
	}

	artifacts := &ArtifactConfig{
		ModelPath:    getOptionalEnv("MODEL_PATH", "model.json"),
		EncoderPath:  getOptionalEnv("ENCODER_PATH", "label_encoder.json"),
		CropInfoPath: getOptionalEnv("CROP_INFO_PATH", "data/crops_info.csv"),
	}

	server := &ServerConfig{
		Port:        getOptionalEnv("PORT", "5000"),
		CORSOrigins: splitList(getOptionalEnv("CORS_ORIGINS", "*")),
	}

	logConfig := &LogConfig{
		Level:  getOptionalEnv("LOG_LEVEL", "info"),
		Format: getOptionalEnv("LOG_FORMAT", "json"),
	}

	if len(errors) > 0 {
		return nil, apperror.NewConfigError(
			fmt.Sprintf("configuration errors:\n- %s", strings.Join(errors, "\n- ")), nil)
	}

	return &AppConfig{
		Database:  database,
		Auth:      authConfig,
		Artifacts: artifacts,
		Server:    server,
		Log:       logConfig,
	}, nil
}

func schemeOf(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return url[:i]
	}
	return ""
}
