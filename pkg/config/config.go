package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Storage       StorageConfig
	Import        ImportConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Logging       LoggingConfig
	Notify        NotifyConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	CORSOrigins        []string
	MaxUploadBytes     int64
	ShutdownTimeout    time.Duration
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type StorageConfig struct {
	Type      string
	LocalPath string
}

type ImportConfig struct {
	BatchSize       int
	ErrorThreshold  float64
	MaxErrorSamples int
	DefaultCulture  string
	SynonymsFile    string

	// SweepSchedule is a cron spec; empty disables the staged-import sweeper.
	SweepSchedule string
	SweepWorkers  int
	SweepMinAge   time.Duration
	SweepLimit    int
}

type AuthConfig struct {
	// JWTSecret is optional. Without it every request runs as the local owner.
	JWTSecret string
	Issuer    string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

type NotifyConfig struct {
	ResendAPIKey string
	FromEmail    string
	To           []string
}

const defaultMaxUploadBytes = 50 << 20

// Load reads configuration from environment variables, after loading .env
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			CORSOrigins:        getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxUploadBytes:     int64(getEnvAsInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "sales"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 25),
			MinConns: getEnvAsInt("POSTGRES_MIN_CONNS", 5),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		},
		Import: ImportConfig{
			BatchSize:       getEnvAsInt("IMPORT_BATCH_SIZE", 1000),
			ErrorThreshold:  getEnvAsFloat("IMPORT_ERROR_THRESHOLD", 0.05),
			MaxErrorSamples: getEnvAsInt("IMPORT_MAX_ERROR_SAMPLES", 10),
			DefaultCulture:  getEnv("IMPORT_DEFAULT_CULTURE", "el-GR"),
			SynonymsFile:    getEnv("IMPORT_SYNONYMS_FILE", ""),
			SweepSchedule:   getEnv("IMPORT_SWEEP_SCHEDULE", ""),
			SweepWorkers:    getEnvAsInt("IMPORT_SWEEP_WORKERS", 2),
			SweepMinAge:     getEnvAsDuration("IMPORT_SWEEP_MIN_AGE", 10*time.Minute),
			SweepLimit:      getEnvAsInt("IMPORT_SWEEP_LIMIT", 100),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("NOTIFY_FROM_EMAIL", "imports@localhost"),
			To:           getEnvAsList("NOTIFY_TO", nil),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %d", c.Server.MaxUploadBytes)
	}
	if c.Import.ErrorThreshold < 0 || c.Import.ErrorThreshold > 1 {
		return fmt.Errorf("IMPORT_ERROR_THRESHOLD must be between 0 and 1, got %g", c.Import.ErrorThreshold)
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
