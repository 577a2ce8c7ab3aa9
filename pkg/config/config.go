package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Ingest    IngestConfig
	Auth      AuthConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Store     string // postgres | memory
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Env             string
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds the shared rate limit store settings
type RedisConfig struct {
	Enabled bool
	URL     string
}

// RateLimitConfig holds per-key request quota settings
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Backend  string // memory | redis
}

// IngestConfig holds price ingestion limits
type IngestConfig struct {
	MaxBatchSize     int
	BatchConcurrency int
}

// AuthConfig holds API key settings
type AuthConfig struct {
	BcryptCost   int
	KeyCacheTTL  time.Duration // 0 disables the verified key cache
	KeyCacheSize int
	ClientRate   float64 // requests per second per client IP, 0 disables
	ClientBurst  int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			Version:         getEnv("APP_VERSION", "1.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnv("SERVER_BODY_LIMIT", "1M"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "prices_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			Backend:  getEnv("RATE_LIMIT_BACKEND", "memory"),
		},
		Ingest: IngestConfig{
			MaxBatchSize:     getEnvAsInt("INGEST_MAX_BATCH_SIZE", 100),
			BatchConcurrency: getEnvAsInt("INGEST_BATCH_CONCURRENCY", 8),
		},
		Auth: AuthConfig{
			BcryptCost:   getEnvAsInt("AUTH_BCRYPT_COST", 10),
			KeyCacheTTL:  getEnvAsDuration("AUTH_KEY_CACHE_TTL", 30*time.Second),
			KeyCacheSize: getEnvAsInt("AUTH_KEY_CACHE_SIZE", 10000),
			ClientRate:   getEnvAsFloat("AUTH_CLIENT_RATE", 20),
			ClientBurst:  getEnvAsInt("AUTH_CLIENT_BURST", 40),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "price_service"),
		},
		Store: getEnv("STORE_BACKEND", "postgres"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q (must be postgres or memory)", c.Store)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q (must be memory or redis)", c.RateLimit.Backend)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}
	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("INGEST_MAX_BATCH_SIZE must be positive")
	}
	if c.Ingest.BatchConcurrency <= 0 {
		return fmt.Errorf("INGEST_BATCH_CONCURRENCY must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31")
	}
	if c.Auth.KeyCacheTTL < 0 || c.Auth.KeyCacheSize <= 0 {
		return fmt.Errorf("AUTH_KEY_CACHE_TTL must not be negative and AUTH_KEY_CACHE_SIZE must be positive")
	}
	if c.Auth.ClientRate < 0 {
		return fmt.Errorf("AUTH_CLIENT_RATE must not be negative")
	}
	if c.Auth.ClientRate > 0 && c.Auth.ClientBurst <= 0 {
		return fmt.Errorf("AUTH_CLIENT_BURST must be positive when AUTH_CLIENT_RATE is set")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	return nil
}

// LogFields returns the non-secret configuration as zap fields
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("version", c.Server.Version),
		zap.String("server_port", c.Server.Port),
		zap.String("store", c.Store),
		zap.String("db_host", c.Database.Host),
		zap.String("db_name", c.Database.Name),
		zap.String("rate_limit_backend", c.RateLimit.Backend),
		zap.Int("rate_limit_requests", c.RateLimit.Requests),
		zap.Duration("rate_limit_window", c.RateLimit.Window),
		zap.Int("max_batch_size", c.Ingest.MaxBatchSize),
		zap.Duration("key_cache_ttl", c.Auth.KeyCacheTTL),
		zap.Float64("client_rate", c.Auth.ClientRate),
	}
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
