package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SMTP         SMTPConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer-token parameters for the HTTP surface.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig tunes the dispatch engine.
type NotificationConfig struct {
	MaxRetries              int
	BackoffBaseMs           int
	TransportTimeoutMs      int
	ContentTruncationLength int
	WorkerCount             int
	QueueSize               int
	SweepIntervalSeconds    int
	ClaimTTLSeconds         int
}

// SMTPConfig holds mail transport connection values.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-notify"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			MaxRetries:              getEnvAsInt("NOTIFY_MAX_RETRIES", 3),
			BackoffBaseMs:           getEnvAsInt("NOTIFY_BACKOFF_BASE_MS", 200),
			TransportTimeoutMs:      getEnvAsInt("NOTIFY_TRANSPORT_TIMEOUT_MS", 10000),
			ContentTruncationLength: getEnvAsInt("NOTIFY_CONTENT_TRUNCATION_LENGTH", 1000),
			WorkerCount:             getEnvAsInt("NOTIFY_WORKER_COUNT", 4),
			QueueSize:               getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			SweepIntervalSeconds:    getEnvAsInt("NOTIFY_SWEEP_INTERVAL_SECONDS", 60),
			ClaimTTLSeconds:         getEnvAsInt("NOTIFY_CLAIM_TTL_SECONDS", 120),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", "127.0.0.1"),
			Port:        getEnvAsInt("SMTP_PORT", 587),
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			FromAddress: getEnv("SMTP_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("SMTP_FROM_NAME", "Support"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// BackoffBase returns the first retry delay.
func (n NotificationConfig) BackoffBase() time.Duration {
	if n.BackoffBaseMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(n.BackoffBaseMs) * time.Millisecond
}

// TransportTimeout bounds a single transport send.
func (n NotificationConfig) TransportTimeout() time.Duration {
	if n.TransportTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.TransportTimeoutMs) * time.Millisecond
}

// SweepInterval returns how often unresolved outcomes are re-enqueued.
func (n NotificationConfig) SweepInterval() time.Duration {
	if n.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(n.SweepIntervalSeconds) * time.Second
}

// ClaimTTL bounds how long a dispatch claim fences other workers.
func (n NotificationConfig) ClaimTTL() time.Duration {
	if n.ClaimTTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(n.ClaimTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
