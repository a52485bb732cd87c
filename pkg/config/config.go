package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Fraud      FraudConfig
	EventBus   EventBusConfig
	Resilience ResilienceConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds ledger database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration for the expiring key-value store
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// FraudConfig holds the admission-control gate tuning. Defaults follow the
// production values; every ceiling and window is overridable per environment.
type FraudConfig struct {
	HourlyLimit          int // completed events allowed per user per hour
	DailyLimit           int // completed events allowed per user per 24h
	CooldownSeconds      int // minimum spacing between two completions
	NearDuplicateWindow  int // seconds within which same user+provider+amount is a duplicate
	BlockThreshold       int // risk score at or above which the event is blocked
	FlagThreshold        int // risk score at or above which the event is flagged
	FlagTTLHours         int // fraud flag time-to-live
	IPWindowHours        int // IP activity record time-to-live
	SnapshotCacheSeconds int // behavioral snapshot cache TTL, 0 disables caching
	ReportIntervalHours  int // scheduled report period
	StoreTimeoutSeconds  int // per-check backing store timeout
}

// EventBusConfig holds NATS configuration for the alerting boundary
type EventBusConfig struct {
	URL     string
	Enabled bool
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures breaker tuning for the ledger path
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "offerwall"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Fraud: FraudConfig{
			HourlyLimit:          getEnvAsInt("FRAUD_HOURLY_LIMIT", 20),
			DailyLimit:           getEnvAsInt("FRAUD_DAILY_LIMIT", 100),
			CooldownSeconds:      getEnvAsInt("FRAUD_COOLDOWN_SECONDS", 30),
			NearDuplicateWindow:  getEnvAsInt("FRAUD_NEAR_DUPLICATE_SECONDS", 60),
			BlockThreshold:       getEnvAsInt("FRAUD_BLOCK_THRESHOLD", 70),
			FlagThreshold:        getEnvAsInt("FRAUD_FLAG_THRESHOLD", 40),
			FlagTTLHours:         getEnvAsInt("FRAUD_FLAG_TTL_HOURS", 168),
			IPWindowHours:        getEnvAsInt("FRAUD_IP_WINDOW_HOURS", 24),
			SnapshotCacheSeconds: getEnvAsInt("FRAUD_SNAPSHOT_CACHE_SECONDS", 30),
			ReportIntervalHours:  getEnvAsInt("FRAUD_REPORT_INTERVAL_HOURS", 24),
			StoreTimeoutSeconds:  getEnvAsInt("FRAUD_STORE_TIMEOUT_SECONDS", 5),
		},
		EventBus: EventBusConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", false),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
	}

	if cfg.Fraud.FlagThreshold >= cfg.Fraud.BlockThreshold {
		return nil, fmt.Errorf("FRAUD_FLAG_THRESHOLD (%d) must be below FRAUD_BLOCK_THRESHOLD (%d)",
			cfg.Fraud.FlagThreshold, cfg.Fraud.BlockThreshold)
	}

	if cfg.Fraud.CooldownSeconds < 0 {
		cfg.Fraud.CooldownSeconds = 0
	}

	if cfg.Fraud.StoreTimeoutSeconds <= 0 {
		cfg.Fraud.StoreTimeoutSeconds = 5
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Cooldown returns the configured cooldown duration
func (c FraudConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// FlagTTL returns the configured fraud flag time-to-live
func (c FraudConfig) FlagTTL() time.Duration {
	return time.Duration(c.FlagTTLHours) * time.Hour
}

// IPWindow returns the IP activity record time-to-live
func (c FraudConfig) IPWindow() time.Duration {
	return time.Duration(c.IPWindowHours) * time.Hour
}

// SnapshotCacheTTL returns the behavioral snapshot cache duration
func (c FraudConfig) SnapshotCacheTTL() time.Duration {
	return time.Duration(c.SnapshotCacheSeconds) * time.Second
}

// StoreTimeout returns the per-check backing store timeout
func (c FraudConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
