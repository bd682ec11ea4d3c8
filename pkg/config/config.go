package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/bastion/pkg/observability"
)

// MinJWTSecretBytes is the shortest accepted HMAC signing secret
const MinJWTSecretBytes = 32

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Auth configuration
	Auth AuthConfig

	// RBAC configuration
	RBAC RBACConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AllowedOrigins  []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int

	// KeyPrefix namespaces the revocation keys when the Redis is shared
	KeyPrefix string
}

// AuthConfig holds token and session settings
type AuthConfig struct {
	JWTSecret  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotateRefreshTokens makes refresh return a new refresh token and
	// delete the presented one.
	RotateRefreshTokens bool

	LoginRateLimit  int
	LoginRateWindow time.Duration

	// SweepSchedule is the cron schedule of the expired refresh token sweep.
	// Empty disables the sweep.
	SweepSchedule string
}

// RBACConfig holds permission resolution settings
type RBACConfig struct {
	// CacheSize is the number of cached permission snapshots. Zero, the
	// default, disables the cache. The cache is per process: a write served
	// by another instance reaches it only after CacheTTL.
	CacheSize int
	CacheTTL  time.Duration

	// MaxDepth caps the ancestor walk of hierarchy validation
	MaxDepth int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		RBAC:          loadRBACConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BASTION_HOST", "0.0.0.0"),
		Port:            getEnv("BASTION_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BASTION_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BASTION_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BASTION_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BASTION_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("BASTION_MAX_BODY_BYTES", 1<<20),
		AllowedOrigins:  getEnvList("BASTION_ALLOWED_ORIGINS"),
		HealthPort:      getEnv("BASTION_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("BASTION_DATABASE_URL", "postgres://localhost/bastion?sslmode=disable"),
		MaxOpenConns:    getEnvInt("BASTION_DATABASE_MAX_CONNS", 20),
		MaxIdleConns:    getEnvInt("BASTION_DATABASE_MIN_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("BASTION_DATABASE_CONN_LIFETIME", 5*time.Minute),
		ConnectTimeout:  getEnvDuration("BASTION_DATABASE_TIMEOUT", 10*time.Second),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("BASTION_REDIS_URL", "redis://localhost:6379/0"),
		Password:   getEnv("BASTION_REDIS_PASSWORD", ""),
		DB:         getEnvInt("BASTION_REDIS_DB", -1),
		MaxRetries: getEnvInt("BASTION_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("BASTION_REDIS_POOL_SIZE", 10),
		KeyPrefix:  getEnv("BASTION_REDIS_KEY_PREFIX", ""),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:           getEnv("BASTION_JWT_SECRET", ""),
		Issuer:              getEnv("BASTION_JWT_ISSUER", "bastion"),
		AccessTTL:           getEnvDuration("BASTION_ACCESS_TOKEN_TTL", 2*time.Hour),
		RefreshTTL:          getEnvDuration("BASTION_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RotateRefreshTokens: getEnvBool("BASTION_ROTATE_REFRESH_TOKENS", false),
		LoginRateLimit:      getEnvInt("BASTION_LOGIN_RATE_LIMIT", 10),
		LoginRateWindow:     getEnvDuration("BASTION_LOGIN_RATE_WINDOW", time.Minute),
		SweepSchedule:       getEnv("BASTION_SWEEP_SCHEDULE", "@every 1h"),
	}
}

func loadRBACConfig() RBACConfig {
	return RBACConfig{
		CacheSize: getEnvInt("BASTION_PERMISSION_CACHE_SIZE", 0),
		CacheTTL:  getEnvDuration("BASTION_PERMISSION_CACHE_TTL", time.Minute),
		MaxDepth:  getEnvInt("BASTION_HIERARCHY_MAX_DEPTH", 100),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("BASTION_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("BASTION_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BASTION_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BASTION_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BASTION_OTEL_SERVICE_NAME", "bastion"),
		OTelServiceVersion: getEnv("BASTION_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BASTION_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("BASTION_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretBytes {
		return fmt.Errorf("JWT secret must be at least %d bytes", MinJWTSecretBytes)
	}
	if c.Auth.Issuer == "" {
		return fmt.Errorf("JWT issuer is required")
	}
	if c.Auth.AccessTTL <= 0 {
		return fmt.Errorf("access token TTL must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return fmt.Errorf("refresh token TTL must exceed access token TTL")
	}
	if c.Auth.LoginRateLimit <= 0 || c.Auth.LoginRateWindow <= 0 {
		return fmt.Errorf("login rate limit and window must be positive")
	}

	if c.RBAC.CacheSize < 0 {
		return fmt.Errorf("permission cache size cannot be negative")
	}
	if c.RBAC.CacheSize > 0 && c.RBAC.CacheTTL <= 0 {
		return fmt.Errorf("permission cache TTL must be positive when the cache is enabled")
	}
	if c.RBAC.MaxDepth <= 0 {
		return fmt.Errorf("hierarchy max depth must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable as a list
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
