// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Decision   DecisionConfig   `json:"decision"`
	Breaker    BreakerConfig    `json:"breaker"`
	Beacon     BeaconConfig     `json:"beacon"`
	Tracing    TracingConfig    `json:"tracing"`
	Reports    ReportsConfig    `json:"reports"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN returns the key/value connection string understood by both pgx and lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	ProxyHeader     string        `json:"proxy_header"`
}

type SecurityConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	CORSMaxAge       int      `json:"cors_max_age"`
	GlobalRateLimit  int      `json:"global_rate_limit"` // requests per minute per IP
	TenantRateLimits bool     `json:"tenant_rate_limits"`
	APIKeyHeader     string   `json:"api_key_header"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, console
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis, memory
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// DecisionConfig tunes the decision engine
type DecisionConfig struct {
	CacheTTL                   time.Duration `json:"cache_ttl"`
	VASTDurationSeconds        int           `json:"vast_duration_seconds"`
	VASTBreakID                string        `json:"vast_break_id"`
	StoreTimeout               time.Duration `json:"store_timeout"`
	PublicBaseURL              string        `json:"public_base_url"`
	MediaBaseURL               string        `json:"media_base_url"`
	TimeZone                   string        `json:"time_zone"`
	DefaultAdMaxImpressions    int           `json:"default_ad_max_impressions"`
	DefaultCampaignImpressions int           `json:"default_campaign_impressions"`
	DefaultTimeWindow          string        `json:"default_time_window"`
	DecisionLogEnabled         bool          `json:"decision_log_enabled"`
}

// BreakerConfig tunes the circuit breakers guarding the cap and assignment stores
type BreakerConfig struct {
	ConsecutiveFailures uint32        `json:"consecutive_failures"`
	OpenTimeout         time.Duration `json:"open_timeout"`
	HalfOpenMaxRequests uint32        `json:"half_open_max_requests"`
}

type BeaconConfig struct {
	SigningKey    string        `json:"-"`
	TokenTTL      time.Duration `json:"token_ttl"`
	RequireSigned bool          `json:"require_signed"`
}

type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Exporter    string  `json:"exporter"` // stdout, otlp
	Endpoint    string  `json:"endpoint"`
	Insecure    bool    `json:"insecure"`
	SampleRatio float64 `json:"sample_ratio"`
	ServiceName string  `json:"service_name"`
}

type ReportsConfig struct {
	Enabled      bool   `json:"enabled"`
	RunHour      int    `json:"run_hour"`
	TimeZone     string `json:"time_zone"`
	BackfillDays int    `json:"backfill_days"` // days re-aggregated on startup
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "fast_ads"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 20),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 200*time.Millisecond),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 5*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024), // 1MB
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-API-Key", "X-Request-ID"}),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 6000),
			TenantRateLimits: getEnvBool("TENANT_RATE_LIMITS", true),
			APIKeyHeader:     getEnvString("API_KEY_HEADER", "X-API-Key"),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/fast-ads/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", true),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "fastads:"),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
		},
		Decision: DecisionConfig{
			CacheTTL:                   getEnvDuration("DECISION_CACHE_TTL", 60*time.Second),
			VASTDurationSeconds:        getEnvInt("DECISION_VAST_DURATION_SECONDS", 120),
			VASTBreakID:                getEnvString("DECISION_VAST_BREAK_ID", "vast"),
			StoreTimeout:               getEnvDuration("DECISION_STORE_TIMEOUT", 250*time.Millisecond),
			PublicBaseURL:              getEnvString("PUBLIC_BASE_URL", "http://localhost:8080"),
			MediaBaseURL:               getEnvString("MEDIA_BASE_URL", "http://localhost:8080/media"),
			TimeZone:                   getEnvString("DECISION_TIME_ZONE", "UTC"),
			DefaultAdMaxImpressions:    getEnvInt("FREQ_CAP_AD_MAX", 3),
			DefaultCampaignImpressions: getEnvInt("FREQ_CAP_CAMPAIGN_MAX", 5),
			DefaultTimeWindow:          getEnvString("FREQ_CAP_WINDOW", "day"),
			DecisionLogEnabled:         getEnvBool("DECISION_LOG_ENABLED", true),
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: uint32(getEnvInt("BREAKER_CONSECUTIVE_FAILURES", 5)),
			OpenTimeout:         getEnvDuration("BREAKER_OPEN_TIMEOUT", 10*time.Second),
			HalfOpenMaxRequests: uint32(getEnvInt("BREAKER_HALF_OPEN_MAX_REQUESTS", 3)),
		},
		Beacon: BeaconConfig{
			SigningKey:    getEnvString("BEACON_SIGNING_KEY", ""),
			TokenTTL:      getEnvDuration("BEACON_TOKEN_TTL", 24*time.Hour),
			RequireSigned: getEnvBool("BEACON_REQUIRE_SIGNED", false),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("OTEL_ENABLED", false),
			Exporter:    getEnvString("OTEL_EXPORTER", "stdout"),
			Endpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: getEnvFloat("OTEL_SAMPLER_RATIO", 0.1),
			ServiceName: getEnvString("OTEL_SERVICE_NAME", "fast-ads"),
		},
		Reports: ReportsConfig{
			Enabled:      getEnvBool("REPORTS_ENABLED", true),
			RunHour:      getEnvInt("REPORTS_RUN_HOUR", 1),
			TimeZone:     getEnvString("REPORTS_TIME_ZONE", "UTC"),
			BackfillDays: getEnvInt("REPORTS_BACKFILL_DAYS", 0),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	if cfg.Server.BodyLimit <= 0 {
		errors = append(errors, "SERVER_BODY_LIMIT must be positive")
	}

	// Validate security configuration
	if cfg.Security.GlobalRateLimit <= 0 {
		errors = append(errors, "GLOBAL_RATE_LIMIT must be positive")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	if !slices.Contains([]string{"stdout", "file", "both"}, cfg.Logging.Output) {
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider != "redis" && cfg.Cache.Provider != "memory" {
			errors = append(errors, "CACHE_PROVIDER must be redis or memory")
		}
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Validate decision engine configuration
	if cfg.Decision.CacheTTL <= 0 {
		errors = append(errors, "DECISION_CACHE_TTL must be positive")
	}
	if cfg.Decision.StoreTimeout <= 0 {
		errors = append(errors, "DECISION_STORE_TIMEOUT must be positive")
	}
	if cfg.Decision.VASTDurationSeconds <= 0 {
		errors = append(errors, "DECISION_VAST_DURATION_SECONDS must be positive")
	}
	if cfg.Decision.VASTBreakID == "" {
		errors = append(errors, "DECISION_VAST_BREAK_ID is required")
	}
	if u, err := url.Parse(cfg.Decision.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "PUBLIC_BASE_URL must be an absolute URL")
	}
	if _, err := time.LoadLocation(cfg.Decision.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("DECISION_TIME_ZONE is invalid: %s", cfg.Decision.TimeZone))
	}
	if cfg.Decision.DefaultAdMaxImpressions <= 0 || cfg.Decision.DefaultCampaignImpressions <= 0 {
		errors = append(errors, "FREQ_CAP_AD_MAX and FREQ_CAP_CAMPAIGN_MAX must be positive")
	}

	// Validate breaker configuration
	if cfg.Breaker.ConsecutiveFailures == 0 {
		errors = append(errors, "BREAKER_CONSECUTIVE_FAILURES must be positive")
	}
	if cfg.Breaker.OpenTimeout <= 0 {
		errors = append(errors, "BREAKER_OPEN_TIMEOUT must be positive")
	}

	// Validate beacon configuration
	if cfg.Beacon.RequireSigned && len(cfg.Beacon.SigningKey) < 32 {
		errors = append(errors, "BEACON_SIGNING_KEY must be at least 32 characters long when signed beacons are required")
	}
	if cfg.Beacon.TokenTTL <= 0 {
		errors = append(errors, "BEACON_TOKEN_TTL must be positive")
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Exporter != "stdout" && cfg.Tracing.Exporter != "otlp" {
		errors = append(errors, "OTEL_EXPORTER must be stdout or otlp")
	}

	// Validate reports configuration
	if cfg.Reports.RunHour < 0 || cfg.Reports.RunHour > 23 {
		errors = append(errors, "REPORTS_RUN_HOUR must be between 0 and 23")
	}
	if _, err := time.LoadLocation(cfg.Reports.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("REPORTS_TIME_ZONE is invalid: %s", cfg.Reports.TimeZone))
	}
	if cfg.Reports.BackfillDays < 0 || cfg.Reports.BackfillDays > 90 {
		errors = append(errors, "REPORTS_BACKFILL_DAYS must be between 0 and 90")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
