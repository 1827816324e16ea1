// Package config loads and validates service configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the DSB_ prefix (DSB_DATABASE_HOST
// overrides database.host). The JWT signing secret is read separately by the
// auth package from DSB_JWT_SECRET and never appears in the YAML.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "DSB"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Notify    NotifyConfig    `mapstructure:"notifications"`
	Tenancy   TenancyConfig   `mapstructure:"tenancy"`
	Security  SecurityConfig  `mapstructure:"security"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Name               string        `mapstructure:"name"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxConnections     int           `mapstructure:"max_connections"`
	MinIdleConnections int           `mapstructure:"min_idle_connections"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
}

// BookingConfig tunes the booking transactor.
type BookingConfig struct {
	// LockTimeout bounds the wait for a trip row lock; beyond it creation
	// fails with a retryable error.
	LockTimeout               time.Duration `mapstructure:"lock_timeout"`
	StatementTimeout          time.Duration `mapstructure:"statement_timeout"`
	NumberPrefix              string        `mapstructure:"number_prefix"`
	MaxNumberAttempts         int           `mapstructure:"max_number_attempts"`
	MaxParticipantsPerBooking int           `mapstructure:"max_participants_per_booking"`
	NotificationTimeout       time.Duration `mapstructure:"notification_timeout"`
}

// NotifyConfig selects where committed booking events are delivered. Events
// are always logged; a webhook is added when WebhookURL is set.
type NotifyConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookToken   string        `mapstructure:"webhook_token"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// TenancyConfig holds namespace resolution settings
type TenancyConfig struct {
	// NamespaceCacheSize bounds cached organization -> namespace bindings; 0 disables caching
	NamespaceCacheSize int `mapstructure:"namespace_cache_size"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// RateLimitingConfig holds rate limiting configuration. With RedisAddr set,
// buckets are shared across replicas.
type RateLimitingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password"`
	RedisDB           int    `mapstructure:"redis_db"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// AutomaticEnv alone does not populate nested structs during Unmarshal.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",

		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",
		"database.conn_max_lifetime",

		"booking.lock_timeout",
		"booking.statement_timeout",
		"booking.number_prefix",
		"booking.max_number_attempts",
		"booking.max_participants_per_booking",
		"booking.notification_timeout",

		"notifications.webhook_url",
		"notifications.webhook_token",
		"notifications.webhook_timeout",

		"tenancy.namespace_cache_size",

		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.rate_limiting.redis_addr",
		"security.rate_limiting.redis_password",
		"security.rate_limiting.redis_db",

		"auth.jwt_issuer",
		"auth.token_ttl",

		"logging.level",
		"logging.format",

		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
	}

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables. An empty
// configPath searches ./config.yaml, ./config/config.yaml and
// /etc/booking-core/config.yaml; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/booking-core")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Security.RateLimiting.RedisPassword = expandEnv(cfg.Security.RateLimiting.RedisPassword)
	cfg.Notify.WebhookToken = expandEnv(cfg.Notify.WebhookToken)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "divestreams")
	v.SetDefault("database.user", "divestreams")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("booking.lock_timeout", "5s")
	v.SetDefault("booking.statement_timeout", "15s")
	v.SetDefault("booking.number_prefix", "BK")
	v.SetDefault("booking.max_number_attempts", 5)
	v.SetDefault("booking.max_participants_per_booking", 50)
	v.SetDefault("booking.notification_timeout", "10s")

	v.SetDefault("notifications.webhook_url", "")
	v.SetDefault("notifications.webhook_timeout", "5s")

	v.SetDefault("tenancy.namespace_cache_size", 1024)

	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 300)
	v.SetDefault("security.rate_limiting.burst", 60)
	v.SetDefault("security.rate_limiting.redis_addr", "")
	v.SetDefault("security.rate_limiting.redis_db", 0)

	v.SetDefault("auth.jwt_issuer", "booking-core")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}

	if c.Booking.LockTimeout <= 0 {
		return fmt.Errorf("booking.lock_timeout must be positive")
	}
	if c.Booking.StatementTimeout > 0 && c.Booking.StatementTimeout < c.Booking.LockTimeout {
		return fmt.Errorf("booking.statement_timeout (%s) must not be shorter than booking.lock_timeout (%s)",
			c.Booking.StatementTimeout, c.Booking.LockTimeout)
	}
	if c.Booking.MaxNumberAttempts < 1 {
		return fmt.Errorf("booking.max_number_attempts must be at least 1")
	}
	if c.Booking.MaxParticipantsPerBooking < 1 {
		return fmt.Errorf("booking.max_participants_per_booking must be at least 1")
	}
	if p := c.Booking.NumberPrefix; p == "" || len(p) > 8 || strings.ToUpper(p) != p {
		return fmt.Errorf("invalid booking.number_prefix %q (1-8 upper-case characters)", p)
	}

	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid notifications.webhook_url %q (must be an http or https URL)", c.Notify.WebhookURL)
		}
	}

	if c.Tenancy.NamespaceCacheSize < 0 {
		return fmt.Errorf("tenancy.namespace_cache_size must not be negative")
	}

	if rl := c.Security.RateLimiting; rl.Enabled && (rl.RequestsPerMinute < 1 || rl.Burst < 1) {
		return fmt.Errorf("security.rate_limiting requires positive requests_per_minute and burst")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
