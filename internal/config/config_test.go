package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "divestreams",
				Password: "secret",
				Name:     "divestreams",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=divestreams password=secret dbname=divestreams sslmode=require",
		},
		{
			name: "disable ssl mode",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "admin",
				Password: "pass",
				Name:     "bookings",
				SSLMode:  "disable",
			},
			want: "host=db.example.com port=5433 user=admin password=pass dbname=bookings sslmode=disable",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "user",
				Name:    "dbname",
				SSLMode: "prefer",
			},
			want: "host=localhost port=5432 user=user password= dbname=dbname sslmode=prefer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDSN(); got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:           "localhost",
			Name:           "divestreams",
			User:           "divestreams",
			MaxConnections: 10,
		},
		Booking: BookingConfig{
			LockTimeout:               5 * time.Second,
			StatementTimeout:          15 * time.Second,
			NumberPrefix:              "BK",
			MaxNumberAttempts:         5,
			MaxParticipantsPerBooking: 50,
		},
		Security: SecurityConfig{
			RateLimiting: RateLimitingConfig{Enabled: true, RequestsPerMinute: 60, Burst: 10},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal config passes", func(t *testing.T) {
		if err := minimalValidConfig().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port 0", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing db name", func(c *Config) { c.Database.Name = "" }, "database.name"},
		{"missing db user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"zero pool", func(c *Config) { c.Database.MaxConnections = 0 }, "database.max_connections"},
		{"zero lock timeout", func(c *Config) { c.Booking.LockTimeout = 0 }, "booking.lock_timeout"},
		{
			"statement timeout shorter than lock timeout",
			func(c *Config) { c.Booking.StatementTimeout = time.Second },
			"booking.statement_timeout",
		},
		{"zero number attempts", func(c *Config) { c.Booking.MaxNumberAttempts = 0 }, "booking.max_number_attempts"},
		{"zero participant cap", func(c *Config) { c.Booking.MaxParticipantsPerBooking = 0 }, "booking.max_participants_per_booking"},
		{"lower-case prefix", func(c *Config) { c.Booking.NumberPrefix = "bk" }, "booking.number_prefix"},
		{"empty prefix", func(c *Config) { c.Booking.NumberPrefix = "" }, "booking.number_prefix"},
		{"relative webhook", func(c *Config) { c.Notify.WebhookURL = "/hooks/bookings" }, "notifications.webhook_url"},
		{"ftp webhook", func(c *Config) { c.Notify.WebhookURL = "ftp://hooks.example.com" }, "notifications.webhook_url"},
		{"negative cache", func(c *Config) { c.Tenancy.NamespaceCacheSize = -1 }, "tenancy.namespace_cache_size"},
		{
			"rate limiting without rate",
			func(c *Config) { c.Security.RateLimiting.RequestsPerMinute = 0 },
			"security.rate_limiting",
		},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid logging level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}

	t.Run("disabled rate limiting ignores zero rate", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Security.RateLimiting = RateLimitingConfig{Enabled: false}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("https webhook is allowed", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Notify.WebhookURL = "https://hooks.example.com/bookings"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("unset statement timeout is allowed", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Booking.StatementTimeout = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// expandEnv
// ---------------------------------------------------------------------------

func TestExpandEnv(t *testing.T) {
	t.Run("expands ${VAR} syntax", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_SECRET", "super-secret")
		if got := expandEnv("${CONFIG_TEST_SECRET}"); got != "super-secret" {
			t.Errorf("expandEnv() = %q, want %q", got, "super-secret")
		}
	})

	t.Run("plain string passthrough", func(t *testing.T) {
		if got := expandEnv("no-vars-here"); got != "no-vars-here" {
			t.Errorf("expandEnv() = %q, want %q", got, "no-vars-here")
		}
	})

	t.Run("unset variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_DEFINITELY_UNSET_12345")
		if got := expandEnv("${CONFIG_TEST_DEFINITELY_UNSET_12345}"); got != "" {
			t.Errorf("expandEnv() = %q, want empty string", got)
		}
	})
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// writeTempConfig creates a temp YAML file and registers a cleanup to remove it.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "config-test-*.yaml")
	if err != nil {
		t.Fatal("CreateTemp:", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatal("WriteString:", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, "logging:\n  level: info\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Booking.LockTimeout != 5*time.Second {
		t.Errorf("Booking.LockTimeout = %s, want 5s", cfg.Booking.LockTimeout)
	}
	if cfg.Booking.MaxParticipantsPerBooking != 50 {
		t.Errorf("Booking.MaxParticipantsPerBooking = %d, want 50", cfg.Booking.MaxParticipantsPerBooking)
	}
	if cfg.Booking.NumberPrefix != "BK" {
		t.Errorf("Booking.NumberPrefix = %q, want BK", cfg.Booking.NumberPrefix)
	}
	if cfg.Tenancy.NamespaceCacheSize != 1024 {
		t.Errorf("Tenancy.NamespaceCacheSize = %d, want 1024", cfg.Tenancy.NamespaceCacheSize)
	}
	if !cfg.Security.RateLimiting.Enabled || cfg.Security.RateLimiting.RequestsPerMinute != 300 {
		t.Errorf("RateLimiting = %+v, want enabled at 300/min", cfg.Security.RateLimiting)
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	const content = `
server:
  host: "testhost"
  port: 9999
database:
  host: "dbhost"
  name: "testdb"
  user: "testuser"
booking:
  lock_timeout: "2s"
  statement_timeout: "4s"
  number_prefix: "DS"
logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "testhost" || cfg.Server.Port != 9999 {
		t.Errorf("Server = %+v, want testhost:9999", cfg.Server)
	}
	if cfg.Database.Host != "dbhost" || cfg.Database.Name != "testdb" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Booking.LockTimeout != 2*time.Second {
		t.Errorf("Booking.LockTimeout = %s, want 2s", cfg.Booking.LockTimeout)
	}
	if cfg.Booking.NumberPrefix != "DS" {
		t.Errorf("Booking.NumberPrefix = %q, want DS", cfg.Booking.NumberPrefix)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DSB_DATABASE_HOST", "env-db")
	t.Setenv("DSB_BOOKING_LOCK_TIMEOUT", "750ms")
	t.Setenv("DSB_BOOKING_STATEMENT_TIMEOUT", "3s")
	t.Setenv("DSB_SECURITY_RATE_LIMITING_REDIS_ADDR", "redis:6379")

	cfg, err := Load(writeTempConfig(t, "database:\n  host: file-db\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Host != "env-db" {
		t.Errorf("Database.Host = %q, want env-db", cfg.Database.Host)
	}
	if cfg.Booking.LockTimeout != 750*time.Millisecond {
		t.Errorf("Booking.LockTimeout = %s, want 750ms", cfg.Booking.LockTimeout)
	}
	if cfg.Security.RateLimiting.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q, want redis:6379", cfg.Security.RateLimiting.RedisAddr)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "mysecret")
	const content = `
database:
  password: "${TEST_DB_PASS}"
`
	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Password != "mysecret" {
		t.Errorf("Database.Password = %q, want mysecret", cfg.Database.Password)
	}
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	_, err := Load(writeTempConfig(t, "logging:\n  format: xml\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Load() error = %v, want invalid configuration", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeTempConfig(t, "server: [unclosed")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}
