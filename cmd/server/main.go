// Package main is the entry point for the booking-core server binary.
// Subcommands are dispatched with a switch on os.Args so the whole CLI
// surface reads in one place:
//
//	serve                            run the API (default; applies registry migrations first)
//	migrate up|down|force <version>  manage registry migrations
//	provision <org-name> <schema>    register an organization and create its namespace
//	token <org-id> <user-id>         mint a bearer token for local testing
//	version                          print the build version
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/divestreams/booking-core/internal/api"
	"github.com/divestreams/booking-core/internal/auth"
	"github.com/divestreams/booking-core/internal/booking"
	"github.com/divestreams/booking-core/internal/config"
	"github.com/divestreams/booking-core/internal/db"
	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/db/repositories"
	"github.com/divestreams/booking-core/internal/middleware"
	"github.com/divestreams/booking-core/internal/readmodel"
	"github.com/divestreams/booking-core/internal/telemetry"
	"github.com/divestreams/booking-core/internal/tenant"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "version" {
		fmt.Printf("booking-core v%s\n", version)
		return nil
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)
	auth.SetIssuer(cfg.Auth.JWTIssuer)

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down|force VERSION>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2], os.Args[3:])
	case "provision":
		if len(os.Args) < 4 {
			return fmt.Errorf("usage: %s provision <org-name> <schema>", os.Args[0])
		}
		return provision(cfg, os.Args[2], os.Args[3])
	case "token":
		if len(os.Args) < 4 {
			return fmt.Errorf("usage: %s token <org-id> <user-id>", os.Args[0])
		}
		return mintToken(cfg, os.Args[2], os.Args[3])
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, provision, token, version", command)
	}
}

func connect(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(cfg.Database.GetDSN(), db.PoolOptions{
		MaxConnections:     cfg.Database.MaxConnections,
		MinIdleConnections: cfg.Database.MinIdleConnections,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port, "name", cfg.Database.Name,
		"max_connections", cfg.Database.MaxConnections)
	return database, nil
}

func serve(cfg *config.Config) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	telemetry.StartDBStatsCollector(database)

	slog.Info("running registry migrations")
	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if v, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("registry schema version", "version", v, "dirty", dirty)
	}

	resolver, err := tenant.NewResolver(database, repositories.NewOrganizationRepository(database), tenant.ResolverOptions{
		CacheSize:        cfg.Tenancy.NamespaceCacheSize,
		LockTimeout:      cfg.Booking.LockTimeout,
		StatementTimeout: cfg.Booking.StatementTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create tenant resolver: %w", err)
	}

	notifier, err := newNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	bookings := booking.NewService(resolver, notifier, booking.Options{
		MaxParticipantsPerBooking: cfg.Booking.MaxParticipantsPerBooking,
		MaxNumberAttempts:         cfg.Booking.MaxNumberAttempts,
		NotificationTimeout:       cfg.Booking.NotificationTimeout,
		Numbers:                   booking.RandomNumbers{Prefix: cfg.Booking.NumberPrefix},
	})

	checks := []api.ReadinessCheck{{
		Name:  "migrations",
		Check: func(ctx context.Context) error { return db.CheckMigrations(ctx, database) },
	}}

	var limiter middleware.Limiter
	var memLimiter *middleware.RateLimiter
	if rl := cfg.Security.RateLimiting; rl.Enabled {
		rlCfg := middleware.RateLimitConfig{
			RequestsPerMinute: rl.RequestsPerMinute,
			BurstSize:         rl.Burst,
		}
		if rl.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: rl.RedisAddr, Password: rl.RedisPassword, DB: rl.RedisDB})
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, rlCfg)
			checks = append(checks, api.ReadinessCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			})
			slog.Info("rate limiting backed by redis", "addr", rl.RedisAddr)
		} else {
			memLimiter = middleware.NewRateLimiter(rlCfg)
			limiter = memLimiter
			slog.Info("rate limiting in memory; buckets are per replica")
		}
	}

	if cfg.Telemetry.Metrics.Enabled {
		go serveMetrics(cfg.Telemetry.Metrics.PrometheusPort)
	}

	router := api.NewRouter(api.RouterDeps{
		DB:       database.DB,
		Bookings: bookings,
		Reads:    readmodel.NewService(resolver),
		Limiter:  limiter,
		Checks:   checks,
	})

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.Server.GetAddress(), "version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if memLimiter != nil {
		memLimiter.Stop()
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newNotifier always logs events and adds a webhook when one is configured.
func newNotifier(cfg config.NotifyConfig) (booking.Notifier, error) {
	logNotifier := booking.LogNotifier{Logger: slog.Default()}
	if cfg.WebhookURL == "" {
		return logNotifier, nil
	}

	hook, err := booking.NewWebhookNotifier(booking.WebhookConfig{
		URL:     cfg.WebhookURL,
		Token:   cfg.WebhookToken,
		Timeout: cfg.WebhookTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure webhook notifications: %w", err)
	}
	slog.Info("booking events delivered to webhook", "url", cfg.WebhookURL)
	return booking.MultiNotifier{logNotifier, hook}, nil
}

// serveMetrics exposes Prometheus metrics on a dedicated port so the scrape
// path stays off the public API listener.
func serveMetrics(port int) {
	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("starting Prometheus metrics server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server error", "error", err)
	}
}

func runMigrations(cfg *config.Config, direction string, args []string) error {
	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if direction == "force" {
		if len(args) < 1 {
			return errors.New("usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid migration version %q: %w", args[0], err)
		}
		if err := db.ForceMigrationVersion(database, v); err != nil {
			return err
		}
		slog.Info("migration version forced", "version", v)
		return nil
	}

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	v, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", v, "dirty", dirty)
	return nil
}

// provision creates the namespace before registering the organization, so an
// organization is never visible without its tables.
func provision(cfg *config.Config, name, schema string) error {
	ns, err := tenant.ParseNamespace(schema)
	if err != nil {
		return err
	}

	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ctx := context.Background()
	if err := db.ProvisionTenant(ctx, database, ns); err != nil {
		return err
	}

	org := &models.Organization{Name: name, DisplayName: name, SchemaName: ns.String()}
	if err := repositories.NewOrganizationRepository(database).Create(ctx, org); err != nil {
		return err
	}

	slog.Info("organization provisioned", "organization_id", org.ID, "name", org.Name, "namespace", ns.String())
	fmt.Println(org.ID)
	return nil
}

func mintToken(cfg *config.Config, orgID, userID string) error {
	if err := tenant.ValidateID("org-id", orgID); err != nil {
		return err
	}
	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	token, err := auth.GenerateJWT(userID, orgID, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}
