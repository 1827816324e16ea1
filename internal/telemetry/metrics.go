// Package telemetry provides logging setup and Prometheus metrics for the booking engine.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and exposed by
// the side-channel HTTP server started in cmd/server:
//
//	GET http://<host>:<DSB_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template)
//   - Booking creation, capacity rejection and lock timeout counters
//   - Lifecycle transition counters
//   - Post-commit notification failures
//   - Namespace resolution outcomes
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// No metric is labelled with an organization, trip or booking identifier. Per-tenant
// breakdowns belong in logs, where organization_id is always attached.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/divestreams/booking-core/internal/safego"
)

// HTTP metrics labelled by method, route template and status code.
//
// Example PromQL queries:
//   - Request rate:        rate(http_requests_total[5m])
//   - 409 share per route: sum by (path) (rate(http_requests_total{status="409"}[5m])) / sum by (path) (rate(http_requests_total[5m]))
//   - p99 latency:         histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Booking creation metrics.
//
// BookingsCreatedTotal counts committed bookings by source (direct, online, phone, ...).
//
// BookingCapacityRejectionsTotal counts requests refused because the trip was full.
// A sustained rise usually means a popular trip sold out, not a fault.
//
// BookingLockTimeoutsTotal counts creations that gave up waiting for the trip row lock.
// Any steady non-zero rate indicates contention worth investigating:
//
//	increase(booking_lock_timeouts_total[10m]) > 5
//
// BookingCreateDuration observes the whole atomic unit, lock wait included.
var (
	BookingsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings committed, by source.",
		},
		[]string{"source"},
	)

	BookingCapacityRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_capacity_rejections_total",
			Help: "Total number of booking requests rejected because the trip had insufficient capacity.",
		},
	)

	BookingLockTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_lock_timeouts_total",
			Help: "Total number of booking operations that timed out waiting for a row lock.",
		},
	)

	BookingCreateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_create_duration_seconds",
			Help:    "Duration of the capacity-checked booking transaction.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// BookingStatusTransitionsTotal counts committed lifecycle transitions by {from, to}.
//
// Example PromQL queries:
//   - Cancellation rate: sum(rate(booking_status_transitions_total{to="canceled"}[1h]))
//   - No-show share:     sum(rate(booking_status_transitions_total{to="no_show"}[1d])) / sum(rate(booking_status_transitions_total{from="confirmed"}[1d]))
var BookingStatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "booking_status_transitions_total",
		Help: "Total number of booking status transitions, by previous and new status.",
	},
	[]string{"from", "to"},
)

// BookingNotificationFailuresTotal counts failed post-commit side effects by event.
// These never affect the booking result; a rise signals a broken downstream collaborator.
var BookingNotificationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "booking_notification_failures_total",
		Help: "Total number of post-commit booking notifications that failed, by event.",
	},
	[]string{"event"},
)

// NamespaceResolutionsTotal counts tenant namespace lookups by result
// (resolved, cached, not_found, invalid, error).
var NamespaceResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "namespace_resolutions_total",
		Help: "Total number of tenant namespace resolutions, by result.",
	},
	[]string{"result"},
)

// DBOpenConnections tracks open connections in the shared pool. Each active tenant
// session holds one, so this is also an upper bound on concurrent sessions.
//
//	db_open_connections / <DSB_DATABASE_MAX_CONNECTIONS> * 100
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples pool statistics every 30 seconds until the
// database becomes unreachable, which happens once main closes it on shutdown.
func StartDBStatsCollector(db *sqlx.DB) {
	safego.Go("db-stats-collector", func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	})
}
