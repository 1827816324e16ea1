// Package api wires the HTTP routes of the booking service.
//
// Probe routes (/health, /ready) are unauthenticated. Everything under
// /api/v1 requires a bearer token whose org_id claim selects the tenant;
// rate limiting runs after authentication so buckets are per organization.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/divestreams/booking-core/internal/middleware"
)

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterDeps holds everything the router needs.
type RouterDeps struct {
	DB       *sql.DB
	Bookings BookingService
	Reads    ReadModel
	// Limiter is optional; nil disables rate limiting.
	Limiter middleware.Limiter
	Checks  []ReadinessCheck
}

// NewRouter creates the gin engine with middleware and routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/ready", readinessHandler(deps.DB, deps.Checks...))

	h := NewHandlers(deps.Bookings, deps.Reads)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantAuthMiddleware())
	if deps.Limiter != nil {
		v1.Use(middleware.RateLimitMiddleware(deps.Limiter))
	}

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.GET("/:id/history", h.BookingHistory)
		bookings.PATCH("/:id/status", h.UpdateBookingStatus)
	}

	customers := v1.Group("/customers")
	{
		customers.GET("", h.ListCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.GET("/:id/bookings", h.CustomerBookings)
	}

	v1.GET("/tours", h.ListTours)
	v1.GET("/boats", h.ListBoats)

	trips := v1.Group("/trips")
	{
		trips.GET("", h.ListTrips)
		trips.GET("/upcoming", h.UpcomingTrips)
		trips.GET("/:id", h.GetTrip)
	}

	v1.GET("/reports/revenue", h.RevenueReport)
	v1.GET("/dashboard", h.Dashboard)

	return router
}

// healthCheckHandler is the liveness probe.
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler reports whether the service can take traffic. Beyond the
// database ping it runs each extra check in order and stops at the first failure.
func readinessHandler(db *sql.DB, checks ...ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			results["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": results,
				"error":  "database not ready",
			})
			return
		}
		results["database"] = "healthy"

		for _, chk := range checks {
			if err := chk.Check(c.Request.Context()); err != nil {
				results[chk.Name] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": results,
					"error":  chk.Name + " not ready",
				})
				return
			}
			results[chk.Name] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": results,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
