// handlers.go implements the booking, catalog, trip and report endpoints.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/booking"
	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/middleware"
	"github.com/divestreams/booking-core/internal/query"
	"github.com/divestreams/booking-core/internal/readmodel"
)

// BookingService is the write side used by the handlers.
type BookingService interface {
	CreateBooking(ctx context.Context, orgID string, in booking.CreateBookingInput) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, orgID, bookingID string, next booking.Status) (*models.Booking, error)
}

// ReadModel is the query side used by the handlers.
type ReadModel interface {
	ListCustomers(ctx context.Context, orgID string, f readmodel.CustomerFilter, p query.Page, s query.Sort) (readmodel.Page[models.Customer], error)
	GetCustomer(ctx context.Context, orgID, id string) (*models.Customer, error)
	CustomerBookingHistory(ctx context.Context, orgID, customerID string, p query.Page) (readmodel.Page[models.BookingView], error)
	ListTours(ctx context.Context, orgID string, f readmodel.TourFilter, p query.Page, s query.Sort) (readmodel.Page[models.Tour], error)
	ListBoats(ctx context.Context, orgID string, f readmodel.BoatFilter, p query.Page, s query.Sort) (readmodel.Page[models.Boat], error)
	ListTrips(ctx context.Context, orgID string, f readmodel.TripFilter, p query.Page, s query.Sort) (readmodel.Page[models.TripSummary], error)
	UpcomingTrips(ctx context.Context, orgID string, from time.Time, limit int) ([]*models.TripSummary, error)
	GetTrip(ctx context.Context, orgID, id string) (*models.TripSummary, error)
	ListBookings(ctx context.Context, orgID string, f readmodel.BookingFilter, p query.Page, s query.Sort) (readmodel.Page[models.BookingView], error)
	GetBooking(ctx context.Context, orgID, id string) (*models.BookingView, error)
	BookingHistory(ctx context.Context, orgID, id string) ([]*models.BookingStatusEvent, error)
	RevenueSummary(ctx context.Context, orgID string, from, to time.Time) (*readmodel.Revenue, error)
	DashboardStats(ctx context.Context, orgID string, now time.Time) (*models.DashboardStats, error)
}

// Handlers serves the tenant-scoped API. The organization always comes from
// the authenticated token, never from the request.
type Handlers struct {
	bookings BookingService
	reads    ReadModel
	now      func() time.Time
}

// NewHandlers creates the API handlers.
func NewHandlers(bookings BookingService, reads ReadModel) *Handlers {
	return &Handlers{bookings: bookings, reads: reads, now: time.Now}
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

// CreateBooking handles POST /api/v1/bookings.
func (h *Handlers) CreateBooking(c *gin.Context) {
	var in booking.CreateBookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, apperr.Validation("body", "request body must be a valid booking JSON object"))
		return
	}

	b, err := h.bookings.CreateBooking(c.Request.Context(), middleware.OrganizationID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateBookingStatus handles PATCH /api/v1/bookings/:id/status.
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("body", "request body must be a JSON object with a status"))
		return
	}

	b, err := h.bookings.UpdateBookingStatus(c.Request.Context(), middleware.OrganizationID(c),
		c.Param("id"), booking.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookings handles GET /api/v1/bookings.
func (h *Handlers) ListBookings(c *gin.Context) {
	p, sort, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	from, to, err := dateRangeParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f := readmodel.BookingFilter{
		TripID:     c.Query("tripId"),
		CustomerID: c.Query("customerId"),
		Status:     c.Query("status"),
		Search:     c.Query("search"),
		From:       from,
		To:         to,
	}

	page, err := h.reads.ListBookings(c.Request.Context(), middleware.OrganizationID(c), f, p, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *Handlers) GetBooking(c *gin.Context) {
	b, err := h.reads.GetBooking(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// BookingHistory handles GET /api/v1/bookings/:id/history.
func (h *Handlers) BookingHistory(c *gin.Context) {
	events, err := h.reads.BookingHistory(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// ListCustomers handles GET /api/v1/customers.
func (h *Handlers) ListCustomers(c *gin.Context) {
	p, sort, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.reads.ListCustomers(c.Request.Context(), middleware.OrganizationID(c),
		readmodel.CustomerFilter{Search: c.Query("search")}, p, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetCustomer handles GET /api/v1/customers/:id.
func (h *Handlers) GetCustomer(c *gin.Context) {
	cust, err := h.reads.GetCustomer(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

// CustomerBookings handles GET /api/v1/customers/:id/bookings.
func (h *Handlers) CustomerBookings(c *gin.Context) {
	p, _, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.reads.CustomerBookingHistory(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// ListTours handles GET /api/v1/tours.
func (h *Handlers) ListTours(c *gin.Context) {
	p, sort, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f := readmodel.TourFilter{Search: c.Query("search"), IncludeInactive: c.Query("includeInactive") == "true"}
	page, err := h.reads.ListTours(c.Request.Context(), middleware.OrganizationID(c), f, p, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListBoats handles GET /api/v1/boats.
func (h *Handlers) ListBoats(c *gin.Context) {
	p, sort, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f := readmodel.BoatFilter{IncludeInactive: c.Query("includeInactive") == "true"}
	page, err := h.reads.ListBoats(c.Request.Context(), middleware.OrganizationID(c), f, p, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ---------------------------------------------------------------------------
// Trips
// ---------------------------------------------------------------------------

// ListTrips handles GET /api/v1/trips.
func (h *Handlers) ListTrips(c *gin.Context) {
	p, sort, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	from, to, err := dateRangeParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f := readmodel.TripFilter{
		TourID: c.Query("tourId"),
		BoatID: c.Query("boatId"),
		Status: c.Query("status"),
		From:   from,
		To:     to,
	}
	page, err := h.reads.ListTrips(c.Request.Context(), middleware.OrganizationID(c), f, p, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpcomingTrips handles GET /api/v1/trips/upcoming.
func (h *Handlers) UpcomingTrips(c *gin.Context) {
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	trips, err := h.reads.UpcomingTrips(c.Request.Context(), middleware.OrganizationID(c), h.now(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": trips})
}

// GetTrip handles GET /api/v1/trips/:id.
func (h *Handlers) GetTrip(c *gin.Context) {
	trip, err := h.reads.GetTrip(c.Request.Context(), middleware.OrganizationID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip, "availableSpots": trip.AvailableSpots()})
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

// RevenueReport handles GET /api/v1/reports/revenue?from=&to=. Both bounds
// are required; to is exclusive.
func (h *Handlers) RevenueReport(c *gin.Context) {
	from, to, err := dateRangeParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if from == nil {
		respondError(c, apperr.Validation("from", "is required"))
		return
	}
	if to == nil {
		respondError(c, apperr.Validation("to", "is required"))
		return
	}
	rev, err := h.reads.RevenueSummary(c.Request.Context(), middleware.OrganizationID(c), *from, *to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

// Dashboard handles GET /api/v1/dashboard.
func (h *Handlers) Dashboard(c *gin.Context) {
	stats, err := h.reads.DashboardStats(c.Request.Context(), middleware.OrganizationID(c), h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ---------------------------------------------------------------------------
// Query parameters
// ---------------------------------------------------------------------------

// pageParams reads limit, offset and sort. Out-of-range limits are clamped
// downstream; non-numeric values are rejected.
func pageParams(c *gin.Context) (query.Page, query.Sort, error) {
	limit, err := intParam(c, "limit", query.DefaultLimit)
	if err != nil {
		return query.Page{}, query.Sort{}, err
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return query.Page{}, query.Sort{}, err
	}
	return query.Page{Limit: limit, Offset: offset}, query.ParseSort(c.Query("sort")), nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, "must be an integer")
	}
	return n, nil
}

// dateRangeParams reads optional from/to as YYYY-MM-DD or RFC 3339.
func dateRangeParams(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = timeParam(c, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = timeParam(c, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func timeParam(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation(name, "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}
