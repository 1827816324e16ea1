// Package readmodel answers the listing and reporting queries of one
// organization. Every method resolves the caller's namespace from the
// authenticated organization ID; no filter carries an organization of its own.
package readmodel

import (
	"context"
	"time"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/booking"
	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/db/repositories"
	"github.com/divestreams/booking-core/internal/query"
	"github.com/divestreams/booking-core/internal/tenant"
)

// Re-exported filters so callers need not import the repository layer.
type (
	CustomerFilter = repositories.CustomerFilter
	TourFilter     = repositories.TourFilter
	BoatFilter     = repositories.BoatFilter
	TripFilter     = repositories.TripFilter
	BookingFilter  = repositories.BookingFilter
)

// MaxUpcoming caps UpcomingTrips.
const MaxUpcoming = 50

// Page is one page of results with the total number of matches.
type Page[T any] struct {
	Items  []*T `json:"items"`
	Total  int  `json:"total"`
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
}

func newPage[T any](items []*T, total int, p query.Page) Page[T] {
	p = p.Normalize()
	return Page[T]{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}

// Revenue is the revenue report for a date range.
type Revenue struct {
	From  time.Time             `json:"from"`
	To    time.Time             `json:"to"`
	Lines []*models.RevenueLine `json:"lines"`
}

// Service runs read-model queries on tenant sessions.
type Service struct {
	sessions booking.Sessions
}

// NewService creates a read-model service.
func NewService(sessions booking.Sessions) *Service {
	return &Service{sessions: sessions}
}

// read runs fn on a session connection and classifies any failure.
// Repository errors already name the statement that failed.
func (s *Service) read(ctx context.Context, orgID string, fn func(q repositories.DBTX, ns tenant.Namespace) error) error {
	err := s.sessions.WithSession(ctx, orgID, func(sess *tenant.Session) error {
		return fn(sess.Conn(), sess.Namespace())
	})
	return apperr.Classify(err, "read model query failed")
}

// validateOptionalIDs checks the shape of each non-empty filter ID, keyed by
// the field name reported back to the caller.
func validateOptionalIDs(ids ...[2]string) error {
	for _, id := range ids {
		if id[1] == "" {
			continue
		}
		if err := tenant.ValidateID(id[0], id[1]); err != nil {
			return err
		}
	}
	return nil
}

// ListCustomers returns a page of customers.
func (s *Service) ListCustomers(ctx context.Context, orgID string, f CustomerFilter, p query.Page, sort query.Sort) (Page[models.Customer], error) {
	var out Page[models.Customer]
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		items, total, err := repositories.NewCustomerRepository(q, ns).List(ctx, f, p, sort)
		out = newPage(items, total, p)
		return err
	})
	return out, err
}

// GetCustomer returns one customer.
func (s *Service) GetCustomer(ctx context.Context, orgID, id string) (*models.Customer, error) {
	if err := tenant.ValidateID("customerId", id); err != nil {
		return nil, err
	}
	var c *models.Customer
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		c, err = repositories.NewCustomerRepository(q, ns).GetByID(ctx, id)
		if err == nil && c == nil {
			return apperr.NotFound("customerId", "customer not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CustomerBookingHistory lists a customer's bookings, newest first.
func (s *Service) CustomerBookingHistory(ctx context.Context, orgID, customerID string, p query.Page) (Page[models.BookingView], error) {
	var out Page[models.BookingView]
	if err := tenant.ValidateID("customerId", customerID); err != nil {
		return out, err
	}
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		ok, err := repositories.NewCustomerRepository(q, ns).Exists(ctx, customerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("customerId", "customer not found")
		}
		items, total, err := repositories.NewBookingRepository(q, ns).List(ctx,
			BookingFilter{CustomerID: customerID}, p, query.Sort{Field: "createdAt", Desc: true})
		out = newPage(items, total, p)
		return err
	})
	return out, err
}

// ListTours returns a page of tours.
func (s *Service) ListTours(ctx context.Context, orgID string, f TourFilter, p query.Page, sort query.Sort) (Page[models.Tour], error) {
	var out Page[models.Tour]
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		items, total, err := repositories.NewCatalogRepository(q, ns).ListTours(ctx, f, p, sort)
		out = newPage(items, total, p)
		return err
	})
	return out, err
}

// ListBoats returns a page of boats.
func (s *Service) ListBoats(ctx context.Context, orgID string, f BoatFilter, p query.Page, sort query.Sort) (Page[models.Boat], error) {
	var out Page[models.Boat]
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		items, total, err := repositories.NewCatalogRepository(q, ns).ListBoats(ctx, f, p, sort)
		out = newPage(items, total, p)
		return err
	})
	return out, err
}

// ListTrips returns a page of trips with booked participants and effective capacity.
func (s *Service) ListTrips(ctx context.Context, orgID string, f TripFilter, p query.Page, sort query.Sort) (Page[models.TripSummary], error) {
	var out Page[models.TripSummary]
	if err := validateOptionalIDs([2]string{"tourId", f.TourID}, [2]string{"boatId", f.BoatID}); err != nil {
		return out, err
	}
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		items, total, err := s.trips(q, ns).List(ctx, f, p, sort)
		out = newPage(items, total, p)
		return err
	})
	return out, err
}

// UpcomingTrips lists scheduled trips dated on or after from.
func (s *Service) UpcomingTrips(ctx context.Context, orgID string, from time.Time, limit int) ([]*models.TripSummary, error) {
	if limit <= 0 || limit > MaxUpcoming {
		limit = MaxUpcoming
	}
	var trips []*models.TripSummary
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		trips, err = s.trips(q, ns).Upcoming(ctx, from, limit)
		return err
	})
	return trips, err
}

// GetTrip returns one trip summary.
func (s *Service) GetTrip(ctx context.Context, orgID, id string) (*models.TripSummary, error) {
	if err := tenant.ValidateID("tripId", id); err != nil {
		return nil, err
	}
	var trip *models.TripSummary
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		trip, err = s.trips(q, ns).GetSummary(ctx, id)
		if err == nil && trip == nil {
			return apperr.NotFound("tripId", "trip not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *Service) trips(q repositories.DBTX, ns tenant.Namespace) *repositories.TripRepository {
	return repositories.NewTripRepository(q, ns, booking.InactiveStatuses())
}

// ListBookings returns a page of bookings joined with customer and trip details.
func (s *Service) ListBookings(ctx context.Context, orgID string, f BookingFilter, p query.Page, sort query.Sort) (Page[models.BookingView], error) {
	var out Page[models.BookingView]
	if f.Status != "" {
		if _, err := booking.ParseStatus(f.Status); err != nil {
			return out, apperr.Validation("status", "unknown booking status")
		}
	}
	if err := validateOptionalIDs([2]string{"tripId", f.TripID}, [2]string{"customerId", f.CustomerID}); err != nil {
		return out, err
	}
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		items, total, err := repositories.NewBookingRepository(q, ns).List(ctx, f, p, sort)
		out = newPage(items, total, p)
		return err
	})
	return out, err
}

// GetBooking returns one booking view.
func (s *Service) GetBooking(ctx context.Context, orgID, id string) (*models.BookingView, error) {
	if err := tenant.ValidateID("bookingId", id); err != nil {
		return nil, err
	}
	var v *models.BookingView
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		v, err = repositories.NewBookingRepository(q, ns).GetView(ctx, id)
		if err == nil && v == nil {
			return apperr.NotFound("bookingId", "booking not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// BookingHistory lists a booking's status transitions, oldest first.
func (s *Service) BookingHistory(ctx context.Context, orgID, id string) ([]*models.BookingStatusEvent, error) {
	if err := tenant.ValidateID("bookingId", id); err != nil {
		return nil, err
	}
	var events []*models.BookingStatusEvent
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		events, err = repositories.NewBookingRepository(q, ns).StatusEvents(ctx, id)
		// Creation always records an event, so no events means no booking.
		if err == nil && len(events) == 0 {
			return apperr.NotFound("bookingId", "booking not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// RevenueSummary totals non-canceled bookings per currency for trips dated in [from, to).
func (s *Service) RevenueSummary(ctx context.Context, orgID string, from, to time.Time) (*Revenue, error) {
	if !to.After(from) {
		return nil, apperr.Validation("to", "must be after from")
	}
	var lines []*models.RevenueLine
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		lines, err = repositories.NewReportRepository(q, ns).Revenue(ctx, from, to, []string{string(booking.StatusCanceled)})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Revenue{From: from, To: to, Lines: lines}, nil
}

// DashboardStats summarizes today's and upcoming activity as of now.
func (s *Service) DashboardStats(ctx context.Context, orgID string, now time.Time) (*models.DashboardStats, error) {
	var stats *models.DashboardStats
	err := s.read(ctx, orgID, func(q repositories.DBTX, ns tenant.Namespace) error {
		var err error
		stats, err = repositories.NewReportRepository(q, ns).Dashboard(ctx, now, []string{
			string(booking.StatusPending), string(booking.StatusConfirmed),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
