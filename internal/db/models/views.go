// Package models - views.go defines read-model projections joined across tables.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripSummary is a trip with its tour, boat and live capacity figures.
type TripSummary struct {
	Trip
	TourName           string  `db:"tour_name" json:"tourName"`
	BoatName           *string `db:"boat_name" json:"boatName,omitempty"`
	EffectiveMax       int     `db:"effective_max" json:"effectiveMaxParticipants"`
	BookedParticipants int     `db:"booked_participants" json:"bookedParticipants"`
}

// AvailableSpots returns the remaining capacity, never negative.
func (t *TripSummary) AvailableSpots() int {
	if n := t.EffectiveMax - t.BookedParticipants; n > 0 {
		return n
	}
	return 0
}

// BookingView is a booking joined with the names a listing needs.
type BookingView struct {
	Booking
	CustomerFirstName string    `db:"customer_first_name" json:"customerFirstName"`
	CustomerLastName  string    `db:"customer_last_name" json:"customerLastName"`
	CustomerEmail     string    `db:"customer_email" json:"customerEmail"`
	TourName          string    `db:"tour_name" json:"tourName"`
	TripDate          time.Time `db:"trip_date" json:"tripDate"`
	TripStartTime     string    `db:"trip_start_time" json:"tripStartTime"`
}

// RevenueLine aggregates bookings for one currency.
type RevenueLine struct {
	Currency     string          `db:"currency" json:"currency"`
	Bookings     int             `db:"bookings" json:"bookings"`
	Participants int             `db:"participants" json:"participants"`
	Total        decimal.Decimal `db:"total" json:"total"`
}

// DashboardStats is the at-a-glance summary for an organization.
type DashboardStats struct {
	TodayTrips     int `db:"today_trips" json:"todayTrips"`
	UpcomingTrips  int `db:"upcoming_trips" json:"upcomingTrips"`
	ActiveBookings int `db:"active_bookings" json:"activeBookings"`
	Customers      int `db:"customers" json:"customers"`
}
