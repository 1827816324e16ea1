// Package models - catalog.go defines tours, boats and the scheduled trips that
// bookings reserve spots on.
package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Tour is a bookable product template. Inactive tours are soft deleted.
type Tour struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Description     *string         `db:"description" json:"description,omitempty"`
	DurationMinutes *int            `db:"duration_minutes" json:"durationMinutes,omitempty"`
	MinParticipants int             `db:"min_participants" json:"minParticipants"`
	MaxParticipants int             `db:"max_participants" json:"maxParticipants"`
	Price           decimal.Decimal `db:"price" json:"price"`
	Currency        string          `db:"currency" json:"currency"`
	Inclusions      pq.StringArray  `db:"inclusions" json:"inclusions"`
	IsActive        bool            `db:"is_active" json:"isActive"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Boat carries divers on a trip. Inactive boats are soft deleted.
type Boat struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Trip statuses.
const (
	TripScheduled  = "scheduled"
	TripInProgress = "in_progress"
	TripCompleted  = "completed"
	TripCanceled   = "canceled"
)

// Trip is a scheduled instance of a tour. MaxParticipants and Price override
// the tour values when set.
type Trip struct {
	ID              string              `db:"id" json:"id"`
	TourID          string              `db:"tour_id" json:"tourId"`
	BoatID          *string             `db:"boat_id" json:"boatId,omitempty"`
	Date            time.Time           `db:"date" json:"date"`
	StartTime       string              `db:"start_time" json:"startTime"`
	EndTime         *string             `db:"end_time" json:"endTime,omitempty"`
	MaxParticipants *int                `db:"max_participants" json:"maxParticipants,omitempty"`
	Price           decimal.NullDecimal `db:"price" json:"price"`
	Status          string              `db:"status" json:"status"`
	Notes           *string             `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updatedAt"`
}

// EffectiveMax returns the trip override if set, otherwise the tour maximum.
func EffectiveMax(tripMax *int, tourMax int) int {
	if tripMax != nil {
		return *tripMax
	}
	return tourMax
}
