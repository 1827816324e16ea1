// Package models - booking.go defines the Booking reservation record and its
// status history.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking reserves participants on a trip for a customer.
type Booking struct {
	ID              string          `db:"id" json:"id"`
	BookingNumber   string          `db:"booking_number" json:"bookingNumber"`
	TripID          string          `db:"trip_id" json:"tripId"`
	CustomerID      string          `db:"customer_id" json:"customerId"`
	Participants    int             `db:"participants" json:"participants"`
	Status          string          `db:"status" json:"status"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount        decimal.Decimal `db:"discount" json:"discount"`
	Tax             decimal.Decimal `db:"tax" json:"tax"`
	Total           decimal.Decimal `db:"total" json:"total"`
	Currency        string          `db:"currency" json:"currency"`
	PaymentStatus   string          `db:"payment_status" json:"paymentStatus"`
	SpecialRequests *string         `db:"special_requests" json:"specialRequests,omitempty"`
	Source          string          `db:"source" json:"source"`
	ConfirmedAt     *time.Time      `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CanceledAt      *time.Time      `db:"canceled_at" json:"canceledAt,omitempty"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Payment statuses.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPartial  = "partial"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// BookingStatusEvent records one lifecycle transition. FromStatus is nil for creation.
type BookingStatusEvent struct {
	ID         string    `db:"id" json:"id"`
	BookingID  string    `db:"booking_id" json:"bookingId"`
	FromStatus *string   `db:"from_status" json:"fromStatus,omitempty"`
	ToStatus   string    `db:"to_status" json:"toStatus"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
