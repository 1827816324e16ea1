package booking

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/tenant"
)

// MaxSpecialRequestsLength bounds the free-text notes on a booking, in characters.
const MaxSpecialRequestsLength = 2000

// DefaultCurrency applies when a request names none.
const DefaultCurrency = "USD"

// Booking sources.
const (
	SourceDirect  = "direct"
	SourceOnline  = "online"
	SourcePhone   = "phone"
	SourceWalkIn  = "walk_in"
	SourcePartner = "partner"
)

var validSources = map[string]bool{
	SourceDirect: true, SourceOnline: true, SourcePhone: true, SourceWalkIn: true, SourcePartner: true,
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// CreateBookingInput is a request to reserve participants on a trip.
type CreateBookingInput struct {
	TripID          string          `json:"tripId"`
	CustomerID      string          `json:"customerId"`
	Participants    int             `json:"participants"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	SpecialRequests string          `json:"specialRequests,omitempty"`
	Source          string          `json:"source,omitempty"`
}

// normalize validates in and returns it with defaults applied and free text trimmed.
func (in CreateBookingInput) normalize(maxParticipants int) (CreateBookingInput, error) {
	if err := tenant.ValidateID("tripId", in.TripID); err != nil {
		return in, err
	}
	if err := tenant.ValidateID("customerId", in.CustomerID); err != nil {
		return in, err
	}
	if in.Participants <= 0 {
		return in, apperr.Validation("participants", "must be at least 1")
	}
	if maxParticipants > 0 && in.Participants > maxParticipants {
		return in, apperr.Validation("participants", "exceeds the per-booking limit")
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"subtotal", in.Subtotal}, {"discount", in.Discount}, {"tax", in.Tax}, {"total", in.Total},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return in, apperr.Validation(a.field, "must not be negative")
		}
	}
	if !in.Subtotal.Sub(in.Discount).Add(in.Tax).Equal(in.Total) {
		return in, apperr.Validation("total", "must equal subtotal - discount + tax")
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(in.Currency) {
		return in, apperr.Validation("currency", "must be a 3-letter ISO 4217 code")
	}

	in.Source = strings.TrimSpace(in.Source)
	if in.Source == "" {
		in.Source = SourceDirect
	}
	if !validSources[in.Source] {
		return in, apperr.Validation("source", "unknown booking source")
	}

	in.SpecialRequests = strings.TrimSpace(in.SpecialRequests)
	if utf8.RuneCountInString(in.SpecialRequests) > MaxSpecialRequestsLength {
		return in, apperr.Validation("specialRequests", "is too long")
	}
	return in, nil
}

// newBooking builds the pending row inserted for in.
func (in CreateBookingInput) newBooking(number string) *models.Booking {
	b := &models.Booking{
		BookingNumber: number,
		TripID:        in.TripID,
		CustomerID:    in.CustomerID,
		Participants:  in.Participants,
		Status:        string(StatusPending),
		Subtotal:      in.Subtotal,
		Discount:      in.Discount,
		Tax:           in.Tax,
		Total:         in.Total,
		Currency:      in.Currency,
		PaymentStatus: models.PaymentUnpaid,
		Source:        in.Source,
	}
	if in.SpecialRequests != "" {
		notes := in.SpecialRequests
		b.SpecialRequests = &notes
	}
	return b
}
