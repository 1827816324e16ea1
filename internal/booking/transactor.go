package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/db/repositories"
	"github.com/divestreams/booking-core/internal/telemetry"
	"github.com/divestreams/booking-core/internal/tenant"
)

var errNumbersExhausted = errors.New("booking number attempts exhausted")

// CreateBooking reserves in.Participants spots on a trip for a customer of
// orgID and returns the pending booking.
//
// The trip row is locked for the duration of the transaction, so concurrent
// creations on the same trip are serialized and each sees every booking
// committed before it. Nothing is written unless the whole unit commits.
func (s *Service) CreateBooking(ctx context.Context, orgID string, in CreateBookingInput) (*models.Booking, error) {
	in, err := in.normalize(s.opts.MaxParticipantsPerBooking)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var created *models.Booking
	err = s.sessions.WithSession(ctx, orgID, func(sess *tenant.Session) error {
		return sess.InTx(ctx, func(tx *sqlx.Tx) error {
			b, err := s.reserve(ctx, tx, sess.Namespace(), in)
			created = b
			return err
		})
	})
	telemetry.BookingCreateDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		err = s.classify(err, "failed to create booking")
		logFailure(err, "booking creation failed",
			"organization_id", orgID, "trip_id", in.TripID, "customer_id", in.CustomerID)
		return nil, err
	}

	telemetry.BookingsCreatedTotal.WithLabelValues(created.Source).Inc()
	slog.Info("booking created",
		"organization_id", orgID, "booking_id", created.ID,
		"booking_number", created.BookingNumber, "trip_id", created.TripID,
		"participants", created.Participants)

	if s.notifier != nil {
		b := *created
		s.dispatch(ctx, orgID, EventBookingCreated, func(ctx context.Context) error {
			return s.notifier.BookingCreated(ctx, orgID, &b)
		})
	}
	return created, nil
}

// reserve is the body of the creation transaction.
func (s *Service) reserve(ctx context.Context, tx *sqlx.Tx, ns tenant.Namespace, in CreateBookingInput) (*models.Booking, error) {
	customers := repositories.NewCustomerRepository(tx, ns)
	bookings := repositories.NewBookingRepository(tx, ns)

	ok, err := customers.LockForBooking(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("customerId", "customer not found")
	}

	trip, err := bookings.LockTrip(ctx, in.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperr.NotFound("tripId", "trip not found")
	}
	if trip.Status != models.TripScheduled {
		return nil, apperr.Validation("tripId", fmt.Sprintf("trip is %s and cannot be booked", trip.Status))
	}

	active, err := bookings.ActiveParticipants(ctx, trip.ID, InactiveStatuses())
	if err != nil {
		return nil, err
	}
	if err := checkCapacity(trip.ID, trip.EffectiveMax(), active, in.Participants); err != nil {
		telemetry.BookingCapacityRejectionsTotal.Inc()
		return nil, err
	}

	b, err := s.insertNumbered(ctx, bookings, in)
	if err != nil {
		return nil, err
	}

	if err := bookings.InsertStatusEvent(ctx, b.ID, nil, b.Status); err != nil {
		return nil, err
	}
	return b, nil
}

// checkCapacity rejects a request that would push active participants past limit.
func checkCapacity(tripID string, limit, active, requested int) error {
	if active+requested > limit {
		return apperr.CapacityExceeded(tripID, requested, limit-active)
	}
	return nil
}

// insertNumbered inserts the booking, drawing a new number after each
// collision on the booking number constraint.
func (s *Service) insertNumbered(ctx context.Context, bookings *repositories.BookingRepository, in CreateBookingInput) (*models.Booking, error) {
	for attempt := 1; attempt <= s.opts.MaxNumberAttempts; attempt++ {
		number, err := s.opts.Numbers.Next(s.opts.Now())
		if err != nil {
			return nil, err
		}

		b := in.newBooking(number)
		err = bookings.Insert(ctx, b)
		if err == nil {
			return b, nil
		}
		if !apperr.IsUniqueViolation(err, repositories.BookingNumberConstraint) {
			return nil, err
		}
		slog.Debug("booking number collision, retrying", "booking_number", number, "attempt", attempt)
	}
	return nil, apperr.Unexpected(errNumbersExhausted, "failed to allocate a unique booking number")
}

// classify maps err into the taxonomy and counts lock timeouts.
func (s *Service) classify(err error, msg string) error {
	err = apperr.Classify(err, msg)
	if apperr.IsRetryable(err) {
		telemetry.BookingLockTimeoutsTotal.Inc()
	}
	return err
}

// logFailure logs infrastructure failures at error level and caller
// mistakes at info level.
func logFailure(err error, msg string, args ...any) {
	args = append(args, "error", err, "kind", apperr.KindOf(err))
	if apperr.KindOf(err) == apperr.KindUnexpected {
		slog.Error(msg, args...)
		return
	}
	slog.Info(msg, args...)
}
