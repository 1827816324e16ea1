package booking

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/db/repositories"
	"github.com/divestreams/booking-core/internal/telemetry"
	"github.com/divestreams/booking-core/internal/tenant"
)

// UpdateBookingStatus moves a booking of orgID to next. The booking row is
// locked while the transition is checked and applied, so two concurrent
// cancellations cannot both succeed.
func (s *Service) UpdateBookingStatus(ctx context.Context, orgID, bookingID string, next Status) (*models.Booking, error) {
	if err := tenant.ValidateID("bookingId", bookingID); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.Validation("status", "unknown booking status")
	}

	var (
		updated *models.Booking
		from    Status
	)
	err := s.sessions.WithSession(ctx, orgID, func(sess *tenant.Session) error {
		return sess.InTx(ctx, func(tx *sqlx.Tx) error {
			bookings := repositories.NewBookingRepository(tx, sess.Namespace())

			current, err := bookings.GetForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if current == nil {
				return apperr.NotFound("bookingId", "booking not found")
			}

			from = Status(current.Status)
			if !CanTransition(from, next) {
				return apperr.InvalidTransition(string(from), string(next))
			}

			b, err := bookings.UpdateStatus(ctx, bookingID, string(from), string(next))
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Unexpected(err, "booking changed while locked")
			}
			if err != nil {
				return err
			}

			prev := string(from)
			if err := bookings.InsertStatusEvent(ctx, bookingID, &prev, string(next)); err != nil {
				return err
			}
			updated = b
			return nil
		})
	})
	if err != nil {
		err = s.classify(err, "failed to update booking status")
		logFailure(err, "booking status update failed",
			"organization_id", orgID, "booking_id", bookingID, "to", next)
		return nil, err
	}

	telemetry.BookingStatusTransitionsTotal.WithLabelValues(string(from), string(next)).Inc()
	slog.Info("booking status changed",
		"organization_id", orgID, "booking_id", bookingID, "from", from, "to", next)

	if s.notifier != nil {
		b := *updated
		s.dispatch(ctx, orgID, EventBookingStatusChanged, func(ctx context.Context) error {
			return s.notifier.BookingStatusChanged(ctx, orgID, &b, from)
		})
	}
	return updated, nil
}
