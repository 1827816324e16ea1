package booking

import (
	"context"
	"log/slog"

	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/safego"
	"github.com/divestreams/booking-core/internal/telemetry"
)

// Notifier receives committed booking events. Implementations may block on
// external services; they run off the request path and their errors are
// logged, never returned to the caller of the booking operation.
type Notifier interface {
	BookingCreated(ctx context.Context, orgID string, b *models.Booking) error
	BookingStatusChanged(ctx context.Context, orgID string, b *models.Booking, from Status) error
}

// LogNotifier writes booking events to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// BookingCreated logs a new booking.
func (n LogNotifier) BookingCreated(ctx context.Context, orgID string, b *models.Booking) error {
	n.logger().InfoContext(ctx, "notify: booking created",
		"organization_id", orgID, "booking_id", b.ID, "booking_number", b.BookingNumber)
	return nil
}

// BookingStatusChanged logs a lifecycle transition.
func (n LogNotifier) BookingStatusChanged(ctx context.Context, orgID string, b *models.Booking, from Status) error {
	n.logger().InfoContext(ctx, "notify: booking status changed",
		"organization_id", orgID, "booking_id", b.ID, "from", from, "to", b.Status)
	return nil
}

// dispatch runs send in the background with the configured timeout.
func (s *Service) dispatch(ctx context.Context, orgID, event string, send func(ctx context.Context) error) {
	safego.GoTimeout(ctx, "notify:"+event, s.opts.NotificationTimeout, func(ctx context.Context) {
		if err := send(ctx); err != nil {
			telemetry.BookingNotificationFailuresTotal.WithLabelValues(event).Inc()
			slog.Warn("booking notification failed",
				"event", event, "organization_id", orgID, "error", err)
		}
	})
}
