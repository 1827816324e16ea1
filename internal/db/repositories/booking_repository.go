// booking_repository.go implements BookingRepository, the tenant-scoped statements behind
// capacity-checked booking creation, status transitions and booking listings.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/query"
	"github.com/divestreams/booking-core/internal/tenant"
)

// BookingNumberConstraint is the unique constraint on bookings.booking_number.
const BookingNumberConstraint = "bookings_booking_number_key"

var bookingColumns = []string{
	"id", "booking_number", "trip_id", "customer_id", "participants", "status",
	"subtotal", "discount", "tax", "total", "currency", "payment_status",
	"special_requests", "source", "confirmed_at", "canceled_at", "completed_at",
	"created_at", "updated_at",
}

// statusTimestamps maps a target status to the column stamped when a booking enters it.
var statusTimestamps = map[string]string{
	"confirmed": "confirmed_at",
	"canceled":  "canceled_at",
	"completed": "completed_at",
}

var bookingSortColumns = map[string]string{
	"createdAt":     "b.created_at",
	"tripDate":      "t.date",
	"bookingNumber": "b.booking_number",
	"total":         "b.total",
	"status":        "b.status",
}

// TripLock is the capacity-relevant snapshot of a trip read under its row lock.
type TripLock struct {
	ID                  string `db:"id"`
	Status              string `db:"status"`
	MaxParticipants     *int   `db:"max_participants"`
	TourMaxParticipants int    `db:"tour_max_participants"`
}

// EffectiveMax returns the capacity limit the trip enforces.
func (l *TripLock) EffectiveMax() int {
	return models.EffectiveMax(l.MaxParticipants, l.TourMaxParticipants)
}

// BookingFilter narrows a booking listing. It never carries an organization;
// isolation comes from the repository namespace.
type BookingFilter struct {
	TripID     string
	CustomerID string
	Status     string
	Search     string
	From, To   *time.Time
}

// BookingRepository handles booking statements within one namespace
type BookingRepository struct {
	q  DBTX
	ns tenant.Namespace
}

// NewBookingRepository binds a booking repository to q and ns
func NewBookingRepository(q DBTX, ns tenant.Namespace) *BookingRepository {
	return &BookingRepository{q: q, ns: ns}
}

// LockTrip reads the trip joined to its tour and takes a row lock on the trip
// for the rest of the transaction. Returns nil when the trip does not exist.
func (r *BookingRepository) LockTrip(ctx context.Context, tripID string) (*TripLock, error) {
	stmt := fmt.Sprintf(`
		SELECT t.id, t.status, t.max_participants, r.max_participants AS tour_max_participants
		FROM %s t
		JOIN %s r ON r.id = t.tour_id
		WHERE t.id = $1
		FOR UPDATE OF t
	`, r.ns.Qualify("trips"), r.ns.Qualify("tours"))

	lock := &TripLock{}
	if err := sqlx.GetContext(ctx, r.q, lock, stmt, tripID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock trip: %w", err)
	}

	return lock, nil
}

// ActiveParticipants sums participants on the trip's bookings whose status is
// not in inactive.
func (r *BookingRepository) ActiveParticipants(ctx context.Context, tripID string, inactive []string) (int, error) {
	stmt := fmt.Sprintf(`
		SELECT COALESCE(SUM(participants), 0)
		FROM %s
		WHERE trip_id = $1 AND status <> ALL($2)
	`, r.ns.Qualify("bookings"))

	var total int
	if err := r.q.QueryRowxContext(ctx, stmt, tripID, pq.Array(inactive)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum active participants: %w", err)
	}

	return total, nil
}

// Insert writes b under a savepoint so a unique violation leaves the
// surrounding transaction usable. ID and timestamps are filled from the row.
func (r *BookingRepository) Insert(ctx context.Context, b *models.Booking) error {
	if _, err := r.q.ExecContext(ctx, "SAVEPOINT booking_insert"); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (
			booking_number, trip_id, customer_id, participants, status,
			subtotal, discount, tax, total, currency, payment_status,
			special_requests, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, r.ns.Qualify("bookings"))

	err := r.q.QueryRowxContext(ctx, stmt,
		b.BookingNumber, b.TripID, b.CustomerID, b.Participants, b.Status,
		b.Subtotal, b.Discount, b.Tax, b.Total, b.Currency, b.PaymentStatus,
		b.SpecialRequests, b.Source,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if _, rbErr := r.q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT booking_insert"); rbErr != nil {
			return fmt.Errorf("failed to roll back to savepoint: %w", errors.Join(err, rbErr))
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, "RELEASE SAVEPOINT booking_insert"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// GetForUpdate reads a booking and locks its row. Returns nil when missing.
func (r *BookingRepository) GetForUpdate(ctx context.Context, id string) (*models.Booking, error) {
	stmt := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`,
		strings.Join(bookingColumns, ", "), r.ns.Qualify("bookings"))

	b := &models.Booking{}
	if err := sqlx.GetContext(ctx, r.q, b, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return b, nil
}

// UpdateStatus moves a booking from one status to another. The update only
// applies while the row still has status from; otherwise sql.ErrNoRows is returned.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, from, to string) (*models.Booking, error) {
	set := "status = $2, updated_at = NOW()"
	if col, ok := statusTimestamps[to]; ok {
		set += ", " + col + " = NOW()"
	}

	stmt := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 AND status = $3 RETURNING %s`,
		r.ns.Qualify("bookings"), set, strings.Join(bookingColumns, ", "))

	b := &models.Booking{}
	if err := sqlx.GetContext(ctx, r.q, b, stmt, id, to, from); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	return b, nil
}

// InsertStatusEvent appends a lifecycle history row. from is nil on creation.
func (r *BookingRepository) InsertStatusEvent(ctx context.Context, bookingID string, from *string, to string) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (booking_id, from_status, to_status) VALUES ($1, $2, $3)`,
		r.ns.Qualify("booking_status_events"))

	if _, err := r.q.ExecContext(ctx, stmt, bookingID, from, to); err != nil {
		return fmt.Errorf("failed to record status event: %w", err)
	}
	return nil
}

// StatusEvents lists a booking's history oldest first.
func (r *BookingRepository) StatusEvents(ctx context.Context, bookingID string) ([]*models.BookingStatusEvent, error) {
	stmt := fmt.Sprintf(`
		SELECT id, booking_id, from_status, to_status, created_at
		FROM %s
		WHERE booking_id = $1
		ORDER BY created_at, id
	`, r.ns.Qualify("booking_status_events"))

	events := make([]*models.BookingStatusEvent, 0)
	if err := sqlx.SelectContext(ctx, r.q, &events, stmt, bookingID); err != nil {
		return nil, fmt.Errorf("failed to list status events: %w", err)
	}
	return events, nil
}

func (r *BookingRepository) viewSelect() *query.Select {
	cols := append(prefixed("b", bookingColumns),
		"c.first_name AS customer_first_name",
		"c.last_name AS customer_last_name",
		"c.email AS customer_email",
		"r.name AS tour_name",
		"t.date AS trip_date",
		"to_char(t.start_time, 'HH24:MI') AS trip_start_time",
	)
	return query.From(r.ns, query.Bookings, "b").
		Columns(cols...).
		Join(query.Customers, "c", query.Expr("c.id = b.customer_id")).
		Join(query.Trips, "t", query.Expr("t.id = b.trip_id")).
		Join(query.Tours, "r", query.Expr("r.id = t.tour_id"))
}

// GetView reads one booking with customer and trip details. Returns nil when missing.
func (r *BookingRepository) GetView(ctx context.Context, id string) (*models.BookingView, error) {
	sqlStr, args := r.viewSelect().Where(query.Eq("b.id", id)).Build()

	v := &models.BookingView{}
	if err := sqlx.GetContext(ctx, r.q, v, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return v, nil
}

// List returns a page of bookings matching f and the total match count.
func (r *BookingRepository) List(ctx context.Context, f BookingFilter, page query.Page, sort query.Sort) ([]*models.BookingView, int, error) {
	q := r.viewSelect().
		Where(
			query.EqIfSet("b.trip_id", f.TripID),
			query.EqIfSet("b.customer_id", f.CustomerID),
			query.EqIfSet("b.status", f.Status),
			query.Contains(f.Search, "b.booking_number", "c.first_name", "c.last_name", "c.email"),
			query.DateRange("t.date", f.From, f.To),
		).
		OrderBy(sort, bookingSortColumns, query.Sort{Field: "createdAt", Desc: true}).
		Paginate(page)

	return selectPage[models.BookingView](ctx, r.q, q, "bookings")
}
