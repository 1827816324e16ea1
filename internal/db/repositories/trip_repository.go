// trip_repository.go implements TripRepository, trip listings with live capacity figures.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/query"
	"github.com/divestreams/booking-core/internal/tenant"
)

var tripSortColumns = map[string]string{
	"date":      "t.date, t.start_time",
	"createdAt": "t.created_at",
	"status":    "t.status",
}

// TripFilter narrows a trip listing.
type TripFilter struct {
	TourID   string
	BoatID   string
	Status   string
	From, To *time.Time
}

// TripRepository handles trip queries within one namespace
type TripRepository struct {
	q        DBTX
	ns       tenant.Namespace
	inactive []string
}

// NewTripRepository binds a trip repository to q and ns. inactive lists the
// booking statuses that do not count toward booked participants.
func NewTripRepository(q DBTX, ns tenant.Namespace, inactive []string) *TripRepository {
	return &TripRepository{q: q, ns: ns, inactive: inactive}
}

// bookedExpr sums active participants on the outer trip t.
func (r *TripRepository) bookedExpr(sb *sqlbuilder.SelectBuilder) string {
	return fmt.Sprintf(
		"(SELECT COALESCE(SUM(bk.participants), 0) FROM %s bk WHERE bk.trip_id = t.id AND bk.status <> ALL(%s))",
		r.ns.Qualify("bookings"), sb.Var(pq.Array(r.inactive)),
	)
}

func (r *TripRepository) summarySelect() *query.Select {
	booked := func(sb *sqlbuilder.SelectBuilder) string {
		return r.bookedExpr(sb) + " AS booked_participants"
	}

	return query.From(r.ns, query.Trips, "t").
		Columns(
			"t.id", "t.tour_id", "t.boat_id", "t.date",
			"to_char(t.start_time, 'HH24:MI') AS start_time",
			"to_char(t.end_time, 'HH24:MI') AS end_time",
			"t.max_participants", "t.price", "t.status", "t.notes",
			"t.created_at", "t.updated_at",
			"r.name AS tour_name",
			"bo.name AS boat_name",
			"COALESCE(t.max_participants, r.max_participants) AS effective_max",
		).
		ColumnExpr(booked).
		Join(query.Tours, "r", query.Expr("r.id = t.tour_id")).
		LeftJoin(query.Boats, "bo", query.Expr("bo.id = t.boat_id"))
}

// GetSummary reads one trip with capacity figures. Returns nil when missing.
func (r *TripRepository) GetSummary(ctx context.Context, id string) (*models.TripSummary, error) {
	stmt, args := r.summarySelect().Where(query.Eq("t.id", id)).Build()

	s := &models.TripSummary{}
	if err := sqlx.GetContext(ctx, r.q, s, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return s, nil
}

// List returns a page of trip summaries matching f and the total match count.
func (r *TripRepository) List(ctx context.Context, f TripFilter, page query.Page, sort query.Sort) ([]*models.TripSummary, int, error) {
	q := r.summarySelect().
		Where(
			query.EqIfSet("t.tour_id", f.TourID),
			query.EqIfSet("t.boat_id", f.BoatID),
			query.EqIfSet("t.status", f.Status),
			query.DateRange("t.date", f.From, f.To),
		).
		OrderBy(sort, tripSortColumns, query.Sort{Field: "date"}).
		Paginate(page)

	return selectPage[models.TripSummary](ctx, r.q, q, "trips")
}

// Upcoming lists scheduled trips on or after from, soonest first.
func (r *TripRepository) Upcoming(ctx context.Context, from time.Time, limit int) ([]*models.TripSummary, error) {
	stmt, args := r.summarySelect().
		Where(
			query.Eq("t.status", models.TripScheduled),
			query.DateRange("t.date", &from, nil),
		).
		OrderBy(query.Sort{Field: "date"}, tripSortColumns, query.Sort{Field: "date"}).
		Paginate(query.Page{Limit: limit}).
		Build()

	trips := make([]*models.TripSummary, 0)
	if err := sqlx.SelectContext(ctx, r.q, &trips, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to list upcoming trips: %w", err)
	}
	return trips, nil
}

// Overbooked lists trips whose active participants exceed the effective
// maximum. A healthy namespace returns none.
func (r *TripRepository) Overbooked(ctx context.Context) ([]*models.TripSummary, error) {
	over := func(sb *sqlbuilder.SelectBuilder) string {
		return r.bookedExpr(sb) + " > COALESCE(t.max_participants, r.max_participants)"
	}
	stmt, args := r.summarySelect().
		Where(over).
		OrderBy(query.Sort{Field: "date"}, tripSortColumns, query.Sort{Field: "date"}).
		Build()

	trips := make([]*models.TripSummary, 0)
	if err := sqlx.SelectContext(ctx, r.q, &trips, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to audit trip capacity: %w", err)
	}
	return trips, nil
}
