// report_repository.go implements ReportRepository, aggregate reads for revenue and the dashboard.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/tenant"
)

// ReportRepository handles aggregate queries within one namespace
type ReportRepository struct {
	q  DBTX
	ns tenant.Namespace
}

// NewReportRepository binds a report repository to q and ns
func NewReportRepository(q DBTX, ns tenant.Namespace) *ReportRepository {
	return &ReportRepository{q: q, ns: ns}
}

// Revenue totals bookings per currency for trips dated in [from, to),
// excluding bookings whose status is in excluded.
func (r *ReportRepository) Revenue(ctx context.Context, from, to time.Time, excluded []string) ([]*models.RevenueLine, error) {
	stmt := fmt.Sprintf(`
		SELECT b.currency,
		       COUNT(*) AS bookings,
		       COALESCE(SUM(b.participants), 0) AS participants,
		       COALESCE(SUM(b.total), 0) AS total
		FROM %s b
		JOIN %s t ON t.id = b.trip_id
		WHERE b.status <> ALL($1) AND t.date >= $2 AND t.date < $3
		GROUP BY b.currency
		ORDER BY b.currency
	`, r.ns.Qualify("bookings"), r.ns.Qualify("trips"))

	lines := make([]*models.RevenueLine, 0)
	if err := sqlx.SelectContext(ctx, r.q, &lines, stmt, pq.Array(excluded), from, to); err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	return lines, nil
}

// Dashboard counts today's trips, upcoming scheduled trips, bookings whose
// status is in active, and customers.
func (r *ReportRepository) Dashboard(ctx context.Context, today time.Time, active []string) (*models.DashboardStats, error) {
	stmt := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %[1]s WHERE date = $1 AND status <> $2) AS today_trips,
			(SELECT COUNT(*) FROM %[1]s WHERE date > $1 AND status = $3) AS upcoming_trips,
			(SELECT COUNT(*) FROM %[2]s WHERE status = ANY($4)) AS active_bookings,
			(SELECT COUNT(*) FROM %[3]s) AS customers
	`, r.ns.Qualify("trips"), r.ns.Qualify("bookings"), r.ns.Qualify("customers"))

	stats := &models.DashboardStats{}
	err := sqlx.GetContext(ctx, r.q, stats, stmt,
		today.Format("2006-01-02"), models.TripCanceled, models.TripScheduled, pq.Array(active))
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return stats, nil
}
