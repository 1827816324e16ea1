// catalog_repository.go implements CatalogRepository for tours and boats.
package repositories

import (
	"context"

	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/query"
	"github.com/divestreams/booking-core/internal/tenant"
)

var tourColumns = []string{
	"id", "name", "description", "duration_minutes", "min_participants",
	"max_participants", "price", "currency", "inclusions", "is_active",
	"created_at", "updated_at",
}

var boatColumns = []string{"id", "name", "capacity", "is_active", "created_at", "updated_at"}

var catalogSortColumns = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
}

// TourFilter narrows a tour listing. Inactive tours are hidden unless requested.
type TourFilter struct {
	Search          string
	IncludeInactive bool
}

// BoatFilter narrows a boat listing.
type BoatFilter struct {
	IncludeInactive bool
}

// CatalogRepository handles tour and boat queries within one namespace
type CatalogRepository struct {
	q  DBTX
	ns tenant.Namespace
}

// NewCatalogRepository binds a catalog repository to q and ns
func NewCatalogRepository(q DBTX, ns tenant.Namespace) *CatalogRepository {
	return &CatalogRepository{q: q, ns: ns}
}

func activeOnly(includeInactive bool, col string) query.Fragment {
	if includeInactive {
		return nil
	}
	return query.IsTrue(col)
}

// ListTours returns a page of tours and the total match count.
func (r *CatalogRepository) ListTours(ctx context.Context, f TourFilter, page query.Page, sort query.Sort) ([]*models.Tour, int, error) {
	q := query.From(r.ns, query.Tours, "r").
		Columns(prefixed("r", tourColumns)...).
		Where(
			activeOnly(f.IncludeInactive, "r.is_active"),
			query.Contains(f.Search, "r.name", "r.description"),
		).
		OrderBy(sort, prefixedSort("r", catalogSortColumns), query.Sort{Field: "name"}).
		Paginate(page)

	return selectPage[models.Tour](ctx, r.q, q, "tours")
}

// ListBoats returns a page of boats and the total match count.
func (r *CatalogRepository) ListBoats(ctx context.Context, f BoatFilter, page query.Page, sort query.Sort) ([]*models.Boat, int, error) {
	q := query.From(r.ns, query.Boats, "bo").
		Columns(prefixed("bo", boatColumns)...).
		Where(activeOnly(f.IncludeInactive, "bo.is_active")).
		OrderBy(sort, prefixedSort("bo", catalogSortColumns), query.Sort{Field: "name"}).
		Paginate(page)

	return selectPage[models.Boat](ctx, r.q, q, "boats")
}

func prefixedSort(alias string, cols map[string]string) map[string]string {
	out := make(map[string]string, len(cols))
	for k, v := range cols {
		out[k] = alias + "." + v
	}
	return out
}
