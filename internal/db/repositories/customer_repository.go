// customer_repository.go implements CustomerRepository for tenant-scoped customer reads.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/db/models"
	"github.com/divestreams/booking-core/internal/query"
	"github.com/divestreams/booking-core/internal/tenant"
)

var customerColumns = []string{
	"id", "email", "first_name", "last_name", "phone", "certifications",
	"emergency_contact_name", "emergency_contact_phone", "medical_notes",
	"created_at", "updated_at",
}

var customerSortColumns = map[string]string{
	"lastName":  "c.last_name",
	"firstName": "c.first_name",
	"email":     "c.email",
	"createdAt": "c.created_at",
}

// CustomerFilter narrows a customer listing.
type CustomerFilter struct {
	Search string
}

// CustomerRepository handles customer queries within one namespace
type CustomerRepository struct {
	q  DBTX
	ns tenant.Namespace
}

// NewCustomerRepository binds a customer repository to q and ns
func NewCustomerRepository(q DBTX, ns tenant.Namespace) *CustomerRepository {
	return &CustomerRepository{q: q, ns: ns}
}

// Exists reports whether the customer is present in the namespace.
func (r *CustomerRepository) Exists(ctx context.Context, id string) (bool, error) {
	stmt := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.ns.Qualify("customers"))

	var exists bool
	if err := r.q.QueryRowxContext(ctx, stmt, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check customer: %w", err)
	}
	return exists, nil
}

// LockForBooking reports whether the customer exists and holds a KEY SHARE
// lock on its row until the transaction ends, so the customer cannot be
// deleted before a booking referencing it commits.
func (r *CustomerRepository) LockForBooking(ctx context.Context, id string) (bool, error) {
	stmt := fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 FOR KEY SHARE`, r.ns.Qualify("customers"))

	var got string
	if err := r.q.QueryRowxContext(ctx, stmt, id).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock customer: %w", err)
	}
	return true, nil
}

// GetByID retrieves a customer. Returns nil when missing.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	stmt, args := query.From(r.ns, query.Customers, "c").
		Columns(prefixed("c", customerColumns)...).
		Where(query.Eq("c.id", id)).
		Build()

	c := &models.Customer{}
	if err := sqlx.GetContext(ctx, r.q, c, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// List returns a page of customers matching f and the total match count.
func (r *CustomerRepository) List(ctx context.Context, f CustomerFilter, page query.Page, sort query.Sort) ([]*models.Customer, int, error) {
	q := query.From(r.ns, query.Customers, "c").
		Columns(prefixed("c", customerColumns)...).
		Where(query.Contains(f.Search, "c.first_name", "c.last_name", "c.email", "c.phone")).
		OrderBy(sort, customerSortColumns, query.Sort{Field: "lastName"}).
		Paginate(page)

	return selectPage[models.Customer](ctx, r.q, q, "customers")
}
