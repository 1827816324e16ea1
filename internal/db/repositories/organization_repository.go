// organization_repository.go implements OrganizationRepository, the public registry
// of tenants and the namespace each one is bound to.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/db/models"
)

// OrganizationRepository handles the public organizations registry
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

const organizationColumns = `id, name, display_name, schema_name, created_at, updated_at`

// NamespaceFor returns the schema registered for orgID, or "" when the
// organization is unknown or its schema has not been created yet.
func (r *OrganizationRepository) NamespaceFor(ctx context.Context, orgID string) (string, error) {
	query := `
		SELECT o.schema_name
		FROM organizations o
		JOIN pg_catalog.pg_namespace n ON n.nspname = o.schema_name
		WHERE o.id = $1
	`

	var schema string
	err := r.db.QueryRowxContext(ctx, query, orgID).Scan(&schema)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve namespace: %w", err)
	}

	return schema, nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	org := &models.Organization{}
	if err := sqlx.GetContext(ctx, r.db, org, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// GetByName retrieves an organization by its slug
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE name = $1`

	org := &models.Organization{}
	if err := sqlx.GetContext(ctx, r.db, org, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// Create registers a new organization. The schema itself is provisioned separately.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, display_name, schema_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, org.Name, org.DisplayName, org.SchemaName).Scan(
		&org.ID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// UpdateDisplayName changes the human-readable name. The schema binding is immutable.
func (r *OrganizationRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	query := `UPDATE organizations SET display_name = $2, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, displayName)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List retrieves organizations with pagination
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	query := `
		SELECT ` + organizationColumns + `
		FROM organizations
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	orgs := make([]*models.Organization, 0)
	if err := sqlx.SelectContext(ctx, r.db, &orgs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	return orgs, nil
}
