package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/tenant"
)

//go:embed tenant_schema.sql
var tenantSchemaTemplate string

// TenantSchemaSQL renders the tenant DDL for ns. The namespace is the only
// substitution and is always the quoted, validated identifier.
func TenantSchemaSQL(ns tenant.Namespace) string {
	return strings.ReplaceAll(tenantSchemaTemplate, "{{schema}}", ns.Quoted())
}

// ProvisionTenant creates ns and its tables in one transaction. It is
// idempotent for an already provisioned namespace.
func ProvisionTenant(ctx context.Context, db *sqlx.DB, ns tenant.Namespace) error {
	if ns.IsZero() {
		return fmt.Errorf("failed to provision tenant: namespace is required")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin provisioning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, TenantSchemaSQL(ns)); err != nil {
		return fmt.Errorf("failed to provision namespace %s: %w", ns, err)
	}

	return tx.Commit()
}
