// Package models - organization.go defines the Organization registry entry that binds
// a tenant to its isolated database namespace.
package models

import "time"

// Organization is a tenant. SchemaName is fixed once the namespace is provisioned.
type Organization struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"` // URL-safe slug
	DisplayName string    `db:"display_name" json:"displayName"`
	SchemaName  string    `db:"schema_name" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
