package repositories

import (
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/tenant"
)

const (
	testOrgID      = "0d9a4b8e-6f1e-4c57-9d55-2b0c6f4b1a01"
	testTripID     = "5b3f0c1e-3c1d-4f8e-9a57-2f1f2a0d9c11"
	testCustomerID = "a1c2e3f4-5b6d-4e7f-8a9b-0c1d2e3f4a5b"
	testBookingID  = "f0e1d2c3-b4a5-4968-8776-655443322110"
)

var (
	errDB    = errors.New("db error")
	acmeNS   = tenant.MustNamespace("tenant_acme")
	inactive = []string{"canceled", "no_show"}
)

// newTenantDB returns a sqlx handle over sqlmock for constructing tenant repositories.
func newTenantDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}
