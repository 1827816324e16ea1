package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divestreams/booking-core/internal/apperr"
)

const (
	orgAcme  = "0d9a4b8e-6f1e-4c57-9d55-2b0c6f4b1a01"
	orgOther = "7c2e9f10-3a4b-4d6c-8e1f-90ab12cd34ef"
)

type fakeLookup struct {
	namespaces map[string]string
	err        error
	calls      int
}

func (f *fakeLookup) NamespaceFor(_ context.Context, orgID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.namespaces[orgID], nil
}

func newResolver(t *testing.T, lookup NamespaceLookup, opts ResolverOptions) (*Resolver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, err := NewResolver(sqlx.NewDb(db, "postgres"), lookup, opts)
	require.NoError(t, err)
	return r, mock
}

func TestResolve_BindsOwnNamespace(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{
		orgAcme:  "tenant_acme",
		orgOther: "tenant_other",
	}}
	r, _ := newResolver(t, lookup, ResolverOptions{})

	err := r.WithSession(context.Background(), orgAcme, func(s *Session) error {
		assert.Equal(t, "tenant_acme", s.Namespace().String())
		assert.Equal(t, orgAcme, s.OrganizationID())
		return nil
	})
	require.NoError(t, err)

	err = r.WithSession(context.Background(), orgOther, func(s *Session) error {
		assert.Equal(t, "tenant_other", s.Namespace().String())
		return nil
	})
	require.NoError(t, err)
}

func TestResolve_NamespaceNotFound(t *testing.T) {
	r, _ := newResolver(t, &fakeLookup{namespaces: map[string]string{}}, ResolverOptions{})

	_, err := r.Resolve(context.Background(), orgAcme)
	assert.True(t, errors.Is(err, apperr.ErrNamespaceNotFound), "got %v", err)
}

func TestResolve_InvalidOrganizationID(t *testing.T) {
	lookup := &fakeLookup{}
	r, _ := newResolver(t, lookup, ResolverOptions{})

	_, err := r.Resolve(context.Background(), "acme'; --")
	assert.True(t, errors.Is(err, apperr.ErrInvalidIdentifier), "got %v", err)
	assert.Equal(t, 0, lookup.calls, "lookup must not run for malformed ids")
}

func TestResolve_RegistryValueFailsValidation(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{orgAcme: `acme"; DROP SCHEMA x; --`}}
	r, _ := newResolver(t, lookup, ResolverOptions{})

	called := false
	err := r.WithSession(context.Background(), orgAcme, func(*Session) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, apperr.ErrInvalidIdentifier), "got %v", err)
	assert.False(t, called)
}

func TestResolve_LookupFailure(t *testing.T) {
	r, _ := newResolver(t, &fakeLookup{err: errors.New("connection refused")}, ResolverOptions{})

	_, err := r.Resolve(context.Background(), orgAcme)
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
}

func TestNamespace_Cached(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{orgAcme: "tenant_acme"}}
	r, _ := newResolver(t, lookup, ResolverOptions{CacheSize: 8})

	for i := 0; i < 3; i++ {
		ns, err := r.Namespace(context.Background(), orgAcme)
		require.NoError(t, err)
		assert.Equal(t, "tenant_acme", ns.String())
	}
	assert.Equal(t, 1, lookup.calls)

	r.Forget(orgAcme)
	_, err := r.Namespace(context.Background(), orgAcme)
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
}

func TestNamespace_NotFoundIsNotCached(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{}}
	r, _ := newResolver(t, lookup, ResolverOptions{CacheSize: 8})

	_, _ = r.Namespace(context.Background(), orgAcme)
	lookup.namespaces[orgAcme] = "tenant_acme"

	ns, err := r.Namespace(context.Background(), orgAcme)
	require.NoError(t, err)
	assert.Equal(t, "tenant_acme", ns.String())
}

func TestWithSession_ReleasesOnError(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{orgAcme: "tenant_acme"}}
	r, _ := newResolver(t, lookup, ResolverOptions{})

	boom := errors.New("boom")
	err := r.WithSession(context.Background(), orgAcme, func(*Session) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.db.Stats().InUse, "session connection should be released")
}

func TestWithSession_ReleasesOnPanic(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{orgAcme: "tenant_acme"}}
	r, _ := newResolver(t, lookup, ResolverOptions{})

	func() {
		defer func() { _ = recover() }()
		_ = r.WithSession(context.Background(), orgAcme, func(*Session) error { panic("kaboom") })
	}()
	assert.Equal(t, 0, r.db.Stats().InUse)
}

func TestSessionInTx_AppliesTimeoutsAndCommits(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{orgAcme: "tenant_acme"}}
	r, mock := newResolver(t, lookup, ResolverOptions{
		LockTimeout:      2 * time.Second,
		StatementTimeout: 5 * time.Second,
	})

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config\\('lock_timeout'").
		WithArgs("2000ms", "5000ms").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := r.WithSession(context.Background(), orgAcme, func(s *Session) error {
		return s.InTx(context.Background(), func(*sqlx.Tx) error { return nil })
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionInTx_RollsBackOnError(t *testing.T) {
	lookup := &fakeLookup{namespaces: map[string]string{orgAcme: "tenant_acme"}}
	r, mock := newResolver(t, lookup, ResolverOptions{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := r.WithSession(context.Background(), orgAcme, func(s *Session) error {
		return s.InTx(context.Background(), func(*sqlx.Tx) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
