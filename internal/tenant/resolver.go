package tenant

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/apperr"
	"github.com/divestreams/booking-core/internal/telemetry"
)

// NamespaceLookup returns the schema name registered for an organization,
// or "" when the organization has no provisioned namespace.
type NamespaceLookup interface {
	NamespaceFor(ctx context.Context, orgID string) (string, error)
}

// ResolverOptions tunes session behaviour.
type ResolverOptions struct {
	// CacheSize bounds the orgID -> namespace cache. Zero disables caching.
	CacheSize        int
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

// Resolver maps organization IDs to namespaces and opens scoped sessions.
// Namespace bindings are immutable once provisioned, which is what makes
// caching them safe. Nothing row-derived is cached here.
type Resolver struct {
	db     *sqlx.DB
	lookup NamespaceLookup
	cache  *lru.Cache[string, Namespace]
	opts   ResolverOptions
}

// NewResolver creates a resolver drawing session connections from db.
func NewResolver(db *sqlx.DB, lookup NamespaceLookup, opts ResolverOptions) (*Resolver, error) {
	r := &Resolver{db: db, lookup: lookup, opts: opts}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Namespace](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

// Namespace resolves orgID to its validated namespace without opening a session.
func (r *Resolver) Namespace(ctx context.Context, orgID string) (Namespace, error) {
	if err := ValidateID("organizationId", orgID); err != nil {
		telemetry.NamespaceResolutionsTotal.WithLabelValues("invalid").Inc()
		return Namespace{}, apperr.InvalidIdentifier("organization id must be a valid UUID")
	}

	if r.cache != nil {
		if ns, ok := r.cache.Get(orgID); ok {
			telemetry.NamespaceResolutionsTotal.WithLabelValues("cached").Inc()
			return ns, nil
		}
	}

	raw, err := r.lookup.NamespaceFor(ctx, orgID)
	if err != nil {
		telemetry.NamespaceResolutionsTotal.WithLabelValues("error").Inc()
		return Namespace{}, apperr.Classify(err, "failed to look up namespace")
	}
	if raw == "" {
		telemetry.NamespaceResolutionsTotal.WithLabelValues("not_found").Inc()
		return Namespace{}, apperr.NamespaceNotFound(orgID)
	}

	ns, err := ParseNamespace(raw)
	if err != nil {
		// The registry holds a value that would not pass the allow-list.
		slog.Error("registered namespace failed validation", "organization_id", orgID, "error", err)
		telemetry.NamespaceResolutionsTotal.WithLabelValues("invalid").Inc()
		return Namespace{}, err
	}

	if r.cache != nil {
		r.cache.Add(orgID, ns)
	}
	telemetry.NamespaceResolutionsTotal.WithLabelValues("resolved").Inc()
	return ns, nil
}

// Resolve opens a session bound to orgID's namespace. The caller must Close it.
// Prefer WithSession, which guarantees release.
func (r *Resolver) Resolve(ctx context.Context, orgID string) (*Session, error) {
	ns, err := r.Namespace(ctx, orgID)
	if err != nil {
		return nil, err
	}

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, apperr.Classify(err, "failed to acquire database connection")
	}

	return &Session{
		orgID:            orgID,
		ns:               ns,
		conn:             conn,
		lockTimeout:      r.opts.LockTimeout,
		statementTimeout: r.opts.StatementTimeout,
	}, nil
}

// WithSession runs fn with a session for orgID and releases the session on
// every exit path, including panics in fn.
func (r *Resolver) WithSession(ctx context.Context, orgID string, fn func(*Session) error) error {
	s, err := r.Resolve(ctx, orgID)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			slog.Warn("failed to release tenant session", "organization_id", orgID, "error", cerr)
		}
	}()
	return fn(s)
}

// Forget drops a cached binding, for use after deprovisioning an organization.
func (r *Resolver) Forget(orgID string) {
	if r.cache != nil {
		r.cache.Remove(orgID)
	}
}
