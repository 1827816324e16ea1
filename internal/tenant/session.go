package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Session is a unit of work bound to one organization's namespace. It holds a
// dedicated pooled connection and must not be shared between concurrent
// operations.
type Session struct {
	orgID            string
	ns               Namespace
	conn             *sqlx.Conn
	lockTimeout      time.Duration
	statementTimeout time.Duration
}

// OrganizationID returns the organization the session is scoped to.
func (s *Session) OrganizationID() string { return s.orgID }

// Namespace returns the session's namespace.
func (s *Session) Namespace() Namespace { return s.ns }

// Conn returns the session connection for read-only queries outside a transaction.
func (s *Session) Conn() *sqlx.Conn { return s.conn }

// InTx runs fn inside a transaction on the session connection. Lock and
// statement timeouts are applied for the lifetime of the transaction only.
// The transaction is rolled back if fn returns an error or panics.
func (s *Session) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.lockTimeout > 0 || s.statementTimeout > 0 {
		_, err := tx.ExecContext(ctx,
			`SELECT set_config('lock_timeout', $1, true), set_config('statement_timeout', $2, true)`,
			pgDuration(s.lockTimeout), pgDuration(s.statementTimeout),
		)
		if err != nil {
			return fmt.Errorf("failed to apply transaction timeouts: %w", err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close returns the session connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}

// pgDuration renders d as a Postgres interval in milliseconds; zero means no limit.
func pgDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
