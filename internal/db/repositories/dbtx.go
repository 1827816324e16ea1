// Package repositories holds the SQL for the organization registry and for
// tenant-scoped aggregates.
//
// Tenant repositories are constructed per unit of work from a DBTX (a session
// connection or transaction) and the session's namespace, so every statement
// they issue is qualified with that namespace and nothing else.
package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/divestreams/booking-core/internal/query"
)

// DBTX is satisfied by *sqlx.Conn and *sqlx.Tx.
type DBTX interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

// selectPage runs the page query and its matching count.
func selectPage[T any](ctx context.Context, q DBTX, sel *query.Select, what string) ([]*T, int, error) {
	stmt, args := sel.Build()
	items := make([]*T, 0)
	if err := sqlx.SelectContext(ctx, q, &items, stmt, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", what, err)
	}

	countStmt, countArgs := sel.BuildCount()
	var total int
	if err := sqlx.GetContext(ctx, q, &total, countStmt, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", what, err)
	}

	return items, total, nil
}
