package query

import (
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/divestreams/booking-core/internal/tenant"
)

// Eq matches col = v.
func Eq(col string, v any) Fragment {
	return func(sb *sqlbuilder.SelectBuilder) string { return sb.Equal(col, v) }
}

// EqIfSet matches col = v when v is non-empty and is skipped otherwise.
func EqIfSet(col, v string) Fragment {
	if v == "" {
		return nil
	}
	return Eq(col, v)
}

// In matches col against any of vs. An empty list matches nothing.
func In(col string, vs ...any) Fragment {
	if len(vs) == 0 {
		return Expr("FALSE")
	}
	return func(sb *sqlbuilder.SelectBuilder) string { return sb.In(col, vs...) }
}

// NotIn excludes vs from col. An empty list excludes nothing.
func NotIn(col string, vs ...any) Fragment {
	if len(vs) == 0 {
		return nil
	}
	return func(sb *sqlbuilder.SelectBuilder) string { return sb.NotIn(col, vs...) }
}

// IsTrue matches a boolean column.
func IsTrue(col string) Fragment {
	return Expr(col + " = TRUE")
}

// Contains matches term as a literal substring of any of cols, case-insensitively.
// LIKE wildcards in term are escaped. An empty term is skipped.
func Contains(term string, cols ...string) Fragment {
	if term == "" || len(cols) == 0 {
		return nil
	}
	pattern := tenant.ContainsPattern(term)
	return func(sb *sqlbuilder.SelectBuilder) string {
		exprs := make([]string, 0, len(cols))
		for _, c := range cols {
			exprs = append(exprs, c+" ILIKE "+sb.Var(pattern))
		}
		return sb.Or(exprs...)
	}
}

// DateRange matches from <= col < to. Either bound may be nil.
func DateRange(col string, from, to *time.Time) Fragment {
	if from == nil && to == nil {
		return nil
	}
	return func(sb *sqlbuilder.SelectBuilder) string {
		var exprs []string
		if from != nil {
			exprs = append(exprs, sb.GreaterEqualThan(col, *from))
		}
		if to != nil {
			exprs = append(exprs, sb.LessThan(col, *to))
		}
		return sb.And(exprs...)
	}
}

// And joins fragments with AND, skipping nils.
func And(frags ...Fragment) Fragment {
	return func(sb *sqlbuilder.SelectBuilder) string {
		exprs := make([]string, 0, len(frags))
		for _, f := range frags {
			if f != nil {
				exprs = append(exprs, f(sb))
			}
		}
		return sb.And(exprs...)
	}
}
