// Package query builds namespace-scoped, parameterized SELECT statements.
//
// Table names come from a closed set and are qualified with a validated
// tenant.Namespace; every value is bound through the builder's argument list.
// A Select renders both the page query and a matching count query from the
// same joins and conditions.
package query

import (
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"github.com/divestreams/booking-core/internal/tenant"
)

// Table is a tenant table name.
type Table string

const (
	Customers           Table = "customers"
	Tours               Table = "tours"
	Boats               Table = "boats"
	Trips               Table = "trips"
	Bookings            Table = "bookings"
	BookingStatusEvents Table = "booking_status_events"
	Equipment           Table = "equipment"
	Transactions        Table = "transactions"
)

// Fragment renders a SQL fragment against a builder, binding any values it needs.
// A nil Fragment is skipped wherever fragments are accepted.
type Fragment func(sb *sqlbuilder.SelectBuilder) string

// Expr is a static fragment with no bound values.
func Expr(sql string) Fragment {
	return func(*sqlbuilder.SelectBuilder) string { return sql }
}

type join struct {
	option sqlbuilder.JoinOption
	table  Table
	alias  string
	on     Fragment
}

// Select is a SELECT template over one namespace.
type Select struct {
	ns      tenant.Namespace
	table   Table
	alias   string
	columns []Fragment
	joins   []join
	conds   []Fragment
	groupBy []string
	orderBy []string
	page    *Page
}

// From starts a select on table inside ns.
func From(ns tenant.Namespace, table Table, alias string) *Select {
	return &Select{ns: ns, table: table, alias: alias}
}

// Namespace returns the namespace the select is bound to.
func (s *Select) Namespace() tenant.Namespace { return s.ns }

// Columns appends plain column expressions.
func (s *Select) Columns(cols ...string) *Select {
	for _, c := range cols {
		s.columns = append(s.columns, Expr(c))
	}
	return s
}

// ColumnExpr appends a column expression that binds values, such as a
// correlated subquery.
func (s *Select) ColumnExpr(f Fragment) *Select {
	if f != nil {
		s.columns = append(s.columns, f)
	}
	return s
}

// Join adds an inner join on another table in the same namespace.
func (s *Select) Join(table Table, alias string, on Fragment) *Select {
	s.joins = append(s.joins, join{option: sqlbuilder.InnerJoin, table: table, alias: alias, on: on})
	return s
}

// LeftJoin adds a left outer join on another table in the same namespace.
func (s *Select) LeftJoin(table Table, alias string, on Fragment) *Select {
	s.joins = append(s.joins, join{option: sqlbuilder.LeftJoin, table: table, alias: alias, on: on})
	return s
}

// Where ANDs conditions onto the query. Nil conditions are ignored.
func (s *Select) Where(conds ...Fragment) *Select {
	for _, c := range conds {
		if c != nil {
			s.conds = append(s.conds, c)
		}
	}
	return s
}

// GroupBy sets grouping columns for the page query.
func (s *Select) GroupBy(cols ...string) *Select {
	s.groupBy = append(s.groupBy, cols...)
	return s
}

// OrderBy applies sort when its field is in allowed, otherwise fallback.
// allowed maps public field names to comma-separated column lists; the
// direction applies to each column. The alias id column
// is appended as a tiebreaker so pages are stable.
func (s *Select) OrderBy(sort Sort, allowed map[string]string, fallback Sort) *Select {
	col, ok := allowed[sort.Field]
	if !ok {
		sort = fallback
		col = allowed[fallback.Field]
	}
	if col != "" {
		for _, c := range strings.Split(col, ",") {
			s.orderBy = append(s.orderBy, strings.TrimSpace(c)+" "+sort.direction())
		}
	}
	s.orderBy = append(s.orderBy, s.alias+".id ASC")
	return s
}

// Paginate limits the page query to p after normalizing it.
func (s *Select) Paginate(p Page) *Select {
	n := p.Normalize()
	s.page = &n
	return s
}

func (s *Select) base() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.From(s.ns.Qualify(string(s.table)) + " " + s.alias)
	for _, j := range s.joins {
		sb.JoinWithOption(j.option, s.ns.Qualify(string(j.table))+" "+j.alias, j.on(sb))
	}
	for _, c := range s.conds {
		sb.Where(c(sb))
	}
	return sb
}

// Build renders the page query.
func (s *Select) Build() (string, []any) {
	sb := s.base()
	cols := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		cols = append(cols, c(sb))
	}
	if len(cols) == 0 {
		cols = append(cols, s.alias+".*")
	}
	sb.Select(cols...)
	if len(s.groupBy) > 0 {
		sb.GroupBy(s.groupBy...)
	}
	if len(s.orderBy) > 0 {
		sb.OrderBy(s.orderBy...)
	}
	if s.page != nil {
		sb.Limit(s.page.Limit)
		sb.Offset(s.page.Offset)
	}
	return sb.Build()
}

// BuildCount renders a count of the rows the page query would return
// without pagination.
func (s *Select) BuildCount() (string, []any) {
	sb := s.base()
	if len(s.groupBy) > 0 {
		sb.Select("COUNT(DISTINCT " + s.alias + ".id)")
	} else {
		sb.Select("COUNT(*)")
	}
	return sb.Build()
}
