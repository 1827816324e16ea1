// Package tenant resolves organizations to their isolated database namespaces
// and hands out scoped sessions bound to exactly one namespace.
//
// A Namespace value can only be produced by ParseNamespace, so any SQL text
// that embeds a schema name has passed the identifier allow-list. Literal
// values never appear in SQL text; they travel as bound parameters.
package tenant

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/divestreams/booking-core/internal/apperr"
)

// namespacePattern bounds names to Postgres' 63 byte identifier limit.
var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

var reservedPrefixes = []string{"pg_", "information_schema", "public"}

// Namespace is a validated tenant schema name.
type Namespace struct {
	name string
}

// ParseNamespace validates raw against the identifier allow-list.
func ParseNamespace(raw string) (Namespace, error) {
	if !namespacePattern.MatchString(raw) {
		return Namespace{}, apperr.InvalidIdentifier("namespace must be 3-63 lowercase letters, digits or underscores starting with a letter")
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return Namespace{}, apperr.InvalidIdentifier("namespace uses a reserved prefix")
		}
	}
	return Namespace{name: raw}, nil
}

// MustNamespace is ParseNamespace for constants and tests. It panics on invalid input.
func MustNamespace(raw string) Namespace {
	ns, err := ParseNamespace(raw)
	if err != nil {
		panic(err)
	}
	return ns
}

// String returns the bare schema name.
func (n Namespace) String() string { return n.name }

// IsZero reports whether n was never validated.
func (n Namespace) IsZero() bool { return n.name == "" }

// Quoted returns the schema as a quoted SQL identifier.
func (n Namespace) Quoted() string { return pq.QuoteIdentifier(n.name) }

// Qualify returns the fully-qualified, quoted name of table inside n.
// table must come from a closed set of constants, never from input.
func (n Namespace) Qualify(table string) string {
	return n.Quoted() + "." + pq.QuoteIdentifier(table)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards in term so it matches literally.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// ContainsPattern returns a LIKE pattern matching term anywhere in a value.
func ContainsPattern(term string) string {
	return "%" + EscapeLike(term) + "%"
}

// ValidateID checks that id is a UUID. field names the input for error reporting.
func ValidateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation(field, "must be a valid UUID")
	}
	return nil
}
