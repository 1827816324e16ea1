package booking

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// crockford is the Crockford base32 alphabet: no I, L, O or U.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// DefaultNumberPrefix starts every booking number unless configured otherwise.
const DefaultNumberPrefix = "BK"

// NumberGenerator produces human-facing booking numbers. Uniqueness is
// enforced by the database; a generator only needs to make collisions rare.
type NumberGenerator interface {
	Next(now time.Time) (string, error)
}

// RandomNumbers renders PREFIX-YYMMDD-XXXXXXXX, where the suffix is 40 random
// bits in Crockford base32.
type RandomNumbers struct {
	Prefix string
	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// Next returns a fresh booking number dated now (UTC).
func (g RandomNumbers) Next(now time.Time) (string, error) {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	var buf [5]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	var suffix [8]byte
	for i := len(suffix) - 1; i >= 0; i-- {
		suffix[i] = crockford[v&31]
		v >>= 5
	}

	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("060102"), suffix[:]), nil
}
