package tenant

import (
	"errors"
	"strings"
	"testing"

	"github.com/divestreams/booking-core/internal/apperr"
)

func TestParseNamespace(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"simple", "tenant_acme", false},
		{"digits", "org42_dive", false},
		{"minimum length", "abc", false},
		{"max length", "a" + strings.Repeat("b", 62), false},
		{"too long", "a" + strings.Repeat("b", 63), true},
		{"too short", "ab", true},
		{"uppercase", "Tenant", true},
		{"leading digit", "1tenant", true},
		{"leading underscore", "_tenant", true},
		{"quote injection", `acme"; DROP TABLE bookings; --`, true},
		{"dot", "acme.public", true},
		{"dash", "acme-dive", true},
		{"space", "acme dive", true},
		{"empty", "", true},
		{"pg prefix", "pg_catalog", true},
		{"public", "public", true},
		{"information schema", "information_schema", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns, err := ParseNamespace(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseNamespace(%q) = %s, want error", tt.raw, ns)
				}
				if !errors.Is(err, apperr.ErrInvalidIdentifier) {
					t.Errorf("error kind = %v, want invalid identifier", apperr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNamespace(%q) unexpected error: %v", tt.raw, err)
			}
			if ns.String() != tt.raw {
				t.Errorf("String() = %s, want %s", ns.String(), tt.raw)
			}
		})
	}
}

func TestNamespace_Qualify(t *testing.T) {
	ns := MustNamespace("tenant_acme")
	if got := ns.Quoted(); got != `"tenant_acme"` {
		t.Errorf("Quoted() = %s, want \"tenant_acme\"", got)
	}
	if got := ns.Qualify("bookings"); got != `"tenant_acme"."bookings"` {
		t.Errorf("Qualify() = %s", got)
	}
}

func TestNamespace_Zero(t *testing.T) {
	var ns Namespace
	if !ns.IsZero() {
		t.Error("zero Namespace should report IsZero")
	}
	if MustNamespace("tenant_acme").IsZero() {
		t.Error("parsed Namespace should not be zero")
	}
}

func TestMustNamespace_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid namespace")
		}
	}()
	MustNamespace("Bad-Name")
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"smith", "smith"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		if got := EscapeLike(tt.in); got != tt.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := ContainsPattern("50%"); got != `%50\%%` {
		t.Errorf("ContainsPattern = %q", got)
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("tripId", "5b3f0c1e-3c1d-4f8e-9a57-2f1f2a0d9c11"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := ValidateID("tripId", "' OR 1=1 --")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Field != "tripId" {
		t.Errorf("Field = %s, want tripId", appErr.Field)
	}
}
