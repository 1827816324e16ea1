package models

import (
	"testing"
)

func TestCertifications_RoundTrip(t *testing.T) {
	certs := Certifications{{Agency: "PADI", Level: "Advanced Open Water", Number: "A123"}}

	v, err := certs.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got Certifications
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].Agency != "PADI" || got[0].Number != "A123" {
		t.Errorf("Scan = %+v", got)
	}
}

func TestCertifications_ScanEmpty(t *testing.T) {
	for _, src := range []any{nil, []byte{}, "[]"} {
		var c Certifications
		if err := c.Scan(src); err != nil {
			t.Fatalf("Scan(%v): %v", src, err)
		}
		if c == nil || len(c) != 0 {
			t.Errorf("Scan(%v) = %v, want empty slice", src, c)
		}
	}
}

func TestCertifications_ScanRejectsUnknownType(t *testing.T) {
	var c Certifications
	if err := c.Scan(42); err == nil {
		t.Error("expected error for int source")
	}
}

func TestCertifications_NilValue(t *testing.T) {
	var c Certifications
	v, err := c.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if string(v.([]byte)) != "[]" {
		t.Errorf("Value() = %s, want []", v)
	}
}

func TestEffectiveMax(t *testing.T) {
	override := 6
	if got := EffectiveMax(&override, 12); got != 6 {
		t.Errorf("EffectiveMax(override) = %d, want 6", got)
	}
	if got := EffectiveMax(nil, 12); got != 12 {
		t.Errorf("EffectiveMax(nil) = %d, want 12", got)
	}
}

func TestTripSummary_AvailableSpots(t *testing.T) {
	s := &TripSummary{EffectiveMax: 10, BookedParticipants: 7}
	if got := s.AvailableSpots(); got != 3 {
		t.Errorf("AvailableSpots = %d, want 3", got)
	}
	s.BookedParticipants = 12
	if got := s.AvailableSpots(); got != 0 {
		t.Errorf("AvailableSpots over capacity = %d, want 0", got)
	}
}

func TestCustomer_FullName(t *testing.T) {
	c := &Customer{FirstName: "Ada", LastName: "Lovelace"}
	if c.FullName() != "Ada Lovelace" {
		t.Errorf("FullName = %s", c.FullName())
	}
	c.LastName = ""
	if c.FullName() != "Ada" {
		t.Errorf("FullName = %s", c.FullName())
	}
}
