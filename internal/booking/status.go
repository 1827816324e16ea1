// Package booking implements capacity-checked booking creation and the
// booking lifecycle for a single organization at a time.
//
// Every write runs as one transaction on a tenant session. Capacity is
// computed from live booking rows under a row lock on the trip, so the sum of
// active participants on a trip never exceeds its effective maximum.
package booking

import "fmt"

// Status is a booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusNoShow    Status = "no_show"
)

// AllStatuses lists every lifecycle state.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled, StatusNoShow}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCompleted, StatusCanceled, StatusNoShow},
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// IsActive reports whether a booking in s holds spots on its trip.
func (s Status) IsActive() bool {
	return s.Valid() && s != StatusCanceled && s != StatusNoShow
}

// CanTransition reports whether from -> to is a legal move. Same-state moves
// are never legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InactiveStatuses returns the states that do not count toward capacity, as
// bound into capacity queries.
func InactiveStatuses() []string {
	return statusStrings(false)
}

// ActiveStatuses returns the states that count toward capacity.
func ActiveStatuses() []string {
	return statusStrings(true)
}

func statusStrings(active bool) []string {
	out := make([]string, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		if s.IsActive() == active {
			out = append(out, string(s))
		}
	}
	return out
}
