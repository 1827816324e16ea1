package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCanceled}:    true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCanceled}:  true,
		{StatusConfirmed, StatusNoShow}:    true,
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_UnknownStates(t *testing.T) {
	assert.False(t, CanTransition("archived", StatusCanceled))
	assert.False(t, CanTransition(StatusPending, "archived"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusNoShow.IsTerminal())
	assert.False(t, Status("archived").IsTerminal())
}

func TestActiveAndInactiveStatuses(t *testing.T) {
	assert.Equal(t, []string{"pending", "confirmed", "completed"}, ActiveStatuses())
	assert.Equal(t, []string{"canceled", "no_show"}, InactiveStatuses())

	for _, s := range AllStatuses {
		assert.NotEqual(t, s.IsActive(), contains(InactiveStatuses(), string(s)), "status %s", s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("no_show")
	assert.NoError(t, err)
	assert.Equal(t, StatusNoShow, s)

	_, err = ParseStatus("CANCELED")
	assert.Error(t, err)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
