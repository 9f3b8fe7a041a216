package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusPriority(t *testing.T) {
	want := map[Status]int{
		StatusPending:   1,
		StatusConfirmed: 2,
		StatusPreparing: 3,
		StatusShipping:  4,
		StatusDelivered: 5,
		StatusCompleted: 6,
		StatusCancelled: 7,
	}
	for s, p := range want {
		assert.Equal(t, p, s.Priority(), "priority of %s", s)
	}
	assert.Equal(t, 8, Status("bogus").Priority(), "unknown statuses sort last")
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending straight to completed", StatusPending, StatusCompleted, true},
		{"shipping back to preparing", StatusShipping, StatusPreparing, true},
		{"any state to cancelled", StatusDelivered, StatusCancelled, true},
		{"cancelled is terminal", StatusCancelled, StatusConfirmed, false},
		{"cancelled to cancelled", StatusCancelled, StatusCancelled, false},
		{"pending is not re-enterable", StatusConfirmed, StatusPending, false},
		{"unknown target", StatusPending, Status("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatuses_CoversEveryPriority(t *testing.T) {
	all := Statuses()
	assert.Len(t, all, 7)
	for i, s := range all {
		assert.True(t, s.Valid())
		assert.Equal(t, i+1, s.Priority())
	}
}
