package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		n      int
		want   time.Time
	}{
		{"leap february clamp", Date(2024, 1, 31), 1, Date(2024, 2, 29)},
		{"non-leap february clamp", Date(2023, 1, 31), 1, Date(2023, 2, 28)},
		{"anchor day restored", Date(2024, 1, 31), 2, Date(2024, 3, 31)},
		{"thirty day month", Date(2024, 1, 31), 3, Date(2024, 4, 30)},
		{"year rollover", Date(2024, 11, 15), 3, Date(2025, 2, 15)},
		{"zero months", Date(2024, 5, 10), 0, Date(2024, 5, 10)},
		{"yearly from leap day", Date(2024, 2, 29), 12, Date(2025, 2, 28)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonthsClamped(tc.anchor, tc.n))
		})
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2024, time.February)
	assert.Equal(t, Date(2024, 2, 1), first)
	assert.Equal(t, Date(2024, 2, 29), last)

	first, last = MonthBounds(2023, time.December)
	assert.Equal(t, Date(2023, 12, 1), first)
	assert.Equal(t, Date(2023, 12, 31), last)
}

func TestOfAndNextDayStart(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)

	// 01:30 UTC on the 2nd is still the 1st in UTC-3.
	instant := time.Date(2024, 3, 2, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, Date(2024, 3, 1), Of(instant, loc))

	boundary := NextDayStart(Date(2024, 3, 1), loc)
	assert.True(t, instant.Before(boundary))
	assert.Equal(t, time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC), boundary.UTC())
	assert.Equal(t, time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), StartOfDay(Date(2024, 3, 1), loc).UTC())
}

func TestParse(t *testing.T) {
	d, err := Parse("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, 2, 29), d)

	_, err = Parse("2024-02-30")
	require.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(Date(2024, 3, 1), Date(2024, 3, 1)))
	assert.Equal(t, 29, DaysBetween(Date(2024, 2, 1), Date(2024, 3, 1)))
	assert.Equal(t, -1, DaysBetween(Date(2024, 3, 2), Date(2024, 3, 1)))
}
