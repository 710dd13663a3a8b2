package timesheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWeekStart(t *testing.T) {
	// Wednesday 2025-01-15 14:30 UTC.
	wed := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

	cases := map[string]struct {
		in   time.Time
		day  int
		want time.Time
	}{
		"monday convention":   {wed, 1, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)},
		"sunday convention":   {wed, 0, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)},
		"saturday convention": {wed, 6, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)},
		"same day":            {wed, 3, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		"already normalized":  {time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), 1, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)},
		"non utc input": {
			time.Date(2025, 1, 13, 1, 0, 0, 0, time.FixedZone("CET", 2*3600)), 1,
			time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeWeekStart(tc.in, tc.day))
		})
	}
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Sunday", weekdayName(0))
	assert.Equal(t, "Friday", weekdayName(5))
	assert.Equal(t, "unknown", weekdayName(7))
}
