package datekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2025-06-15", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-6-15", false},
		{"2025-06-15T00:00:00Z", false},
		{"", false},
		{"15-06-2025", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestBefore(t *testing.T) {
	require.True(t, Before("2024-12-31", "2025-01-01"))
	require.False(t, Before("2025-06-10", "2025-06-10"))
	require.False(t, Before("2025-06-11", "2025-06-10"))
}

func TestClock_TodayUsesZone(t *testing.T) {
	// 20:00 UTC on the 14th is already the 15th at UTC+05:30
	instant := time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC)
	ist := time.FixedZone("IST", 5*3600+1800)

	c := NewClockAt(ist, func() time.Time { return instant })
	require.Equal(t, "2025-06-15", c.Today())
	require.Equal(t, instant, c.Now())

	utc := NewClockAt(nil, func() time.Time { return instant })
	require.Equal(t, "2025-06-14", utc.Today())
}

func TestClock_ZeroValue(t *testing.T) {
	var c Clock
	require.Equal(t, time.UTC, c.Location())
	require.Len(t, c.Today(), len(Layout))
}
