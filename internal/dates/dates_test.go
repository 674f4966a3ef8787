package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"rfc3339", "2024-03-01T08:30:00Z", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), true},
		{"millis", "2024-03-01T08:30:00.000+08:00", time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC), true},
		{"date only", "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, shanghai), true},
		{"no offset", "2024-03-01T09:15", time.Date(2024, 3, 1, 9, 15, 0, 0, shanghai), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in, shanghai)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestKeyOfUsesZone(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	key, ok := KeyOf("2024-03-01T20:00:00Z", shanghai)
	require.True(t, ok)
	assert.Equal(t, "2024-03-02", key)

	key, ok = KeyOf("2024-03-01", shanghai)
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", key)

	_, ok = KeyOf("", shanghai)
	assert.False(t, ok)
}

func TestWeekStart(t *testing.T) {
	// 2024-03-06 is a Wednesday.
	now := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)

	monday := WeekStart(now, time.UTC, time.Monday)
	assert.Equal(t, "2024-03-04", monday.Format(DayLayout))

	sunday := WeekStart(now, time.UTC, time.Sunday)
	assert.Equal(t, "2024-03-03", sunday.Format(DayLayout))

	onSunday := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-04", WeekStart(onSunday, time.UTC, time.Monday).Format(DayLayout))
}

func TestDaysRemaining(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 10000, DaysRemaining(start, 10000, start))
	assert.Equal(t, 9999, DaysRemaining(start, 10000, start.Add(2*time.Hour)))
	assert.Equal(t, 9634, DaysRemaining(start, 10000, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	d, err = ParseWeekday("mon")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday("")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestWeekdayLabel(t *testing.T) {
	assert.Equal(t, "周三", WeekdayLabel(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))
}
