package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetClock(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 7, 5, 3, 0, time.UTC)
	restore := SetClock(func() time.Time { return fixed })

	assert.Equal(t, fixed, Now())
	assert.Equal(t, "2024-03-09", CurrentDate())
	assert.Equal(t, "20240309_070503", Timestamp())
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Today())

	restore()
	assert.NotEqual(t, fixed, Now())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
	_, err = ParseDate("2023-13-01")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween("2024-01-01", "2024-01-04"))
	assert.Equal(t, -3, DaysBetween("2024-01-04", "2024-01-01"))
	assert.Equal(t, 1, DaysBetween("2024-02-28", "2024-02-29"))
	assert.Equal(t, 0, DaysBetween("bad", "2024-01-01"))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, ParseDuration("250ms", time.Second))
	assert.Equal(t, time.Second, ParseDuration("soon", time.Second))
}
