package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DateLayout is the on-disk date format for every record field.
	DateLayout = "2006-01-02"
	// StampLayout is used for backup file suffixes and session directories.
	StampLayout = "20060102_150405"
)

// nowFunc is swapped out by tests that need a fixed "today".
var nowFunc = time.Now

// SetClock replaces the clock used by Now and Today and returns a function
// restoring the previous one.
func SetClock(fn func() time.Time) (restore func()) {
	prev := nowFunc
	nowFunc = fn
	return func() { nowFunc = prev }
}

// Now returns the current local time.
func Now() time.Time {
	return nowFunc()
}

// Today returns the current date at midnight UTC, comparable with ParseDate results.
func Today() time.Time {
	y, m, d := nowFunc().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CurrentDate returns today's date as YYYY-MM-DD.
func CurrentDate() string {
	return nowFunc().Format(DateLayout)
}

// Timestamp returns the current time formatted for backup names.
func Timestamp() string {
	return nowFunc().Format(StampLayout)
}

// ParseDate parses a YYYY-MM-DD date, rejecting days that do not exist.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DaysBetween returns the number of whole days from a to b. Unparseable
// input yields 0.
func DaysBetween(a, b string) int {
	from, err := ParseDate(a)
	if err != nil {
		return 0
	}
	to, err := ParseDate(b)
	if err != nil {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		// Use the global logger here, assuming logger might not be configured when this is called.
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}
