// Package timeutil provides small time helpers shared across the engine.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// DateLayout is the calendar date key format used for attendance overrides.
const DateLayout = "2006-01-02"

// DateID returns the calendar date key (YYYY-MM-DD) for a moment, in UTC.
func DateID(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Today returns the date key for the current day.
func Today() string {
	return DateID(time.Now())
}

// ParseDateID parses a YYYY-MM-DD key back into a UTC midnight time.
func ParseDateID(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// IsValidDateID reports whether s is a well-formed date key.
func IsValidDateID(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// StartOfDay truncates a moment to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
