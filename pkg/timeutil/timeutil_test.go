package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateID_UsesUTC(t *testing.T) {
	// 23:30 in UTC+5 is 18:30 UTC the same day; 01:30 in UTC-5 is the
	// previous day in UTC.
	east := time.FixedZone("east", 5*3600)
	west := time.FixedZone("west", -5*3600)

	assert.Equal(t, "2026-03-02", DateID(time.Date(2026, 3, 2, 23, 30, 0, 0, east)))
	assert.Equal(t, "2026-03-03", DateID(time.Date(2026, 3, 2, 23, 30, 0, 0, west)))
}

func TestParseDateID_RoundTrip(t *testing.T) {
	parsed, err := ParseDateID("2026-03-02")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02", DateID(parsed))
	assert.Equal(t, time.UTC, parsed.Location())
}

func TestIsValidDateID(t *testing.T) {
	assert.True(t, IsValidDateID("2026-03-02"))
	assert.False(t, IsValidDateID("2026-3-2"))
	assert.False(t, IsValidDateID("03/02/2026"))
	assert.False(t, IsValidDateID(""))
	assert.False(t, IsValidDateID("2026-13-40"))
}

func TestStartOfDay(t *testing.T) {
	at := time.Date(2026, 3, 2, 17, 45, 12, 999, time.UTC)
	start := StartOfDay(at)

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), start)
}

func TestToday_IsValid(t *testing.T) {
	assert.True(t, IsValidDateID(Today()))
}
