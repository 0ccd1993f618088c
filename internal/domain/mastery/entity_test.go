package mastery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeLevel(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name         string
		attempts     int
		correctCount int
		qualitySum   float64
		want         Level
	}{
		{"no attempts", 0, 0, 0, LevelNovice},
		{"one attempt", 1, 1, 5.0, LevelLearning},
		{"two attempts", 2, 2, 10.0, LevelLearning},
		{"both thresholds at boundary", 3, 3, 10.5, LevelMastered}, // avg 3.5, ratio 1.0
		{"quality just below boundary", 3, 3, 10.2, LevelProficient}, // avg 3.4, ratio 1.0
		{"ratio exactly at boundary", 10, 7, 35.0, LevelMastered},    // avg 3.5, ratio 0.7
		{"ratio just below boundary", 10, 6, 35.0, LevelProficient},  // avg 3.5, ratio 0.6
		{"only quality met", 4, 1, 16.0, LevelProficient},            // avg 4.0, ratio 0.25
		{"only ratio met", 4, 4, 8.0, LevelProficient},               // avg 2.0, ratio 1.0
		{"neither met", 5, 2, 10.0, LevelLearning},                   // avg 2.0, ratio 0.4
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLevel(cfg, tt.attempts, tt.correctCount, tt.qualitySum)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeLevel_IsPure(t *testing.T) {
	cfg := DefaultConfig()
	first := ComputeLevel(cfg, 7, 5, 24.5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeLevel(cfg, 7, 5, 24.5))
	}
}

func TestRecord_Apply(t *testing.T) {
	cfg := DefaultConfig()
	rec := NewRecord("stu-1", "recursion")

	assert.Equal(t, LevelNovice, rec.Level)
	assert.Equal(t, 0, rec.Attempts)

	err := rec.Apply(cfg, 4.0, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, 1, rec.CorrectCount)
	assert.InDelta(t, 4.0, rec.QualitySum, 1e-9)
	assert.Equal(t, LevelLearning, rec.Level)

	err = rec.Apply(cfg, 4.0, true)
	assert.NoError(t, err)
	err = rec.Apply(cfg, 4.0, true)
	assert.NoError(t, err)

	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, LevelMastered, rec.Level)
	assert.InDelta(t, 4.0, rec.AvgQuality(), 1e-9)
	assert.InDelta(t, 1.0, rec.CorrectRatio(), 1e-9)
}

func TestRecord_Apply_RejectsOutOfRangeQuality(t *testing.T) {
	cfg := DefaultConfig()
	rec := NewRecord("stu-1", "recursion")

	err := rec.Apply(cfg, -0.1, true)
	assert.Error(t, err)
	err = rec.Apply(cfg, 5.1, false)
	assert.Error(t, err)

	// Rejected attempts never touch the counters.
	assert.Equal(t, 0, rec.Attempts)
	assert.Equal(t, LevelNovice, rec.Level)
}

func TestRecord_CountersAreMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	rec := NewRecord("stu-1", "pointers")

	prevAttempts := 0
	for i := 0; i < 20; i++ {
		quality := float64(i % 6)
		err := rec.Apply(cfg, quality, i%3 == 0)
		assert.NoError(t, err)
		assert.Greater(t, rec.Attempts, prevAttempts)
		prevAttempts = rec.Attempts
	}
	assert.Equal(t, 20, rec.Attempts)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelNovice, ParseLevel("novice"))
	assert.Equal(t, LevelLearning, ParseLevel("learning"))
	assert.Equal(t, LevelProficient, ParseLevel("proficient"))
	assert.Equal(t, LevelMastered, ParseLevel("mastered"))
	assert.Equal(t, LevelNovice, ParseLevel("garbage"))
	assert.Equal(t, LevelNovice, ParseLevel(""))
}
