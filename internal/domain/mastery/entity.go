// Package mastery maintains per-student-per-concept performance aggregates
// and derives a discrete mastery level from them.
//
// The aggregate counters are monotonically non-decreasing; the level is a
// pure function of the aggregate and is recomputed on every mutation rather
// than stored as independently mutable state.
package mastery

import (
	"time"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// Level represents a discrete mastery level for one concept.
type Level string

const (
	// LevelNovice - no graded attempts yet.
	LevelNovice Level = "novice"

	// LevelLearning - attempts exist but thresholds are not met.
	LevelLearning Level = "learning"

	// LevelProficient - exactly one of the two quality thresholds is met.
	LevelProficient Level = "proficient"

	// LevelMastered - enough attempts with both thresholds met.
	LevelMastered Level = "mastered"
)

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// ParseLevel converts a stored string into a Level, defaulting to novice.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelLearning, LevelProficient, LevelMastered:
		return Level(s)
	default:
		return LevelNovice
	}
}

// Config holds the level thresholds. All three are configuration, not code.
type Config struct {
	// MinAttemptsForMastery is how many graded attempts are required before
	// a student can advance past Learning.
	MinAttemptsForMastery int

	// QualityThreshold is the minimum average quality score (0-5 scale).
	QualityThreshold float64

	// CorrectRatioThreshold is the minimum fraction of correct attempts.
	CorrectRatioThreshold float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinAttemptsForMastery: 3,
		QualityThreshold:      3.5,
		CorrectRatioThreshold: 0.7,
	}
}

// ComputeLevel derives the mastery level from raw aggregate values.
// It is a pure function: the same inputs always yield the same level.
func ComputeLevel(cfg Config, attempts, correctCount int, qualitySum float64) Level {
	if attempts == 0 {
		return LevelNovice
	}
	if attempts < cfg.MinAttemptsForMastery {
		return LevelLearning
	}

	avgQuality := qualitySum / float64(attempts)
	correctRatio := float64(correctCount) / float64(attempts)

	qualityOK := avgQuality >= cfg.QualityThreshold
	ratioOK := correctRatio >= cfg.CorrectRatioThreshold

	switch {
	case qualityOK && ratioOK:
		return LevelMastered
	case qualityOK || ratioOK:
		return LevelProficient
	default:
		return LevelLearning
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Record is the aggregate of all graded attempts for one (student, concept)
// pair. Created lazily on the first graded attempt, never deleted.
type Record struct {
	// StudentID is the internal student UUID.
	StudentID string

	// ConceptID identifies the concept within the course configuration.
	ConceptID string

	// Attempts is the total number of graded attempts.
	Attempts int

	// QualitySum is the sum of quality scores across attempts.
	QualitySum float64

	// CorrectCount is how many attempts were judged correct.
	CorrectCount int

	// Level is derived from the counters above via ComputeLevel.
	Level Level

	// UpdatedAt is when the aggregate last changed.
	UpdatedAt time.Time
}

// NewRecord creates an empty aggregate for a pair.
func NewRecord(studentID, conceptID string) *Record {
	return &Record{
		StudentID: studentID,
		ConceptID: conceptID,
		Level:     LevelNovice,
		UpdatedAt: time.Now().UTC(),
	}
}

// Apply folds one graded attempt into the aggregate and recomputes the level.
// Counters only ever increase; there is no demotion path.
func (r *Record) Apply(cfg Config, quality float64, correct bool) error {
	if quality < 0 || quality > 5 {
		return shared.ErrInvalidQualityScore
	}

	r.Attempts++
	r.QualitySum += quality
	if correct {
		r.CorrectCount++
	}
	r.Level = ComputeLevel(cfg, r.Attempts, r.CorrectCount, r.QualitySum)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// AvgQuality returns the average quality score, 0 for an empty aggregate.
func (r *Record) AvgQuality() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return r.QualitySum / float64(r.Attempts)
}

// CorrectRatio returns the fraction of correct attempts, 0 for an empty
// aggregate.
func (r *Record) CorrectRatio() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.CorrectCount) / float64(r.Attempts)
}
