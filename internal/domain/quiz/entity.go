// Package quiz contains the immutable record of one graded free-form answer.
package quiz

import (
	"strings"
	"time"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// Status is the outcome status of an evaluation attempt.
type Status string

const (
	// StatusGraded - the judge returned a valid evaluation and the mastery
	// aggregate was updated.
	StatusGraded Status = "graded"

	// StatusError - the judge failed after bounded retries. The attempt is
	// kept for audit but excluded from mastery aggregates.
	StatusError Status = "error"
)

// Attempt is the immutable record of one graded answer.
// Created by the evaluation pipeline, never mutated after creation.
type Attempt struct {
	// ID is the caller-supplied idempotency key.
	ID string

	// StudentID is the internal student UUID.
	StudentID string

	// ConceptID identifies the concept the question targeted.
	ConceptID string

	// Answer is the raw answer text as submitted.
	Answer string

	// Quality is the judge's 0-5 quality score. Zero for error attempts.
	Quality float64

	// Correct is the judge's correctness verdict. False for error attempts.
	Correct bool

	// Status is Graded or Error.
	Status Status

	// Feedback is the judge's free-text feedback, when available.
	Feedback string

	// CreatedAt is when the attempt was recorded.
	CreatedAt time.Time
}

// NewGraded creates a graded attempt from a validated judge evaluation.
func NewGraded(id, studentID, conceptID, answer string, quality float64, correct bool, feedback string) (*Attempt, error) {
	if err := validate(id, studentID, conceptID, answer); err != nil {
		return nil, err
	}
	if quality < 0 || quality > 5 {
		return nil, shared.ErrInvalidQualityScore
	}

	return &Attempt{
		ID:        id,
		StudentID: studentID,
		ConceptID: conceptID,
		Answer:    answer,
		Quality:   quality,
		Correct:   correct,
		Status:    StatusGraded,
		Feedback:  feedback,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewErrored creates an attempt recording a judge failure.
// Errored attempts never reach the mastery tracker.
func NewErrored(id, studentID, conceptID, answer string) (*Attempt, error) {
	if err := validate(id, studentID, conceptID, answer); err != nil {
		return nil, err
	}

	return &Attempt{
		ID:        id,
		StudentID: studentID,
		ConceptID: conceptID,
		Answer:    answer,
		Status:    StatusError,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func validate(id, studentID, conceptID, answer string) error {
	if strings.TrimSpace(id) == "" {
		return shared.NewDomainError("quiz", "Create", shared.ErrInvalidID, "attempt ID is required")
	}
	if studentID == "" {
		return shared.ErrInvalidStudentID
	}
	if conceptID == "" {
		return shared.ErrInvalidConceptID
	}
	if strings.TrimSpace(answer) == "" {
		return shared.ErrEmptyAnswer
	}
	return nil
}

// IsGraded reports whether the attempt counts toward mastery.
func (a *Attempt) IsGraded() bool {
	return a.Status == StatusGraded
}
