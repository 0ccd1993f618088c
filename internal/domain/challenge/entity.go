// Package challenge contains the AI-stumping game state: immutable attempt
// records and the per-(student, module) win progress state machine.
//
// A win is an attempt where the student's answer is judged correct while the
// quiz model's answer to the same question is judged incorrect.
package challenge

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the result of one challenge submission.
type Outcome string

const (
	// OutcomeWon - student correct, quiz model incorrect.
	OutcomeWon Outcome = "won"

	// OutcomeLost - any other judged combination.
	OutcomeLost Outcome = "lost"

	// OutcomeDuplicate - the question is too similar to a previously won
	// question in the same module. No judge call is made.
	OutcomeDuplicate Outcome = "duplicate"

	// OutcomeAlreadyCompleted - the student already reached the win target
	// for the module. Checked before any external call.
	OutcomeAlreadyCompleted Outcome = "already_completed"

	// OutcomeTransientError - the quiz model call failed outright; nothing
	// was persisted and the student may retry.
	OutcomeTransientError Outcome = "transient_error"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT
// ══════════════════════════════════════════════════════════════════════════════

// Attempt is the immutable audit record of one challenge submission that
// reached the judging stage. Duplicates and transient errors are not
// persisted.
type Attempt struct {
	// ID is the internal UUID.
	ID string

	// StudentID is the internal student UUID.
	StudentID string

	// ModuleID scopes the challenge to one course module.
	ModuleID string

	// Question is the student-authored question text.
	Question string

	// StudentAnswer is the answer the student claims is correct.
	StudentAnswer string

	// ModelAnswer is what the quiz model answered.
	ModelAnswer string

	// StudentCorrect is the judge's verdict on the student's answer.
	StudentCorrect bool

	// ModelCorrect is the judge's verdict on the quiz model's answer.
	ModelCorrect bool

	// Won is StudentCorrect && !ModelCorrect.
	Won bool

	// EmbeddingID references the stored question embedding. Set only on
	// won attempts, since only won questions block future reuse.
	EmbeddingID string

	// CreatedAt is when the attempt was recorded.
	CreatedAt time.Time
}

// NewAttempt builds an audit record from the two judgments.
func NewAttempt(studentID, moduleID, question, studentAnswer, modelAnswer string, studentCorrect, modelCorrect bool) (*Attempt, error) {
	if studentID == "" {
		return nil, shared.ErrInvalidStudentID
	}
	if moduleID == "" {
		return nil, shared.NewDomainError("challenge", "Submit", shared.ErrInvalidID, "module ID is required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, shared.ErrEmptyQuestion
	}

	return &Attempt{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		ModuleID:       moduleID,
		Question:       question,
		StudentAnswer:  studentAnswer,
		ModelAnswer:    modelAnswer,
		StudentCorrect: studentCorrect,
		ModelCorrect:   modelCorrect,
		Won:            studentCorrect && !modelCorrect,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STATE MACHINE
// NotStarted -> InProgress -> Completed. Completed is terminal; the win
// counter is monotonic and never exceeds the target.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressState names the state of a student's progress in one module.
type ProgressState string

const (
	StateNotStarted ProgressState = "not_started"
	StateInProgress ProgressState = "in_progress"
	StateCompleted  ProgressState = "completed"
)

// Progress tracks wins toward the per-module target.
type Progress struct {
	// StudentID is the internal student UUID.
	StudentID string

	// ModuleID scopes the progress.
	ModuleID string

	// WinCount is the number of won attempts. Monotonic.
	WinCount int

	// Target is how many wins complete the module.
	Target int

	// Completed is true exactly when WinCount >= Target.
	Completed bool

	// UpdatedAt is when the progress last changed.
	UpdatedAt time.Time
}

// NewProgress creates zero progress toward the given target.
func NewProgress(studentID, moduleID string, target int) *Progress {
	if target <= 0 {
		target = 1
	}
	return &Progress{
		StudentID: studentID,
		ModuleID:  moduleID,
		Target:    target,
		UpdatedAt: time.Now().UTC(),
	}
}

// State derives the progress state from the counters.
func (p *Progress) State() ProgressState {
	switch {
	case p.Completed:
		return StateCompleted
	case p.WinCount > 0:
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// RecordWin increments the win counter and fires the Completed transition
// exactly when the counter reaches the target. Returns ErrModuleCompleted
// when called on a completed progress, so the counter can never pass the
// target.
func (p *Progress) RecordWin() error {
	if p.Completed {
		return shared.ErrModuleCompleted
	}
	if p.WinCount >= p.Target {
		// A stored row at the target without the Completed flag is corrupt.
		// Refuse to grow it past the goal.
		return shared.ErrProgressExceedsGoal
	}

	p.WinCount++
	if p.WinCount >= p.Target {
		p.Completed = true
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}
