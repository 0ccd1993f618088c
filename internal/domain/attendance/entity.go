// Package attendance contains the classroom attendance model: a rotating-code
// session, per-student submission records, and administrative overrides.
package attendance

import (
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session is one rotating-code attendance window. At most one session is
// active per scope at any time, and at any instant exactly one code is valid
// for it.
type Session struct {
	// ID is the internal UUID.
	ID string

	// CurrentCode is the code that is valid right now.
	CurrentCode string

	// CodeGeneratedAt is when the current code was installed.
	CodeGeneratedAt time.Time

	// RotationInterval is how often the code is replaced.
	RotationInterval time.Duration

	// CodeLength is the length of generated codes.
	CodeLength int

	// Active is false once the session has been closed.
	Active bool

	// OpenedAt is when the session was opened.
	OpenedAt time.Time

	// ClosedAt is when the session was closed, zero while open.
	ClosedAt time.Time
}

// NewSession opens a session with its initial code already installed.
func NewSession(initialCode string, rotationInterval time.Duration, codeLength int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:               uuid.NewString(),
		CurrentCode:      initialCode,
		CodeGeneratedAt:  now,
		RotationInterval: rotationInterval,
		CodeLength:       codeLength,
		Active:           true,
		OpenedAt:         now,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Status is the recorded attendance status.
type Status string

const (
	// StatusPresent - submitted a valid code during the session.
	StatusPresent Status = "present"

	// StatusExcused - an admin excused the absence.
	StatusExcused Status = "excused"

	// StatusLate - submitted a valid code after the on-time window.
	StatusLate Status = "late"

	// StatusManual - an admin marked the student present by hand.
	StatusManual Status = "manual"
)

// ParseStatus converts a stored string into a Status, defaulting to present.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusExcused, StatusLate, StatusManual:
		return Status(s)
	default:
		return StatusPresent
	}
}

// Record is one student's attendance for one session (or, for overrides, for
// one date). Exactly one record exists per (session, student); overrides
// update the status in place and never duplicate the key.
type Record struct {
	// SessionID is the session the record belongs to. Synthetic for
	// administrative overrides applied outside a session.
	SessionID string

	// StudentID is the internal student UUID.
	StudentID string

	// Username is the display name captured at submission time.
	Username string

	// Code is the code the student submitted, empty for overrides.
	Code string

	// Status is the attendance status.
	Status Status

	// DateID is the calendar date key (YYYY-MM-DD) used by overrides.
	DateID string

	// SubmittedAt is when the record was created.
	SubmittedAt time.Time
}
