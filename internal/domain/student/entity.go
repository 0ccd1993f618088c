// Package student contains the student identity model.
// Students are created lazily on first interaction with the engine and may
// optionally be linked to an external roster entry. Once linked, the roster
// identity is immutable.
package student

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ExternalID is the student's identifier on the chat platform (e.g. a
// Discord user ID). It is the key used on first interaction.
type ExternalID string

// IsValid checks that the external ID is non-empty and has no whitespace.
func (e ExternalID) IsValid() bool {
	s := string(e)
	return len(s) > 0 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation of the external ID.
func (e ExternalID) String() string {
	return string(e)
}

// RosterLogin is the student's login on the institutional roster.
type RosterLogin string

// IsValid checks the roster login format.
func (r RosterLogin) IsValid() bool {
	s := string(r)
	return len(s) >= 2 && len(s) <= 50 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation of the roster login.
func (r RosterLogin) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Student represents one learner known to the engine.
type Student struct {
	// ID is the internal UUID.
	ID string

	// ExternalID identifies the student on the chat platform.
	ExternalID ExternalID

	// Username is the display name captured at first interaction.
	Username string

	// RosterLogin links the student to the institutional roster.
	// Empty until linked; immutable once set.
	RosterLogin RosterLogin

	// CreatedAt is when the student was first seen.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// New creates a student from a first interaction.
func New(externalID ExternalID, username string) (*Student, error) {
	if !externalID.IsValid() {
		return nil, shared.ErrInvalidStudentID
	}

	now := time.Now().UTC()
	return &Student{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Username:   strings.TrimSpace(username),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// LinkRoster attaches the student to a roster entry.
// Returns ErrStudentAlreadyLinked if a roster login is already set.
func (s *Student) LinkRoster(login RosterLogin) error {
	if s.RosterLogin != "" {
		return shared.ErrStudentAlreadyLinked
	}
	if !login.IsValid() {
		return shared.NewDomainError("student", "Link", shared.ErrInvalidInput, "invalid roster login")
	}

	s.RosterLogin = login
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// IsLinked reports whether the student has a roster linkage.
func (s *Student) IsLinked() bool {
	return s.RosterLogin != ""
}
