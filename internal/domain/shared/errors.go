// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrConflict        = errors.New("conflicting operation")

	// External service errors
	ErrUpstreamService    = errors.New("upstream service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrMalformedResponse  = errors.New("malformed upstream response")
	ErrTimeout            = errors.New("operation timeout")

	// Storage errors
	ErrStorage = errors.New("storage error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "mastery", "challenge", "attendance"
	Op      string // Operation that failed, e.g., "Record", "Submit"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	ErrStudentAlreadyLinked = NewDomainError("student", "Link", ErrConflict, "student already linked to a roster entry")
	ErrInvalidStudentID     = NewDomainError("student", "Validate", ErrInvalidID, "invalid student ID")
)

// Mastery domain errors
var (
	ErrMasteryNotFound     = NewDomainError("mastery", "Find", ErrNotFound, "mastery record not found")
	ErrInvalidQualityScore = NewDomainError("mastery", "Record", ErrValueOutOfRange, "quality score must be between 0 and 5")
	ErrInvalidConceptID    = NewDomainError("mastery", "Validate", ErrInvalidID, "invalid concept ID")
)

// Quiz domain errors
var (
	ErrAttemptNotFound = NewDomainError("quiz", "Find", ErrNotFound, "quiz attempt not found")
	ErrEmptyAnswer     = NewDomainError("quiz", "Evaluate", ErrEmptyValue, "answer text is empty")
	ErrJudgeFailed     = NewDomainError("quiz", "Evaluate", ErrUpstreamService, "judge did not return a valid evaluation")
)

// Challenge domain errors
var (
	ErrChallengeNotFound   = NewDomainError("challenge", "Find", ErrNotFound, "challenge attempt not found")
	ErrModuleCompleted     = NewDomainError("challenge", "Submit", ErrConflict, "challenge target already reached for module")
	ErrEmptyQuestion       = NewDomainError("challenge", "Submit", ErrEmptyValue, "question text is empty")
	ErrQuizModelFailed     = NewDomainError("challenge", "Submit", ErrUpstreamService, "quiz model call failed")
	ErrProgressExceedsGoal = NewDomainError("challenge", "RecordWin", ErrInvalidState, "win count cannot exceed target")
)

// Attendance domain errors
var (
	ErrSessionNotFound      = NewDomainError("attendance", "Find", ErrNotFound, "attendance session not found")
	ErrSessionAlreadyOpen   = NewDomainError("attendance", "Open", ErrConflict, "an attendance session is already open")
	ErrNoActiveSession      = NewDomainError("attendance", "Submit", ErrInvalidState, "no active attendance session")
	ErrInvalidCode          = NewDomainError("attendance", "Submit", ErrInvalidState, "attendance code is not valid")
	ErrInvalidCodeLength    = NewDomainError("attendance", "Validate", ErrValidation, "attendance code has the wrong length")
	ErrAlreadySubmitted     = NewDomainError("attendance", "Submit", ErrConflict, "attendance already submitted for this session")
	ErrInvalidRotationSetup = NewDomainError("attendance", "Open", ErrValidation, "rotation interval must be positive")
)

// External capability errors
var (
	ErrJudgeUnavailable     = NewDomainError("ai", "Judge", ErrServiceUnavailable, "judge capability is unavailable")
	ErrJudgeMalformed       = NewDomainError("ai", "Judge", ErrMalformedResponse, "judge returned a response that failed schema validation")
	ErrEmbeddingUnavailable = NewDomainError("ai", "Embed", ErrServiceUnavailable, "embedding capability is unavailable")
	ErrRetrievalUnavailable = NewDomainError("ai", "Retrieve", ErrServiceUnavailable, "retrieval capability is unavailable")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsUpstream checks if the error came from an external AI capability.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrTimeout)
}

// IsStorage checks if the error is a storage failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
