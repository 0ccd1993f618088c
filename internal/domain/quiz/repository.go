package quiz

import "context"

// Repository defines the persistence contract for quiz attempts.
// The attempt ID is a unique key; Create must reject duplicates so that a
// replayed evaluation can be detected and returned as-is.
type Repository interface {
	// Create stores a new attempt.
	// Returns shared.ErrAlreadyExists (wrapped) when the ID is taken.
	Create(ctx context.Context, a *Attempt) error

	// GetByID returns an attempt by its idempotency key.
	// Returns ErrAttemptNotFound if no such attempt exists.
	GetByID(ctx context.Context, id string) (*Attempt, error)

	// GetForStudentConcept returns a student's attempts on one concept,
	// newest first.
	GetForStudentConcept(ctx context.Context, studentID, conceptID string) ([]*Attempt, error)
}
