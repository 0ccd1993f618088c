package mastery

import "context"

// Repository defines the persistence contract for mastery aggregates.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Get returns the aggregate for a (student, concept) pair.
	// Returns ErrMasteryNotFound if no attempt was ever graded.
	Get(ctx context.Context, studentID, conceptID string) (*Record, error)

	// GetOrCreate returns the aggregate, creating an empty one lazily.
	GetOrCreate(ctx context.Context, studentID, conceptID string) (*Record, error)

	// Save persists the aggregate (insert or update on the composite key).
	Save(ctx context.Context, r *Record) error

	// GetAllForStudent returns every aggregate the student has.
	GetAllForStudent(ctx context.Context, studentID string) ([]*Record, error)
}
