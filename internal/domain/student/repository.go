package student

import "context"

// Repository defines the persistence contract for students.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new student.
	// Returns ErrStudentAlreadyExists if the external ID is already known.
	Create(ctx context.Context, s *Student) error

	// GetByID returns a student by internal ID.
	// Returns ErrStudentNotFound if no such student exists.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByExternalID returns a student by platform ID.
	// Returns ErrStudentNotFound if no such student exists.
	GetByExternalID(ctx context.Context, externalID ExternalID) (*Student, error)

	// GetOrCreate returns the student for the external ID, creating one on
	// first interaction.
	GetOrCreate(ctx context.Context, externalID ExternalID, username string) (*Student, error)

	// Update persists changes to a student (roster linkage, username).
	// Returns ErrStudentNotFound if no such student exists.
	Update(ctx context.Context, s *Student) error

	// GetAll returns every known student, ordered by creation time.
	GetAll(ctx context.Context) ([]*Student, error)
}
