package challenge

import "context"

// Repository defines the persistence contract for challenge attempts and
// per-module progress.
type Repository interface {
	// CreateAttempt stores an audit record.
	CreateAttempt(ctx context.Context, a *Attempt) error

	// GetAttemptsForStudent returns a student's attempts in one module,
	// newest first.
	GetAttemptsForStudent(ctx context.Context, studentID, moduleID string) ([]*Attempt, error)

	// GetProgress returns the progress for a (student, module) pair.
	// Returns shared.ErrNotFound (wrapped) when no attempt was ever won.
	GetProgress(ctx context.Context, studentID, moduleID string) (*Progress, error)

	// GetOrCreateProgress returns the progress, creating zero progress with
	// the given target lazily.
	GetOrCreateProgress(ctx context.Context, studentID, moduleID string, target int) (*Progress, error)

	// SaveProgress persists the progress (insert or update on the key).
	SaveProgress(ctx context.Context, p *Progress) error

	// GetAllProgress returns progress across all modules for a student.
	GetAllProgress(ctx context.Context, studentID string) ([]*Progress, error)
}

// VectorIndex is the similarity search contract for won questions.
// Vectors are scoped by module so a question reused across modules is not
// flagged.
type VectorIndex interface {
	// Upsert stores a question embedding under the given ID.
	Upsert(ctx context.Context, id, moduleID, question string, vector []float64) error

	// QueryNearest returns the highest cosine similarity against stored
	// vectors in the module, along with the matched question text.
	// ok is false when the module has no stored vectors.
	QueryNearest(ctx context.Context, moduleID string, vector []float64) (question string, similarity float64, ok bool, err error)
}
