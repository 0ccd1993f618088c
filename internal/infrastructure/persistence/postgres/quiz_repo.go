package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chibi-hub/chibi-engine/internal/domain/quiz"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuizRepository implements quiz.Repository for PostgreSQL.
// The attempt_id primary key carries the pipeline's idempotency guarantee.
type QuizRepository struct {
	conn *Connection
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(conn *Connection) *QuizRepository {
	return &QuizRepository{conn: conn}
}

// Create stores a new attempt. Duplicate IDs are rejected.
func (r *QuizRepository) Create(ctx context.Context, a *quiz.Attempt) error {
	query := `
		INSERT INTO quiz_attempts (attempt_id, student_id, concept_id, answer, quality, correct, status, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		a.ID,
		a.StudentID,
		a.ConceptID,
		a.Answer,
		a.Quality,
		a.Correct,
		string(a.Status),
		a.Feedback,
		a.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("quiz", "Create", shared.ErrAlreadyExists, "attempt ID already recorded", err)
		}
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}

	return nil
}

// GetByID returns an attempt by its idempotency key.
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*quiz.Attempt, error) {
	query := `
		SELECT attempt_id, student_id, concept_id, answer, quality, correct, status, feedback, created_at
		FROM quiz_attempts
		WHERE attempt_id = $1
	`

	var (
		a      quiz.Attempt
		status string
	)
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.StudentID, &a.ConceptID, &a.Answer,
		&a.Quality, &a.Correct, &status, &a.Feedback, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to scan quiz attempt: %w", err)
	}

	a.Status = quiz.Status(status)
	return &a, nil
}

// GetForStudentConcept returns a student's attempts on one concept, newest first.
func (r *QuizRepository) GetForStudentConcept(ctx context.Context, studentID, conceptID string) ([]*quiz.Attempt, error) {
	query := `
		SELECT attempt_id, student_id, concept_id, answer, quality, correct, status, feedback, created_at
		FROM quiz_attempts
		WHERE student_id = $1 AND concept_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*quiz.Attempt
	for rows.Next() {
		var (
			a      quiz.Attempt
			status string
		)
		err := rows.Scan(
			&a.ID, &a.StudentID, &a.ConceptID, &a.Answer,
			&a.Quality, &a.Correct, &status, &a.Feedback, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz attempt: %w", err)
		}
		a.Status = quiz.Status(status)
		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}
