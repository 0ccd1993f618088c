package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
type ChallengeRepository struct {
	conn *Connection
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(conn *Connection) *ChallengeRepository {
	return &ChallengeRepository{conn: conn}
}

// CreateAttempt stores an audit record. Only judged attempts reach this
// point, so the stored outcome is won or lost.
func (r *ChallengeRepository) CreateAttempt(ctx context.Context, a *challenge.Attempt) error {
	query := `
		INSERT INTO challenge_attempts (
			id, student_id, module_id, question, student_answer, model_answer,
			student_correct, model_correct, won, outcome, embedding_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	outcome := challenge.OutcomeLost
	if a.Won {
		outcome = challenge.OutcomeWon
	}

	_, err := r.conn.Exec(ctx, query,
		a.ID,
		a.StudentID,
		a.ModuleID,
		a.Question,
		a.StudentAnswer,
		a.ModelAnswer,
		a.StudentCorrect,
		a.ModelCorrect,
		a.Won,
		string(outcome),
		a.EmbeddingID,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge attempt: %w", err)
	}

	return nil
}

// GetAttemptsForStudent returns a student's attempts in one module, newest first.
func (r *ChallengeRepository) GetAttemptsForStudent(ctx context.Context, studentID, moduleID string) ([]*challenge.Attempt, error) {
	query := `
		SELECT id, student_id, module_id, question, student_answer, model_answer,
			   student_correct, model_correct, won, embedding_id, created_at
		FROM challenge_attempts
		WHERE student_id = $1 AND module_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*challenge.Attempt
	for rows.Next() {
		var a challenge.Attempt
		err := rows.Scan(
			&a.ID, &a.StudentID, &a.ModuleID, &a.Question, &a.StudentAnswer, &a.ModelAnswer,
			&a.StudentCorrect, &a.ModelCorrect, &a.Won, &a.EmbeddingID, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// GetProgress returns the progress for a (student, module) pair.
func (r *ChallengeRepository) GetProgress(ctx context.Context, studentID, moduleID string) (*challenge.Progress, error) {
	query := `
		SELECT student_id, module_id, win_count, target, completed, updated_at
		FROM challenge_progress
		WHERE student_id = $1 AND module_id = $2
	`

	var p challenge.Progress
	err := r.conn.QueryRow(ctx, query, studentID, moduleID).Scan(
		&p.StudentID, &p.ModuleID, &p.WinCount, &p.Target, &p.Completed, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewDomainError("challenge", "GetProgress", shared.ErrNotFound, "no progress for module")
		}
		return nil, fmt.Errorf("failed to scan challenge progress: %w", err)
	}

	return &p, nil
}

// GetOrCreateProgress returns the progress, creating zero progress lazily.
// The zero progress is not persisted until SaveProgress.
func (r *ChallengeRepository) GetOrCreateProgress(ctx context.Context, studentID, moduleID string, target int) (*challenge.Progress, error) {
	p, err := r.GetProgress(ctx, studentID, moduleID)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	return challenge.NewProgress(studentID, moduleID, target), nil
}

// SaveProgress persists the progress, inserting or updating on the key.
func (r *ChallengeRepository) SaveProgress(ctx context.Context, p *challenge.Progress) error {
	query := `
		INSERT INTO challenge_progress (student_id, module_id, win_count, target, completed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, module_id) DO UPDATE SET
			win_count = EXCLUDED.win_count,
			target = EXCLUDED.target,
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		p.StudentID,
		p.ModuleID,
		p.WinCount,
		p.Target,
		p.Completed,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save challenge progress: %w", err)
	}

	return nil
}

// GetAllProgress returns progress across all modules for a student.
func (r *ChallengeRepository) GetAllProgress(ctx context.Context, studentID string) ([]*challenge.Progress, error) {
	query := `
		SELECT student_id, module_id, win_count, target, completed, updated_at
		FROM challenge_progress
		WHERE student_id = $1
		ORDER BY module_id
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge progress: %w", err)
	}
	defer rows.Close()

	var all []*challenge.Progress
	for rows.Next() {
		var p challenge.Progress
		err := rows.Scan(&p.StudentID, &p.ModuleID, &p.WinCount, &p.Target, &p.Completed, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge progress: %w", err)
		}
		all = append(all, &p)
	}

	return all, rows.Err()
}
