package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MasteryRepository implements mastery.Repository for PostgreSQL.
type MasteryRepository struct {
	conn *Connection
}

// NewMasteryRepository creates a new MasteryRepository.
func NewMasteryRepository(conn *Connection) *MasteryRepository {
	return &MasteryRepository{conn: conn}
}

// Get returns the aggregate for a (student, concept) pair.
func (r *MasteryRepository) Get(ctx context.Context, studentID, conceptID string) (*mastery.Record, error) {
	query := `
		SELECT student_id, concept_id, attempts, correct_count, quality_sum, level, updated_at
		FROM mastery_records
		WHERE student_id = $1 AND concept_id = $2
	`

	return r.scanRecord(r.conn.QueryRow(ctx, query, studentID, conceptID))
}

// GetOrCreate returns the aggregate, creating an empty one lazily. The empty
// aggregate is not persisted until Save.
func (r *MasteryRepository) GetOrCreate(ctx context.Context, studentID, conceptID string) (*mastery.Record, error) {
	rec, err := r.Get(ctx, studentID, conceptID)
	if err == nil {
		return rec, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	return mastery.NewRecord(studentID, conceptID), nil
}

// Save persists the aggregate, inserting or updating on the composite key.
func (r *MasteryRepository) Save(ctx context.Context, rec *mastery.Record) error {
	query := `
		INSERT INTO mastery_records (student_id, concept_id, attempts, correct_count, quality_sum, level, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, concept_id) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			correct_count = EXCLUDED.correct_count,
			quality_sum = EXCLUDED.quality_sum,
			level = EXCLUDED.level,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		rec.StudentID,
		rec.ConceptID,
		rec.Attempts,
		rec.CorrectCount,
		rec.QualitySum,
		rec.Level.String(),
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save mastery record: %w", err)
	}

	return nil
}

// GetAllForStudent returns every aggregate the student has, ordered by concept.
func (r *MasteryRepository) GetAllForStudent(ctx context.Context, studentID string) ([]*mastery.Record, error) {
	query := `
		SELECT student_id, concept_id, attempts, correct_count, quality_sum, level, updated_at
		FROM mastery_records
		WHERE student_id = $1
		ORDER BY concept_id
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mastery records: %w", err)
	}
	defer rows.Close()

	var records []*mastery.Record
	for rows.Next() {
		rec, err := r.scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *MasteryRepository) scanRecord(row pgx.Row) (*mastery.Record, error) {
	var (
		rec   mastery.Record
		level string
	)

	err := row.Scan(&rec.StudentID, &rec.ConceptID, &rec.Attempts, &rec.CorrectCount, &rec.QualitySum, &level, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrMasteryNotFound
		}
		return nil, fmt.Errorf("failed to scan mastery record: %w", err)
	}

	rec.Level = mastery.ParseLevel(level)
	return &rec, nil
}

func (r *MasteryRepository) scanRecordRows(rows pgx.Rows) (*mastery.Record, error) {
	var (
		rec   mastery.Record
		level string
	)

	err := rows.Scan(&rec.StudentID, &rec.ConceptID, &rec.Attempts, &rec.CorrectCount, &rec.QualitySum, &level, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan mastery record: %w", err)
	}

	rec.Level = mastery.ParseLevel(level)
	return &rec, nil
}
