package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (id, external_id, username, roster_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.ExternalID.String(),
		s.Username,
		s.RosterLogin.String(),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `
		SELECT id, external_id, username, roster_login, created_at, updated_at
		FROM students
		WHERE id = $1
	`

	return r.scanStudent(r.conn.QueryRow(ctx, query, id))
}

// GetByExternalID returns a student by platform ID.
func (r *StudentRepository) GetByExternalID(ctx context.Context, externalID student.ExternalID) (*student.Student, error) {
	query := `
		SELECT id, external_id, username, roster_login, created_at, updated_at
		FROM students
		WHERE external_id = $1
	`

	return r.scanStudent(r.conn.QueryRow(ctx, query, externalID.String()))
}

// GetOrCreate returns the student for the external ID, creating one on first
// interaction. A concurrent first interaction loses the insert race and reads
// the winner's row.
func (r *StudentRepository) GetOrCreate(ctx context.Context, externalID student.ExternalID, username string) (*student.Student, error) {
	existing, err := r.GetByExternalID(ctx, externalID)
	if err == nil {
		return existing, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	created, err := student.New(externalID, username)
	if err != nil {
		return nil, err
	}

	if err := r.Create(ctx, created); err != nil {
		if shared.IsConflict(err) {
			return r.GetByExternalID(ctx, externalID)
		}
		return nil, err
	}

	return created, nil
}

// Update persists changes to a student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			username = $1,
			roster_login = $2,
			updated_at = $3
		WHERE id = $4
	`

	result, err := r.conn.Exec(ctx, query,
		s.Username,
		s.RosterLogin.String(),
		time.Now().UTC(),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}

	return nil
}

// GetAll returns every known student, ordered by creation time.
func (r *StudentRepository) GetAll(ctx context.Context) ([]*student.Student, error) {
	query := `
		SELECT id, external_id, username, roster_login, created_at, updated_at
		FROM students
		ORDER BY created_at
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		s, err := r.scanStudentRow(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}

	return students, rows.Err()
}

func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s           student.Student
		externalID  string
		rosterLogin string
	)

	err := row.Scan(&s.ID, &externalID, &s.Username, &rosterLogin, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.ExternalID = student.ExternalID(externalID)
	s.RosterLogin = student.RosterLogin(rosterLogin)
	return &s, nil
}

func (r *StudentRepository) scanStudentRow(rows pgx.Rows) (*student.Student, error) {
	var (
		s           student.Student
		externalID  string
		rosterLogin string
	)

	err := rows.Scan(&s.ID, &externalID, &s.Username, &rosterLogin, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.ExternalID = student.ExternalID(externalID)
	s.RosterLogin = student.RosterLogin(rosterLogin)
	return &s, nil
}
