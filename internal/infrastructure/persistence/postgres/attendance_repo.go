package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements attendance.Repository for PostgreSQL.
// Session submissions arrive in one batch at close; overrides are upserts
// keyed by (student_id, date_id).
type AttendanceRepository struct {
	conn *Connection
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(conn *Connection) *AttendanceRepository {
	return &AttendanceRepository{conn: conn}
}

// SaveSession persists session metadata.
func (r *AttendanceRepository) SaveSession(ctx context.Context, s *attendance.Session) error {
	query := `
		INSERT INTO attendance_sessions (id, opened_at, closed_at, rotation_interval_seconds, code_length)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET closed_at = EXCLUDED.closed_at
	`

	var closedAt *time.Time
	if !s.ClosedAt.IsZero() {
		closedAt = &s.ClosedAt
	}

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.OpenedAt,
		closedAt,
		int(s.RotationInterval.Seconds()),
		s.CodeLength,
	)
	if err != nil {
		return fmt.Errorf("failed to save attendance session: %w", err)
	}

	return nil
}

// SaveRecords durably stores the session's accumulated records in one
// transaction. A record whose (student, date) key already exists, whether
// from an earlier flush or from an override, is left untouched.
func (r *AttendanceRepository) SaveRecords(ctx context.Context, records []*attendance.Record) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO attendance_records (session_id, student_id, username, code, status, date_id, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, date_id) DO NOTHING
	`

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, rec := range records {
			_, err := tx.Exec(ctx, query,
				rec.SessionID,
				rec.StudentID,
				rec.Username,
				rec.Code,
				string(rec.Status),
				rec.DateID,
				rec.SubmittedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to save attendance record: %w", err)
			}
		}
		return nil
	})
}

// GetSessionRecords returns all records for a session, oldest first.
func (r *AttendanceRepository) GetSessionRecords(ctx context.Context, sessionID string) ([]*attendance.Record, error) {
	query := `
		SELECT session_id, student_id, username, code, status, date_id, submitted_at
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY submitted_at
	`

	return r.queryRecords(ctx, query, sessionID)
}

// GetRecordsByDate returns all records for a calendar date.
func (r *AttendanceRepository) GetRecordsByDate(ctx context.Context, dateID string) ([]*attendance.Record, error) {
	query := `
		SELECT session_id, student_id, username, code, status, date_id, submitted_at
		FROM attendance_records
		WHERE date_id = $1
		ORDER BY submitted_at
	`

	return r.queryRecords(ctx, query, dateID)
}

// GetAllRecords returns every record, ordered by date then student.
func (r *AttendanceRepository) GetAllRecords(ctx context.Context) ([]*attendance.Record, error) {
	query := `
		SELECT session_id, student_id, username, code, status, date_id, submitted_at
		FROM attendance_records
		ORDER BY date_id, student_id
	`

	return r.queryRecords(ctx, query)
}

// UpsertOverride applies an administrative override keyed by
// (student_id, date_id).
func (r *AttendanceRepository) UpsertOverride(ctx context.Context, rec *attendance.Record) error {
	query := `
		INSERT INTO attendance_records (session_id, student_id, username, code, status, date_id, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, date_id) DO UPDATE SET
			status = EXCLUDED.status,
			username = EXCLUDED.username,
			submitted_at = EXCLUDED.submitted_at
	`

	_, err := r.conn.Exec(ctx, query,
		rec.SessionID,
		rec.StudentID,
		rec.Username,
		rec.Code,
		string(rec.Status),
		rec.DateID,
		rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance override: %w", err)
	}

	return nil
}

// RemoveRecord deletes the record for a (student, date) key. Removal is
// idempotent: deleting an absent record is a no-op.
func (r *AttendanceRepository) RemoveRecord(ctx context.Context, studentID, dateID string) error {
	query := `
		DELETE FROM attendance_records
		WHERE student_id = $1 AND date_id = $2
	`

	if _, err := r.conn.Exec(ctx, query, studentID, dateID); err != nil {
		return fmt.Errorf("failed to remove attendance record: %w", err)
	}

	return nil
}

func (r *AttendanceRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*attendance.Record, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []*attendance.Record
	for rows.Next() {
		var (
			rec    attendance.Record
			status string
		)
		err := rows.Scan(&rec.SessionID, &rec.StudentID, &rec.Username, &rec.Code, &status, &rec.DateID, &rec.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		rec.Status = attendance.ParseStatus(status)
		records = append(records, &rec)
	}

	return records, rows.Err()
}
