package attendance

import "context"

// Repository defines the persistence contract for attendance.
// Session submissions are flushed in one batch at close; administrative
// overrides are idempotent upserts keyed by (student, date).
type Repository interface {
	// SaveSession persists session metadata (on open and on close).
	SaveSession(ctx context.Context, s *Session) error

	// SaveRecords durably stores the session's accumulated records.
	// The insert is idempotent on (session_id, student_id).
	SaveRecords(ctx context.Context, records []*Record) error

	// GetSessionRecords returns all records for a session, oldest first.
	GetSessionRecords(ctx context.Context, sessionID string) ([]*Record, error)

	// GetRecordsByDate returns all records for a calendar date.
	GetRecordsByDate(ctx context.Context, dateID string) ([]*Record, error)

	// GetAllRecords returns every record, ordered by date then student.
	GetAllRecords(ctx context.Context) ([]*Record, error)

	// UpsertOverride applies an administrative override keyed by
	// (student_id, date_id). Applying the same override twice yields the
	// same final state.
	UpsertOverride(ctx context.Context, rec *Record) error

	// RemoveRecord deletes the record for a (student, date) key.
	// Removal is idempotent: deleting an absent record is a no-op.
	RemoveRecord(ctx context.Context, studentID, dateID string) error
}
