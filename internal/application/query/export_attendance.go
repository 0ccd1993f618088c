package query

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT ATTENDANCE QUERY
// Tidy CSV export: one row per (date, student), suitable for spreadsheet
// import without reshaping.
// ══════════════════════════════════════════════════════════════════════════════

// ExportAttendanceQuery requests an attendance export.
type ExportAttendanceQuery struct {
	// DateID narrows the export to one calendar date. Empty means all.
	DateID string
}

// Validate validates the query.
func (q ExportAttendanceQuery) Validate() error {
	if q.DateID != "" && !timeutil.IsValidDateID(q.DateID) {
		return shared.NewDomainError("attendance", "Export", shared.ErrValidation, fmt.Sprintf("invalid date_id %q", q.DateID))
	}
	return nil
}

// ExportAttendanceHandler handles the ExportAttendanceQuery.
type ExportAttendanceHandler struct {
	attendanceRepo attendance.Repository
}

// NewExportAttendanceHandler creates a new ExportAttendanceHandler.
func NewExportAttendanceHandler(attendanceRepo attendance.Repository) *ExportAttendanceHandler {
	return &ExportAttendanceHandler{attendanceRepo: attendanceRepo}
}

// Handle writes the export as CSV to w and returns the number of rows.
func (h *ExportAttendanceHandler) Handle(ctx context.Context, q ExportAttendanceQuery, w io.Writer) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	var (
		records []*attendance.Record
		err     error
	)
	if q.DateID != "" {
		records, err = h.attendanceRepo.GetRecordsByDate(ctx, q.DateID)
	} else {
		records, err = h.attendanceRepo.GetAllRecords(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("export_attendance: query failed: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"date", "student_id", "username", "status", "session_id", "submitted_at"}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("export_attendance: write failed: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.DateID,
			rec.StudentID,
			rec.Username,
			string(rec.Status),
			rec.SessionID,
			rec.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("export_attendance: write failed: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("export_attendance: flush failed: %w", err)
	}
	return len(records), nil
}
