package command

import (
	"context"
	"fmt"
	"time"

	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
	"github.com/chibi-hub/chibi-engine/pkg/logger"
	"github.com/chibi-hub/chibi-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE OVERRIDE COMMANDS
// Administrative corrections keyed by (student, date). An override is an
// idempotent upsert: applying the same override twice yields the same final
// state, and it works whether or not the student submitted during a session
// that day.
// ══════════════════════════════════════════════════════════════════════════════

// OverrideAttendanceCommand sets a student's status for one date.
type OverrideAttendanceCommand struct {
	// ExternalStudentID identifies the student on the chat platform.
	ExternalStudentID string

	// Username is the display name, used on first interaction.
	Username string

	// DateID is the calendar date key (YYYY-MM-DD). Empty means today.
	DateID string

	// Status is the status to set: excused or manual.
	Status attendance.Status
}

// Validate validates the command.
func (c OverrideAttendanceCommand) Validate() error {
	if c.ExternalStudentID == "" {
		return shared.NewDomainError("attendance", "Override", shared.ErrValidation, "external_student_id is required")
	}
	if c.DateID != "" && !timeutil.IsValidDateID(c.DateID) {
		return shared.NewDomainError("attendance", "Override", shared.ErrValidation, fmt.Sprintf("invalid date_id %q", c.DateID))
	}
	if c.Status != attendance.StatusExcused && c.Status != attendance.StatusManual {
		return shared.NewDomainError("attendance", "Override", shared.ErrValidation, fmt.Sprintf("status must be excused or manual, got %q", c.Status))
	}
	return nil
}

// RemoveAttendanceCommand deletes a student's record for one date.
type RemoveAttendanceCommand struct {
	// ExternalStudentID identifies the student on the chat platform.
	ExternalStudentID string

	// DateID is the calendar date key (YYYY-MM-DD). Empty means today.
	DateID string
}

// Validate validates the command.
func (c RemoveAttendanceCommand) Validate() error {
	if c.ExternalStudentID == "" {
		return shared.NewDomainError("attendance", "Remove", shared.ErrValidation, "external_student_id is required")
	}
	if c.DateID != "" && !timeutil.IsValidDateID(c.DateID) {
		return shared.NewDomainError("attendance", "Remove", shared.ErrValidation, fmt.Sprintf("invalid date_id %q", c.DateID))
	}
	return nil
}

// AttendanceOverrideHandler handles administrative attendance corrections.
type AttendanceOverrideHandler struct {
	studentRepo    student.Repository
	attendanceRepo attendance.Repository
	log            *logger.Logger
}

// NewAttendanceOverrideHandler creates a new AttendanceOverrideHandler.
func NewAttendanceOverrideHandler(
	studentRepo student.Repository,
	attendanceRepo attendance.Repository,
	log *logger.Logger,
) *AttendanceOverrideHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AttendanceOverrideHandler{
		studentRepo:    studentRepo,
		attendanceRepo: attendanceRepo,
		log:            log,
	}
}

// Override applies the status for the (student, date) key.
func (h *AttendanceOverrideHandler) Override(ctx context.Context, cmd OverrideAttendanceCommand) (*attendance.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	st, err := h.studentRepo.GetOrCreate(ctx, student.ExternalID(cmd.ExternalStudentID), cmd.Username)
	if err != nil {
		return nil, fmt.Errorf("override_attendance: student resolution failed: %w", err)
	}

	dateID := cmd.DateID
	if dateID == "" {
		dateID = timeutil.Today()
	}

	rec := &attendance.Record{
		SessionID:   "override:" + dateID,
		StudentID:   st.ID,
		Username:    st.Username,
		Status:      cmd.Status,
		DateID:      dateID,
		SubmittedAt: time.Now().UTC(),
	}

	if err := h.attendanceRepo.UpsertOverride(ctx, rec); err != nil {
		return nil, fmt.Errorf("override_attendance: upsert failed: %w", err)
	}

	h.log.Info("attendance override applied",
		logger.StudentID(st.ID),
		logger.String("date_id", dateID),
		logger.String("status", string(cmd.Status)),
	)
	return rec, nil
}

// Remove deletes the record for the (student, date) key. Removal is
// idempotent: removing a record that does not exist succeeds.
func (h *AttendanceOverrideHandler) Remove(ctx context.Context, cmd RemoveAttendanceCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	st, err := h.studentRepo.GetByExternalID(ctx, student.ExternalID(cmd.ExternalStudentID))
	if err != nil {
		return fmt.Errorf("remove_attendance: student lookup failed: %w", err)
	}

	dateID := cmd.DateID
	if dateID == "" {
		dateID = timeutil.Today()
	}

	if err := h.attendanceRepo.RemoveRecord(ctx, st.ID, dateID); err != nil {
		return err
	}

	h.log.Info("attendance record removed",
		logger.StudentID(st.ID),
		logger.String("date_id", dateID),
	)
	return nil
}
