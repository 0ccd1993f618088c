// Package application wires the engine's use cases into one facade.
package application

import (
	"context"
	"io"

	"github.com/chibi-hub/chibi-engine/internal/application/command"
	"github.com/chibi-hub/chibi-engine/internal/application/query"
	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
)

// Engine is the API surface a transport (bot, HTTP) drives.
// All methods delegate to the underlying command and query handlers.
type Engine struct {
	evaluate  *command.EvaluateQuizAnswerHandler
	challenge *command.SubmitChallengeHandler
	sessions  *command.SessionManager
	overrides *command.AttendanceOverrideHandler

	masteryStatus     *query.GetMasteryStatusHandler
	challengeProgress *query.GetChallengeProgressHandler
	exportAttendance  *query.ExportAttendanceHandler
	exportProgress    *query.ExportProgressHandler
}

// New assembles an Engine from its handlers.
func New(
	evaluate *command.EvaluateQuizAnswerHandler,
	challengeHandler *command.SubmitChallengeHandler,
	sessions *command.SessionManager,
	overrides *command.AttendanceOverrideHandler,
	masteryStatus *query.GetMasteryStatusHandler,
	challengeProgress *query.GetChallengeProgressHandler,
	exportAttendance *query.ExportAttendanceHandler,
	exportProgress *query.ExportProgressHandler,
) *Engine {
	return &Engine{
		evaluate:          evaluate,
		challenge:         challengeHandler,
		sessions:          sessions,
		overrides:         overrides,
		masteryStatus:     masteryStatus,
		challengeProgress: challengeProgress,
		exportAttendance:  exportAttendance,
		exportProgress:    exportProgress,
	}
}

// EvaluateQuizAnswer grades one free-form answer.
func (e *Engine) EvaluateQuizAnswer(ctx context.Context, cmd command.EvaluateQuizAnswerCommand) (*command.EvaluateQuizAnswerResult, error) {
	return e.evaluate.Handle(ctx, cmd)
}

// SubmitChallenge runs one round of the stump-the-model game.
func (e *Engine) SubmitChallenge(ctx context.Context, cmd command.SubmitChallengeCommand) (*command.SubmitChallengeResult, error) {
	return e.challenge.Handle(ctx, cmd)
}

// OpenAttendanceSession starts a rotating-code session.
func (e *Engine) OpenAttendanceSession(ctx context.Context) (*attendance.Session, error) {
	return e.sessions.Open(ctx)
}

// CurrentAttendanceCode returns the code valid right now.
func (e *Engine) CurrentAttendanceCode() (string, error) {
	return e.sessions.CurrentCode()
}

// SubmitAttendance records one student's attendance.
func (e *Engine) SubmitAttendance(ctx context.Context, externalStudentID, username, code string) (*attendance.Record, error) {
	return e.sessions.Submit(ctx, externalStudentID, username, code)
}

// CloseAttendanceSession closes the session and stores its submissions.
func (e *Engine) CloseAttendanceSession(ctx context.Context) (*command.CloseSessionResult, error) {
	return e.sessions.Close(ctx)
}

// HasOpenSession reports whether an attendance session is active.
func (e *Engine) HasOpenSession() bool {
	return e.sessions.IsOpen()
}

// OverrideAttendance applies an administrative status for a (student, date).
func (e *Engine) OverrideAttendance(ctx context.Context, cmd command.OverrideAttendanceCommand) (*attendance.Record, error) {
	return e.overrides.Override(ctx, cmd)
}

// RemoveAttendance deletes a (student, date) record.
func (e *Engine) RemoveAttendance(ctx context.Context, cmd command.RemoveAttendanceCommand) error {
	return e.overrides.Remove(ctx, cmd)
}

// GetMasteryStatus reads a student's per-concept standing.
func (e *Engine) GetMasteryStatus(ctx context.Context, q query.GetMasteryStatusQuery) (*query.GetMasteryStatusResult, error) {
	return e.masteryStatus.Handle(ctx, q)
}

// GetChallengeProgress reads challenge progress per module.
func (e *Engine) GetChallengeProgress(ctx context.Context, q query.GetChallengeProgressQuery) (*query.GetChallengeProgressResult, error) {
	return e.challengeProgress.Handle(ctx, q)
}

// ExportAttendance writes the attendance CSV to w.
func (e *Engine) ExportAttendance(ctx context.Context, q query.ExportAttendanceQuery, w io.Writer) (int, error) {
	return e.exportAttendance.Handle(ctx, q, w)
}

// ExportProgress writes the module-completion CSV to w.
func (e *Engine) ExportProgress(ctx context.Context, q query.ExportProgressQuery, w io.Writer) (int, error) {
	return e.exportProgress.Handle(ctx, q, w)
}
