package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
	"github.com/chibi-hub/chibi-engine/pkg/logger"
	"github.com/chibi-hub/chibi-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE SESSION MANAGER
// Owns the single active session: its rotating code, the in-memory
// submission set, and the durable flush at close. Submissions accumulate in
// memory while the session is open and are written in one batch when it
// closes; a crash while open loses them.
// ══════════════════════════════════════════════════════════════════════════════

// CodeRotator drives periodic code replacement for an open session.
// rotation.Rotator is the production implementation.
type CodeRotator interface {
	Start(ctx context.Context) error
	Stop() error
}

// RotatorFactory builds a rotator that calls tick every interval.
type RotatorFactory func(interval time.Duration, tick func()) (CodeRotator, error)

// SessionConfig holds attendance session defaults.
type SessionConfig struct {
	// RotationInterval is how often the code is replaced.
	RotationInterval time.Duration

	// CodeLength is the length of generated codes.
	CodeLength int

	// OnTimeWindow is how long after open a submission still counts as
	// present. Later valid submissions are recorded as late. Zero disables
	// the distinction.
	OnTimeWindow time.Duration
}

// DefaultSessionConfig returns the standard session tuning.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RotationInterval: 30 * time.Second,
		CodeLength:       attendance.DefaultCodeLength,
		OnTimeWindow:     10 * time.Minute,
	}
}

// CloseSessionResult describes a closed session.
type CloseSessionResult struct {
	// Session is the closed session.
	Session *attendance.Session

	// Records are the submissions that were durably stored.
	Records []*attendance.Record
}

// SessionManager manages the lifecycle of attendance sessions.
// All session state transitions go through one mutex, so a submission
// observes either the pre-rotation code or the post-rotation code, never a
// mix.
type SessionManager struct {
	studentRepo    student.Repository
	attendanceRepo attendance.Repository
	newRotator     RotatorFactory
	cfg            SessionConfig
	log            *logger.Logger

	mu          sync.Mutex
	session     *attendance.Session
	submissions map[string]*attendance.Record // keyed by student ID
	rotator     CodeRotator
	closing     bool
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(
	studentRepo student.Repository,
	attendanceRepo attendance.Repository,
	newRotator RotatorFactory,
	cfg SessionConfig,
	log *logger.Logger,
) *SessionManager {
	if cfg.RotationInterval <= 0 {
		cfg = DefaultSessionConfig()
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = attendance.DefaultCodeLength
	}
	if log == nil {
		log = logger.Default()
	}
	return &SessionManager{
		studentRepo:    studentRepo,
		attendanceRepo: attendanceRepo,
		newRotator:     newRotator,
		cfg:            cfg,
		log:            log,
	}
}

// Open starts a new session with a freshly generated code and begins
// rotation. Returns ErrSessionAlreadyOpen while a session is active.
func (m *SessionManager) Open(ctx context.Context) (*attendance.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil, shared.ErrSessionAlreadyOpen
	}

	code, err := attendance.GenerateCode(m.cfg.CodeLength, "")
	if err != nil {
		return nil, fmt.Errorf("open_session: code generation failed: %w", err)
	}

	session := attendance.NewSession(code, m.cfg.RotationInterval, m.cfg.CodeLength)
	if err := m.attendanceRepo.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("open_session: failed to persist session: %w", err)
	}

	rotator, err := m.newRotator(m.cfg.RotationInterval, m.rotate)
	if err != nil {
		return nil, shared.WrapError("attendance", "Open", shared.ErrInvalidRotationSetup, "rotator setup failed", err)
	}
	if err := rotator.Start(ctx); err != nil {
		return nil, fmt.Errorf("open_session: failed to start rotation: %w", err)
	}

	m.session = session
	m.submissions = make(map[string]*attendance.Record)
	m.rotator = rotator

	m.log.Info("attendance session opened",
		logger.SessionID(session.ID),
		logger.Duration("rotation_interval", m.cfg.RotationInterval),
	)
	return session, nil
}

// rotate installs a fresh code, atomically replacing the current one.
// Called by the rotator between submissions; a stale code is invalid the
// moment this returns.
func (m *SessionManager) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}

	code, err := attendance.GenerateCode(m.session.CodeLength, m.session.CurrentCode)
	if err != nil {
		// Keep the old code for one more interval rather than leave the
		// session without a valid code.
		m.log.Error("code rotation failed", logger.SessionID(m.session.ID), logger.Err(err))
		return
	}

	m.session.CurrentCode = code
	m.session.CodeGeneratedAt = time.Now().UTC()
}

// CurrentCode returns the code that is valid right now, for display to the
// room. Returns ErrNoActiveSession when no session is open.
func (m *SessionManager) CurrentCode() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return "", shared.ErrNoActiveSession
	}
	return m.session.CurrentCode, nil
}

// Submit records one student's attendance for the open session.
// The first valid submission per student wins; repeats return
// ErrAlreadySubmitted regardless of the code they carry.
func (m *SessionManager) Submit(ctx context.Context, externalStudentID, username, code string) (*attendance.Record, error) {
	if externalStudentID == "" {
		return nil, shared.ErrInvalidStudentID
	}

	// Resolve outside the session lock; the student lookup may hit the
	// database and must not stall rotation.
	st, err := m.studentRepo.GetOrCreate(ctx, student.ExternalID(externalStudentID), username)
	if err != nil {
		return nil, fmt.Errorf("submit_attendance: student resolution failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, shared.ErrNoActiveSession
	}

	// Code validity is checked before the duplicate check: a stale code is
	// rejected as invalid even for a student who already submitted.
	code = strings.TrimSpace(code)
	if len(code) != m.session.CodeLength {
		return nil, shared.ErrInvalidCodeLength
	}
	if !strings.EqualFold(code, m.session.CurrentCode) {
		return nil, shared.ErrInvalidCode
	}

	if _, ok := m.submissions[st.ID]; ok {
		return nil, shared.ErrAlreadySubmitted
	}

	now := time.Now().UTC()
	status := attendance.StatusPresent
	if m.cfg.OnTimeWindow > 0 && now.Sub(m.session.OpenedAt) > m.cfg.OnTimeWindow {
		status = attendance.StatusLate
	}

	rec := &attendance.Record{
		SessionID:   m.session.ID,
		StudentID:   st.ID,
		Username:    st.Username,
		Code:        m.session.CurrentCode,
		Status:      status,
		DateID:      timeutil.Today(),
		SubmittedAt: now,
	}
	m.submissions[st.ID] = rec

	m.log.Info("attendance recorded",
		logger.SessionID(m.session.ID),
		logger.StudentID(st.ID),
	)
	return rec, nil
}

// Close stops rotation, durably stores the accumulated submissions, and
// marks the session closed. Returns ErrNoActiveSession when no session is
// open.
func (m *SessionManager) Close(ctx context.Context) (*CloseSessionResult, error) {
	m.mu.Lock()
	if m.session == nil || m.closing {
		m.mu.Unlock()
		return nil, shared.ErrNoActiveSession
	}
	m.closing = true
	sessionID := m.session.ID
	rotator := m.rotator
	m.mu.Unlock()

	// Stop is called without the session mutex: an in-flight tick blocks in
	// rotate on that mutex, and Stop waits for the tick to finish.
	if err := rotator.Stop(); err != nil {
		m.log.Warn("rotator stop failed", logger.SessionID(sessionID), logger.Err(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closing = false

	records := make([]*attendance.Record, 0, len(m.submissions))
	for _, rec := range m.submissions {
		records = append(records, rec)
	}

	// The flush is the durability point: records exist only in memory until
	// here. Keep the session open if the write fails so close can be
	// retried without losing submissions.
	if err := m.attendanceRepo.SaveRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("close_session: failed to store records: %w", err)
	}

	m.session.Active = false
	m.session.ClosedAt = time.Now().UTC()
	if err := m.attendanceRepo.SaveSession(ctx, m.session); err != nil {
		m.log.Warn("failed to persist session close", logger.SessionID(m.session.ID), logger.Err(err))
	}

	result := &CloseSessionResult{Session: m.session, Records: records}

	m.log.Info("attendance session closed",
		logger.SessionID(m.session.ID),
		logger.Int("submissions", len(records)),
	)

	m.session = nil
	m.submissions = nil
	m.rotator = nil

	return result, nil
}

// IsOpen reports whether a session is currently active.
func (m *SessionManager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}
