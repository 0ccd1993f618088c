package command

import (
	"context"
	"math"
	"sync"

	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
	"github.com/chibi-hub/chibi-engine/internal/domain/quiz"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
)

// In-memory repository fakes shared by the command handler tests.

// ─────────────────────────────────────────────────────────────────────────────
// student.Repository
// ─────────────────────────────────────────────────────────────────────────────

type memStudentRepo struct {
	mu       sync.Mutex
	byExtID  map[student.ExternalID]*student.Student
	failWith error
}

func newMemStudentRepo() *memStudentRepo {
	return &memStudentRepo{byExtID: make(map[student.ExternalID]*student.Student)}
}

func (m *memStudentRepo) Create(_ context.Context, s *student.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byExtID[s.ExternalID]; ok {
		return shared.ErrStudentAlreadyExists
	}
	m.byExtID[s.ExternalID] = s
	return nil
}

func (m *memStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byExtID {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudentRepo) GetByExternalID(_ context.Context, externalID student.ExternalID) (*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byExtID[externalID]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (m *memStudentRepo) GetOrCreate(ctx context.Context, externalID student.ExternalID, username string) (*student.Student, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	if s, err := m.GetByExternalID(ctx, externalID); err == nil {
		return s, nil
	}
	s, err := student.New(externalID, username)
	if err != nil {
		return nil, err
	}
	if err := m.Create(ctx, s); err != nil {
		// Lost a creation race; the winner's row is authoritative.
		if shared.IsConflict(err) {
			return m.GetByExternalID(ctx, externalID)
		}
		return nil, err
	}
	return s, nil
}

func (m *memStudentRepo) Update(_ context.Context, s *student.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byExtID[s.ExternalID] = s
	return nil
}

func (m *memStudentRepo) GetAll(_ context.Context) ([]*student.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*student.Student
	for _, s := range m.byExtID {
		out = append(out, s)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// quiz.Repository
// ─────────────────────────────────────────────────────────────────────────────

type memQuizRepo struct {
	mu       sync.Mutex
	attempts map[string]*quiz.Attempt
}

func newMemQuizRepo() *memQuizRepo {
	return &memQuizRepo{attempts: make(map[string]*quiz.Attempt)}
}

func (m *memQuizRepo) Create(_ context.Context, a *quiz.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; ok {
		return shared.NewDomainError("quiz", "Create", shared.ErrAlreadyExists, "attempt ID already recorded")
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memQuizRepo) GetByID(_ context.Context, id string) (*quiz.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attempts[id]; ok {
		return a, nil
	}
	return nil, shared.ErrAttemptNotFound
}

func (m *memQuizRepo) GetForStudentConcept(_ context.Context, studentID, conceptID string) ([]*quiz.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*quiz.Attempt
	for _, a := range m.attempts {
		if a.StudentID == studentID && a.ConceptID == conceptID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// mastery.Repository
// ─────────────────────────────────────────────────────────────────────────────

type memMasteryRepo struct {
	mu      sync.Mutex
	records map[string]*mastery.Record
}

func newMemMasteryRepo() *memMasteryRepo {
	return &memMasteryRepo{records: make(map[string]*mastery.Record)}
}

func masteryKey(studentID, conceptID string) string {
	return studentID + "/" + conceptID
}

func (m *memMasteryRepo) Get(_ context.Context, studentID, conceptID string) (*mastery.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[masteryKey(studentID, conceptID)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, shared.ErrMasteryNotFound
}

func (m *memMasteryRepo) GetOrCreate(ctx context.Context, studentID, conceptID string) (*mastery.Record, error) {
	if rec, err := m.Get(ctx, studentID, conceptID); err == nil {
		return rec, nil
	}
	return mastery.NewRecord(studentID, conceptID), nil
}

func (m *memMasteryRepo) Save(_ context.Context, r *mastery.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[masteryKey(r.StudentID, r.ConceptID)] = &cp
	return nil
}

func (m *memMasteryRepo) GetAllForStudent(_ context.Context, studentID string) ([]*mastery.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*mastery.Record
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// challenge.Repository and challenge.VectorIndex
// ─────────────────────────────────────────────────────────────────────────────

type memChallengeRepo struct {
	mu          sync.Mutex
	attempts    []*challenge.Attempt
	progress    map[string]*challenge.Progress
	failAttempt error
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{progress: make(map[string]*challenge.Progress)}
}

func progressKey(studentID, moduleID string) string {
	return studentID + "/" + moduleID
}

func (m *memChallengeRepo) CreateAttempt(_ context.Context, a *challenge.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAttempt != nil {
		return m.failAttempt
	}
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memChallengeRepo) GetAttemptsForStudent(_ context.Context, studentID, moduleID string) ([]*challenge.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*challenge.Attempt
	for _, a := range m.attempts {
		if a.StudentID == studentID && a.ModuleID == moduleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memChallengeRepo) GetProgress(_ context.Context, studentID, moduleID string) (*challenge.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.progress[progressKey(studentID, moduleID)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, shared.NewDomainError("challenge", "GetProgress", shared.ErrNotFound, "no progress for module")
}

func (m *memChallengeRepo) GetOrCreateProgress(ctx context.Context, studentID, moduleID string, target int) (*challenge.Progress, error) {
	if p, err := m.GetProgress(ctx, studentID, moduleID); err == nil {
		return p, nil
	}
	return challenge.NewProgress(studentID, moduleID, target), nil
}

func (m *memChallengeRepo) SaveProgress(_ context.Context, p *challenge.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.progress[progressKey(p.StudentID, p.ModuleID)] = &cp
	return nil
}

func (m *memChallengeRepo) GetAllProgress(_ context.Context, studentID string) ([]*challenge.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*challenge.Progress
	for _, p := range m.progress {
		if p.StudentID == studentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memVectorIndex struct {
	mu      sync.Mutex
	entries []vectorEntry
}

type vectorEntry struct {
	id       string
	moduleID string
	question string
	vector   []float64
}

func newMemVectorIndex() *memVectorIndex {
	return &memVectorIndex{}
}

func (m *memVectorIndex) Upsert(_ context.Context, id, moduleID, question string, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, vectorEntry{id: id, moduleID: moduleID, question: question, vector: vector})
	return nil
}

func (m *memVectorIndex) QueryNearest(_ context.Context, moduleID string, vector []float64) (string, float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		bestQ   string
		bestSim float64
		found   bool
	)
	for _, e := range m.entries {
		if e.moduleID != moduleID {
			continue
		}
		sim := cosine(vector, e.vector)
		if !found || sim > bestSim {
			bestQ, bestSim, found = e.question, sim, true
		}
	}
	return bestQ, bestSim, found, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ─────────────────────────────────────────────────────────────────────────────
// attendance.Repository
// ─────────────────────────────────────────────────────────────────────────────

type memAttendanceRepo struct {
	mu       sync.Mutex
	sessions map[string]*attendance.Session
	records  map[string]*attendance.Record // keyed by student/date
	flushes  int
	failSave error
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{
		sessions: make(map[string]*attendance.Session),
		records:  make(map[string]*attendance.Record),
	}
}

func recordKey(studentID, dateID string) string {
	return studentID + "/" + dateID
}

func (m *memAttendanceRepo) SaveSession(_ context.Context, s *attendance.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memAttendanceRepo) SaveRecords(_ context.Context, records []*attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.flushes++
	for _, rec := range records {
		k := recordKey(rec.StudentID, rec.DateID)
		if _, ok := m.records[k]; !ok {
			cp := *rec
			m.records[k] = &cp
		}
	}
	return nil
}

func (m *memAttendanceRepo) GetSessionRecords(_ context.Context, sessionID string) ([]*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*attendance.Record
	for _, rec := range m.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memAttendanceRepo) GetRecordsByDate(_ context.Context, dateID string) ([]*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*attendance.Record
	for _, rec := range m.records {
		if rec.DateID == dateID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memAttendanceRepo) GetAllRecords(_ context.Context) ([]*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*attendance.Record
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memAttendanceRepo) UpsertOverride(_ context.Context, rec *attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[recordKey(rec.StudentID, rec.DateID)] = &cp
	return nil
}

func (m *memAttendanceRepo) RemoveRecord(_ context.Context, studentID, dateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, recordKey(studentID, dateID))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CodeRotator
// ─────────────────────────────────────────────────────────────────────────────

// manualRotator hands rotation control to the test: call Tick to rotate.
type manualRotator struct {
	mu      sync.Mutex
	tick    func()
	started bool
	stopped bool
}

func (r *manualRotator) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *manualRotator) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func (r *manualRotator) Tick() {
	r.tick()
}
