package query

import (
	"context"
	"sync"

	"github.com/chibi-hub/chibi-engine/internal/domain/attendance"
	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes scoped to the read-side tests.
// ─────────────────────────────────────────────────────────────────────────────

type fakeStudentRepo struct {
	mu      sync.Mutex
	byExtID map[student.ExternalID]*student.Student
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	r := &fakeStudentRepo{byExtID: make(map[student.ExternalID]*student.Student)}
	for _, s := range students {
		r.byExtID[s.ExternalID] = s
	}
	return r
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExtID[s.ExternalID]; ok {
		return shared.ErrStudentAlreadyExists
	}
	r.byExtID[s.ExternalID] = s
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byExtID {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (r *fakeStudentRepo) GetByExternalID(_ context.Context, externalID student.ExternalID) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byExtID[externalID]; ok {
		return s, nil
	}
	return nil, shared.ErrStudentNotFound
}

func (r *fakeStudentRepo) GetOrCreate(ctx context.Context, externalID student.ExternalID, username string) (*student.Student, error) {
	if s, err := r.GetByExternalID(ctx, externalID); err == nil {
		return s, nil
	}
	s, err := student.New(externalID, username)
	if err != nil {
		return nil, err
	}
	return s, r.Create(ctx, s)
}

func (r *fakeStudentRepo) Update(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExtID[s.ExternalID]; !ok {
		return shared.ErrStudentNotFound
	}
	r.byExtID[s.ExternalID] = s
	return nil
}

func (r *fakeStudentRepo) GetAll(_ context.Context) ([]*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*student.Student, 0, len(r.byExtID))
	for _, s := range r.byExtID {
		out = append(out, s)
	}
	return out, nil
}

type fakeMasteryRepo struct {
	mu      sync.Mutex
	records map[string]*mastery.Record
}

func newFakeMasteryRepo() *fakeMasteryRepo {
	return &fakeMasteryRepo{records: make(map[string]*mastery.Record)}
}

func masteryKey(studentID, conceptID string) string {
	return studentID + "/" + conceptID
}

func (r *fakeMasteryRepo) Get(_ context.Context, studentID, conceptID string) (*mastery.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[masteryKey(studentID, conceptID)]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, shared.ErrMasteryNotFound
}

func (r *fakeMasteryRepo) GetOrCreate(ctx context.Context, studentID, conceptID string) (*mastery.Record, error) {
	if rec, err := r.Get(ctx, studentID, conceptID); err == nil {
		return rec, nil
	}
	return mastery.NewRecord(studentID, conceptID), nil
}

func (r *fakeMasteryRepo) Save(_ context.Context, rec *mastery.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[masteryKey(rec.StudentID, rec.ConceptID)] = &cp
	return nil
}

func (r *fakeMasteryRepo) GetAllForStudent(_ context.Context, studentID string) ([]*mastery.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*mastery.Record
	for _, rec := range r.records {
		if rec.StudentID == studentID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeChallengeRepo struct {
	mu       sync.Mutex
	progress map[string]*challenge.Progress
}

func newFakeChallengeRepo(progress ...*challenge.Progress) *fakeChallengeRepo {
	r := &fakeChallengeRepo{progress: make(map[string]*challenge.Progress)}
	for _, p := range progress {
		r.progress[masteryKey(p.StudentID, p.ModuleID)] = p
	}
	return r
}

func (r *fakeChallengeRepo) CreateAttempt(_ context.Context, _ *challenge.Attempt) error {
	return nil
}

func (r *fakeChallengeRepo) GetAttemptsForStudent(_ context.Context, _, _ string) ([]*challenge.Attempt, error) {
	return nil, nil
}

func (r *fakeChallengeRepo) GetProgress(_ context.Context, studentID, moduleID string) (*challenge.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.progress[masteryKey(studentID, moduleID)]; ok {
		return p, nil
	}
	return nil, shared.NewDomainError("challenge", "GetProgress", shared.ErrNotFound, "no progress for module")
}

func (r *fakeChallengeRepo) GetOrCreateProgress(ctx context.Context, studentID, moduleID string, target int) (*challenge.Progress, error) {
	if p, err := r.GetProgress(ctx, studentID, moduleID); err == nil {
		return p, nil
	}
	return challenge.NewProgress(studentID, moduleID, target), nil
}

func (r *fakeChallengeRepo) SaveProgress(_ context.Context, p *challenge.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[masteryKey(p.StudentID, p.ModuleID)] = p
	return nil
}

func (r *fakeChallengeRepo) GetAllProgress(_ context.Context, studentID string) ([]*challenge.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*challenge.Progress
	for _, p := range r.progress {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAttendanceRepo struct {
	records []*attendance.Record
	err     error
}

func (r *fakeAttendanceRepo) SaveSession(_ context.Context, _ *attendance.Session) error {
	return nil
}

func (r *fakeAttendanceRepo) SaveRecords(_ context.Context, _ []*attendance.Record) error {
	return nil
}

func (r *fakeAttendanceRepo) GetSessionRecords(_ context.Context, sessionID string) ([]*attendance.Record, error) {
	var out []*attendance.Record
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out, r.err
}

func (r *fakeAttendanceRepo) GetRecordsByDate(_ context.Context, dateID string) ([]*attendance.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*attendance.Record
	for _, rec := range r.records {
		if rec.DateID == dateID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeAttendanceRepo) GetAllRecords(_ context.Context) ([]*attendance.Record, error) {
	return r.records, r.err
}

func (r *fakeAttendanceRepo) UpsertOverride(_ context.Context, rec *attendance.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeAttendanceRepo) RemoveRecord(_ context.Context, _, _ string) error {
	return nil
}
