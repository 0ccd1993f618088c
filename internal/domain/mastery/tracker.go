package mastery

import (
	"context"
	"sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACKER
// Serializes aggregate updates per (student, concept) key so that two
// concurrent gradings of the same pair never lose an increment. Different
// pairs proceed in parallel.
// ══════════════════════════════════════════════════════════════════════════════

// Tracker is the write/read surface of the mastery component.
type Tracker struct {
	repo Repository
	cfg  Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker creates a Tracker over the given repository.
func NewTracker(repo Repository, cfg Config) *Tracker {
	if cfg.MinAttemptsForMastery <= 0 {
		cfg = DefaultConfig()
	}
	return &Tracker{
		repo:  repo,
		cfg:   cfg,
		locks: make(map[string]*sync.Mutex),
	}
}

// Config returns the thresholds the tracker evaluates against.
func (t *Tracker) Config() Config {
	return t.cfg
}

// keyLock returns the mutex guarding one (student, concept) pair.
// Locks are created on demand and kept for the process lifetime; the key
// space is bounded by students x concepts.
func (t *Tracker) keyLock(studentID, conceptID string) *sync.Mutex {
	key := studentID + "\x00" + conceptID

	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

// Record atomically folds one graded attempt into the aggregate and returns
// the updated record. The quality score must be within [0, 5].
func (t *Tracker) Record(ctx context.Context, studentID, conceptID string, quality float64, correct bool) (*Record, error) {
	lock := t.keyLock(studentID, conceptID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := t.repo.GetOrCreate(ctx, studentID, conceptID)
	if err != nil {
		return nil, err
	}

	if err := rec.Apply(t.cfg, quality, correct); err != nil {
		return nil, err
	}

	if err := t.repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Query is a pure read of the aggregate for one pair.
// Returns ErrMasteryNotFound when the student never attempted the concept.
func (t *Tracker) Query(ctx context.Context, studentID, conceptID string) (*Record, error) {
	return t.repo.Get(ctx, studentID, conceptID)
}

// QueryAll returns every aggregate the student has.
func (t *Tracker) QueryAll(ctx context.Context, studentID string) ([]*Record, error) {
	return t.repo.GetAllForStudent(ctx, studentID)
}
