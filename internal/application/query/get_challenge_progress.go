package query

import (
	"context"
	"fmt"

	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGE PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetChallengeProgressQuery requests a student's challenge progress in one
// module, or across every module when ModuleID is empty.
type GetChallengeProgressQuery struct {
	// ExternalStudentID identifies the student on the chat platform.
	ExternalStudentID string

	// ModuleID narrows the read to one module. Empty means all.
	ModuleID string
}

// Validate validates the query.
func (q GetChallengeProgressQuery) Validate() error {
	if q.ExternalStudentID == "" {
		return shared.NewDomainError("challenge", "Query", shared.ErrValidation, "external_student_id is required")
	}
	return nil
}

// ModuleProgress is one module's derived standing.
type ModuleProgress struct {
	// ModuleID identifies the module.
	ModuleID string

	// State is NotStarted, InProgress, or Completed.
	State challenge.ProgressState

	// WinCount is the number of won attempts.
	WinCount int

	// Target is how many wins complete the module.
	Target int
}

// GetChallengeProgressResult contains the progress for the requested scope.
type GetChallengeProgressResult struct {
	// StudentID is the resolved internal student ID.
	StudentID string

	// Modules holds one entry per module, ordered by module ID.
	Modules []ModuleProgress
}

// GetChallengeProgressHandler handles the GetChallengeProgressQuery.
type GetChallengeProgressHandler struct {
	studentRepo   student.Repository
	challengeRepo challenge.Repository
	winTarget     int
}

// NewGetChallengeProgressHandler creates a new GetChallengeProgressHandler.
func NewGetChallengeProgressHandler(studentRepo student.Repository, challengeRepo challenge.Repository, winTarget int) *GetChallengeProgressHandler {
	if winTarget <= 0 {
		winTarget = 1
	}
	return &GetChallengeProgressHandler{
		studentRepo:   studentRepo,
		challengeRepo: challengeRepo,
		winTarget:     winTarget,
	}
}

// Handle executes the query. Unknown students and untouched modules read as
// NotStarted rather than an error.
func (h *GetChallengeProgressHandler) Handle(ctx context.Context, q GetChallengeProgressQuery) (*GetChallengeProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	st, err := h.studentRepo.GetByExternalID(ctx, student.ExternalID(q.ExternalStudentID))
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("get_challenge_progress: student lookup failed: %w", err)
		}
		if q.ModuleID != "" {
			return &GetChallengeProgressResult{
				Modules: []ModuleProgress{{ModuleID: q.ModuleID, State: challenge.StateNotStarted, Target: h.winTarget}},
			}, nil
		}
		return &GetChallengeProgressResult{}, nil
	}

	if q.ModuleID != "" {
		p, err := h.challengeRepo.GetProgress(ctx, st.ID, q.ModuleID)
		if err != nil {
			if !shared.IsNotFound(err) {
				return nil, fmt.Errorf("get_challenge_progress: query failed: %w", err)
			}
			return &GetChallengeProgressResult{
				StudentID: st.ID,
				Modules:   []ModuleProgress{{ModuleID: q.ModuleID, State: challenge.StateNotStarted, Target: h.winTarget}},
			}, nil
		}
		return &GetChallengeProgressResult{
			StudentID: st.ID,
			Modules:   []ModuleProgress{toModuleProgress(p)},
		}, nil
	}

	all, err := h.challengeRepo.GetAllProgress(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("get_challenge_progress: query failed: %w", err)
	}

	result := &GetChallengeProgressResult{StudentID: st.ID}
	for _, p := range all {
		result.Modules = append(result.Modules, toModuleProgress(p))
	}
	return result, nil
}

func toModuleProgress(p *challenge.Progress) ModuleProgress {
	return ModuleProgress{
		ModuleID: p.ModuleID,
		State:    p.State(),
		WinCount: p.WinCount,
		Target:   p.Target,
	}
}
