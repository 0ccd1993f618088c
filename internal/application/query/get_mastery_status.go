// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MASTERY STATUS QUERY
// Pure read of the mastery aggregate; never mutates anything.
// ══════════════════════════════════════════════════════════════════════════════

// GetMasteryStatusQuery requests a student's standing on one concept, or on
// every attempted concept when ConceptID is empty.
type GetMasteryStatusQuery struct {
	// ExternalStudentID identifies the student on the chat platform.
	ExternalStudentID string

	// ConceptID narrows the read to one concept. Empty means all.
	ConceptID string
}

// Validate validates the query.
func (q GetMasteryStatusQuery) Validate() error {
	if q.ExternalStudentID == "" {
		return shared.NewDomainError("mastery", "Query", shared.ErrValidation, "external_student_id is required")
	}
	return nil
}

// ConceptStatus is one concept's derived standing.
type ConceptStatus struct {
	// ConceptID identifies the concept.
	ConceptID string

	// Level is the derived mastery level.
	Level mastery.Level

	// Attempts is the total number of graded attempts.
	Attempts int

	// AvgQuality is the average quality score across attempts.
	AvgQuality float64

	// CorrectRatio is the fraction of correct attempts.
	CorrectRatio float64
}

// GetMasteryStatusResult contains the statuses for the requested scope.
type GetMasteryStatusResult struct {
	// StudentID is the resolved internal student ID.
	StudentID string

	// Statuses holds one entry per concept, ordered by concept ID.
	Statuses []ConceptStatus
}

// GetMasteryStatusHandler handles the GetMasteryStatusQuery.
type GetMasteryStatusHandler struct {
	studentRepo student.Repository
	tracker     *mastery.Tracker
}

// NewGetMasteryStatusHandler creates a new GetMasteryStatusHandler.
func NewGetMasteryStatusHandler(studentRepo student.Repository, tracker *mastery.Tracker) *GetMasteryStatusHandler {
	return &GetMasteryStatusHandler{studentRepo: studentRepo, tracker: tracker}
}

// Handle executes the query.
// A student with no attempts on the requested concept gets a Novice status
// rather than an error; a student the engine has never seen does too.
func (h *GetMasteryStatusHandler) Handle(ctx context.Context, q GetMasteryStatusQuery) (*GetMasteryStatusResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	st, err := h.studentRepo.GetByExternalID(ctx, student.ExternalID(q.ExternalStudentID))
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("get_mastery_status: student lookup failed: %w", err)
		}
		if q.ConceptID != "" {
			return &GetMasteryStatusResult{
				Statuses: []ConceptStatus{{ConceptID: q.ConceptID, Level: mastery.LevelNovice}},
			}, nil
		}
		return &GetMasteryStatusResult{}, nil
	}

	if q.ConceptID != "" {
		rec, err := h.tracker.Query(ctx, st.ID, q.ConceptID)
		if err != nil {
			if !shared.IsNotFound(err) {
				return nil, fmt.Errorf("get_mastery_status: query failed: %w", err)
			}
			return &GetMasteryStatusResult{
				StudentID: st.ID,
				Statuses:  []ConceptStatus{{ConceptID: q.ConceptID, Level: mastery.LevelNovice}},
			}, nil
		}
		return &GetMasteryStatusResult{
			StudentID: st.ID,
			Statuses:  []ConceptStatus{toStatus(rec)},
		}, nil
	}

	records, err := h.tracker.QueryAll(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("get_mastery_status: query failed: %w", err)
	}

	result := &GetMasteryStatusResult{StudentID: st.ID}
	for _, rec := range records {
		result.Statuses = append(result.Statuses, toStatus(rec))
	}
	return result, nil
}

func toStatus(rec *mastery.Record) ConceptStatus {
	return ConceptStatus{
		ConceptID:    rec.ConceptID,
		Level:        rec.Level,
		Attempts:     rec.Attempts,
		AvgQuality:   rec.AvgQuality(),
		CorrectRatio: rec.CorrectRatio(),
	}
}
