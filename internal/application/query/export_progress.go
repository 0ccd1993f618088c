package query

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT PROGRESS QUERY
// One row per (student, module) with the challenge completion percentage.
// ══════════════════════════════════════════════════════════════════════════════

// ExportProgressQuery requests a module-completion export.
type ExportProgressQuery struct {
	// ModuleID narrows the export to one module. Empty means all.
	ModuleID string
}

// ExportProgressHandler handles the ExportProgressQuery.
type ExportProgressHandler struct {
	studentRepo   student.Repository
	challengeRepo challenge.Repository
}

// NewExportProgressHandler creates a new ExportProgressHandler.
func NewExportProgressHandler(studentRepo student.Repository, challengeRepo challenge.Repository) *ExportProgressHandler {
	return &ExportProgressHandler{studentRepo: studentRepo, challengeRepo: challengeRepo}
}

// Handle writes the export as CSV to w and returns the number of rows.
func (h *ExportProgressHandler) Handle(ctx context.Context, q ExportProgressQuery, w io.Writer) (int, error) {
	students, err := h.studentRepo.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("export_progress: student query failed: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"student_id", "username", "module", "completion_pct"}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("export_progress: write failed: %w", err)
	}

	rows := 0
	for _, st := range students {
		progress, err := h.challengeRepo.GetAllProgress(ctx, st.ID)
		if err != nil {
			return rows, fmt.Errorf("export_progress: progress query failed: %w", err)
		}
		sort.Slice(progress, func(i, j int) bool {
			return progress[i].ModuleID < progress[j].ModuleID
		})

		for _, p := range progress {
			if q.ModuleID != "" && p.ModuleID != q.ModuleID {
				continue
			}
			row := []string{
				st.ID,
				st.Username,
				p.ModuleID,
				strconv.FormatFloat(completionPct(p), 'f', 1, 64),
			}
			if err := cw.Write(row); err != nil {
				return rows, fmt.Errorf("export_progress: write failed: %w", err)
			}
			rows++
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("export_progress: flush failed: %w", err)
	}
	return rows, nil
}

// completionPct converts win progress into a percentage, capped at 100.
func completionPct(p *challenge.Progress) float64 {
	if p.Target <= 0 {
		return 0
	}
	pct := float64(p.WinCount) / float64(p.Target) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
