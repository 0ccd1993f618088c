package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

func TestGetChallengeProgress_SingleModule(t *testing.T) {
	st := seedStudent(t)
	progress := challenge.NewProgress(st.ID, "goroutines", 3)
	require.NoError(t, progress.RecordWin())

	h := NewGetChallengeProgressHandler(newFakeStudentRepo(st), newFakeChallengeRepo(progress), 3)
	result, err := h.Handle(context.Background(), GetChallengeProgressQuery{
		ExternalStudentID: "ext-1",
		ModuleID:          "goroutines",
	})
	require.NoError(t, err)

	require.Len(t, result.Modules, 1)
	m := result.Modules[0]
	assert.Equal(t, challenge.StateInProgress, m.State)
	assert.Equal(t, 1, m.WinCount)
	assert.Equal(t, 3, m.Target)
}

func TestGetChallengeProgress_UnknownStudentReadsNotStarted(t *testing.T) {
	h := NewGetChallengeProgressHandler(newFakeStudentRepo(), newFakeChallengeRepo(), 3)

	result, err := h.Handle(context.Background(), GetChallengeProgressQuery{
		ExternalStudentID: "nobody",
		ModuleID:          "goroutines",
	})
	require.NoError(t, err)

	require.Len(t, result.Modules, 1)
	assert.Equal(t, challenge.StateNotStarted, result.Modules[0].State)
	assert.Equal(t, 3, result.Modules[0].Target)
}

func TestGetChallengeProgress_UntouchedModuleReadsNotStarted(t *testing.T) {
	st := seedStudent(t)
	h := NewGetChallengeProgressHandler(newFakeStudentRepo(st), newFakeChallengeRepo(), 3)

	result, err := h.Handle(context.Background(), GetChallengeProgressQuery{
		ExternalStudentID: "ext-1",
		ModuleID:          "channels",
	})
	require.NoError(t, err)

	require.Len(t, result.Modules, 1)
	assert.Equal(t, challenge.StateNotStarted, result.Modules[0].State)
	assert.Zero(t, result.Modules[0].WinCount)
}

func TestGetChallengeProgress_AllModules(t *testing.T) {
	st := seedStudent(t)
	p1 := challenge.NewProgress(st.ID, "goroutines", 2)
	require.NoError(t, p1.RecordWin())
	require.NoError(t, p1.RecordWin())
	p2 := challenge.NewProgress(st.ID, "channels", 2)

	h := NewGetChallengeProgressHandler(newFakeStudentRepo(st), newFakeChallengeRepo(p1, p2), 2)
	result, err := h.Handle(context.Background(), GetChallengeProgressQuery{ExternalStudentID: "ext-1"})
	require.NoError(t, err)

	require.Len(t, result.Modules, 2)
	states := map[string]challenge.ProgressState{}
	for _, m := range result.Modules {
		states[m.ModuleID] = m.State
	}
	assert.Equal(t, challenge.StateCompleted, states["goroutines"])
	assert.Equal(t, challenge.StateNotStarted, states["channels"])
}

func TestGetChallengeProgress_Validation(t *testing.T) {
	h := NewGetChallengeProgressHandler(newFakeStudentRepo(), newFakeChallengeRepo(), 3)

	_, err := h.Handle(context.Background(), GetChallengeProgressQuery{})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
