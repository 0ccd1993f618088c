package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/ai"
)

type challengeFixture struct {
	handler   *SubmitChallengeHandler
	students  *memStudentRepo
	repo      *memChallengeRepo
	vectors   *memVectorIndex
	judge     *ai.MockJudge
	quizModel *ai.MockQuizModel
	embedder  *ai.MockEmbedder
}

func newChallengeFixture(judge *ai.MockJudge, quizModel *ai.MockQuizModel, embedder *ai.MockEmbedder) *challengeFixture {
	if embedder == nil {
		embedder = &ai.MockEmbedder{Fallback: []float64{1, 0, 0}}
	}
	f := &challengeFixture{
		students:  newMemStudentRepo(),
		repo:      newMemChallengeRepo(),
		vectors:   newMemVectorIndex(),
		judge:     judge,
		quizModel: quizModel,
		embedder:  embedder,
	}
	f.handler = NewSubmitChallengeHandler(
		f.students, f.repo, f.vectors,
		judge, quizModel, embedder, nil,
		ChallengeConfig{SimilarityThreshold: 0.85, WinTarget: 2, RetrievalK: 3},
		nil,
	)
	return f
}

func challengeCmd(question string) SubmitChallengeCommand {
	return SubmitChallengeCommand{
		ExternalStudentID: "ext-7",
		Username:          "mira",
		ModuleID:          "goroutines",
		Question:          question,
		Answer:            "because the scheduler parks the goroutine",
	}
}

func TestSubmitChallenge_WonPath(t *testing.T) {
	judge := ai.NewMockJudge(
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}},  // student
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 1, Correct: false}}, // model
	)
	f := newChallengeFixture(judge, ai.NewMockQuizModel(ai.MockAnswer{Text: "it just blocks"}), nil)

	result, err := f.handler.Handle(context.Background(), challengeCmd("why does an unbuffered send block?"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeWon, result.Outcome)
	assert.Equal(t, "it just blocks", result.ModelAnswer)
	require.NotNil(t, result.Attempt)
	assert.True(t, result.Attempt.Won)
	assert.Equal(t, result.Attempt.ID, result.Attempt.EmbeddingID)

	require.NotNil(t, result.Progress)
	assert.Equal(t, 1, result.Progress.WinCount)
	assert.Equal(t, challenge.StateInProgress, result.Progress.State())

	// Both the attempt and the question embedding are persisted.
	assert.Len(t, f.repo.attempts, 1)
	assert.Len(t, f.vectors.entries, 1)
}

func TestSubmitChallenge_LostPathDoesNotIndexQuestion(t *testing.T) {
	judge := ai.NewMockJudge(
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}}, // student
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}}, // model also correct
	)
	f := newChallengeFixture(judge, ai.NewMockQuizModel(ai.MockAnswer{Text: "correct answer"}), nil)

	result, err := f.handler.Handle(context.Background(), challengeCmd("what is a mutex?"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeLost, result.Outcome)
	assert.False(t, result.Attempt.Won)
	assert.Equal(t, 0, result.Progress.WinCount)

	// Lost attempts are recorded for audit but never indexed for dedup.
	assert.Len(t, f.repo.attempts, 1)
	assert.Empty(t, f.vectors.entries)
}

func TestSubmitChallenge_DuplicateQuestionRejected(t *testing.T) {
	f := newChallengeFixture(ai.NewMockJudge(), ai.NewMockQuizModel(), nil)

	// A previously won question with an identical embedding (similarity 1.0).
	err := f.vectors.Upsert(context.Background(), "won-1", "goroutines", "why does send block?", []float64{1, 0, 0})
	require.NoError(t, err)

	result, err := f.handler.Handle(context.Background(), challengeCmd("why does a send block??"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeDuplicate, result.Outcome)
	assert.Equal(t, "why does send block?", result.MatchedQuestion)
	assert.InDelta(t, 1.0, result.Similarity, 1e-9)

	// Nothing new persisted and no model or judge call made.
	assert.Empty(t, f.repo.attempts)
	assert.Empty(t, f.quizModel.Calls)
	assert.Empty(t, f.judge.Calls)
}

func TestSubmitChallenge_BelowThresholdIsNotDuplicate(t *testing.T) {
	judge := ai.NewMockJudge(
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}},
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 1, Correct: false}},
	)
	f := newChallengeFixture(judge, ai.NewMockQuizModel(ai.MockAnswer{Text: "no idea"}), nil)

	// Orthogonal vector: similarity 0 against the stored entry.
	err := f.vectors.Upsert(context.Background(), "won-1", "goroutines", "other question", []float64{0, 1, 0})
	require.NoError(t, err)

	result, err := f.handler.Handle(context.Background(), challengeCmd("why does send block?"))
	require.NoError(t, err)
	assert.Equal(t, challenge.OutcomeWon, result.Outcome)
}

func TestSubmitChallenge_DuplicateScopedToModule(t *testing.T) {
	judge := ai.NewMockJudge(
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}},
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 1, Correct: false}},
	)
	f := newChallengeFixture(judge, ai.NewMockQuizModel(ai.MockAnswer{Text: "hm"}), nil)

	// Identical vector, but indexed under a different module.
	err := f.vectors.Upsert(context.Background(), "won-1", "channels", "same question", []float64{1, 0, 0})
	require.NoError(t, err)

	result, err := f.handler.Handle(context.Background(), challengeCmd("same question"))
	require.NoError(t, err)
	assert.Equal(t, challenge.OutcomeWon, result.Outcome)
}

func TestSubmitChallenge_AlreadyCompletedShortCircuits(t *testing.T) {
	f := newChallengeFixture(ai.NewMockJudge(), ai.NewMockQuizModel(), nil)
	ctx := context.Background()

	st, err := f.students.GetOrCreate(ctx, "ext-7", "mira")
	require.NoError(t, err)

	progress := challenge.NewProgress(st.ID, "goroutines", 2)
	require.NoError(t, progress.RecordWin())
	require.NoError(t, progress.RecordWin())
	require.True(t, progress.Completed)
	require.NoError(t, f.repo.SaveProgress(ctx, progress))

	result, err := f.handler.Handle(ctx, challengeCmd("anything"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeAlreadyCompleted, result.Outcome)
	// Rejected before any external call.
	assert.Empty(t, f.embedder.Calls)
	assert.Empty(t, f.quizModel.Calls)
	assert.Empty(t, f.judge.Calls)
}

func TestSubmitChallenge_WinTargetCompletesModule(t *testing.T) {
	judge := ai.NewMockJudge(
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}},
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 1, Correct: false}},
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}},
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 1, Correct: false}},
	)
	quizModel := ai.NewMockQuizModel(ai.MockAnswer{Text: "a"}, ai.MockAnswer{Text: "b"})
	embedder := &ai.MockEmbedder{Vectors: map[string][]float64{
		"q1": {1, 0, 0},
		"q2": {0, 1, 0},
	}}
	f := newChallengeFixture(judge, quizModel, embedder)
	ctx := context.Background()

	first, err := f.handler.Handle(ctx, challengeCmd("q1"))
	require.NoError(t, err)
	require.Equal(t, challenge.OutcomeWon, first.Outcome)

	second, err := f.handler.Handle(ctx, challengeCmd("q2"))
	require.NoError(t, err)
	require.Equal(t, challenge.OutcomeWon, second.Outcome)
	assert.True(t, second.Progress.Completed)
	assert.Equal(t, challenge.StateCompleted, second.Progress.State())

	// Third submission is rejected without reaching the embedder again.
	calls := len(f.embedder.Calls)
	third, err := f.handler.Handle(ctx, challengeCmd("q3"))
	require.NoError(t, err)
	assert.Equal(t, challenge.OutcomeAlreadyCompleted, third.Outcome)
	assert.Len(t, f.embedder.Calls, calls)
}

func TestSubmitChallenge_AttemptWriteFailureConsumesNothing(t *testing.T) {
	judge := ai.NewMockJudge(
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 5, Correct: true}},
		ai.MockJudgment{Judgment: &ai.Judgment{Quality: 1, Correct: false}},
	)
	f := newChallengeFixture(judge, ai.NewMockQuizModel(ai.MockAnswer{Text: "hm"}), nil)
	f.repo.failAttempt = errors.New("insert failed")

	_, err := f.handler.Handle(context.Background(), challengeCmd("why does send block?"))
	require.Error(t, err)

	// The failed write burns nothing: the question is not indexed and the
	// win is not counted.
	assert.Empty(t, f.vectors.entries)
	assert.Empty(t, f.repo.progress)
}

// answerAwareJudge judges by answer text instead of canned FIFO order, so
// concurrent submissions get deterministic verdicts.
type answerAwareJudge struct {
	correctAnswer string
}

func (j *answerAwareJudge) Judge(_ context.Context, req ai.JudgeRequest) (*ai.Judgment, error) {
	if req.Answer == j.correctAnswer {
		return &ai.Judgment{Quality: 5, Correct: true}, nil
	}
	return &ai.Judgment{Quality: 1, Correct: false}, nil
}

func TestSubmitChallenge_ConcurrentWinsLoseNoIncrement(t *testing.T) {
	cmd1 := challengeCmd("q1")
	cmd2 := challengeCmd("q2")

	judge := &answerAwareJudge{correctAnswer: cmd1.Answer}
	quizModel := ai.NewMockQuizModel(
		ai.MockAnswer{Text: "model answer a"},
		ai.MockAnswer{Text: "model answer b"},
	)
	embedder := &ai.MockEmbedder{Vectors: map[string][]float64{
		"q1": {1, 0, 0},
		"q2": {0, 1, 0},
	}}

	students := newMemStudentRepo()
	repo := newMemChallengeRepo()
	handler := NewSubmitChallengeHandler(
		students, repo, newMemVectorIndex(),
		judge, quizModel, embedder, nil,
		ChallengeConfig{SimilarityThreshold: 0.85, WinTarget: 3, RetrievalK: 3},
		nil,
	)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*SubmitChallengeResult, 2)
	errs := make([]error, 2)
	for i, cmd := range []SubmitChallengeCommand{cmd1, cmd2} {
		wg.Add(1)
		go func(i int, cmd SubmitChallengeCommand) {
			defer wg.Done()
			results[i], errs[i] = handler.Handle(ctx, cmd)
		}(i, cmd)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		require.Equal(t, challenge.OutcomeWon, results[i].Outcome)
	}

	st, err := students.GetOrCreate(ctx, "ext-7", "mira")
	require.NoError(t, err)
	progress, err := repo.GetProgress(ctx, st.ID, "goroutines")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.WinCount)
}

func TestSubmitChallenge_QuizModelFailureIsTransient(t *testing.T) {
	f := newChallengeFixture(
		ai.NewMockJudge(),
		ai.NewMockQuizModel(ai.MockAnswer{Err: shared.ErrQuizModelFailed}),
		nil,
	)

	result, err := f.handler.Handle(context.Background(), challengeCmd("q"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeTransientError, result.Outcome)
	// Nothing persisted: a delivery failure never burns the question.
	assert.Empty(t, f.repo.attempts)
	assert.Empty(t, f.vectors.entries)
	assert.Empty(t, f.repo.progress)
}

func TestSubmitChallenge_EmbedderFailureIsTransient(t *testing.T) {
	embedder := &ai.MockEmbedder{Err: shared.ErrEmbeddingUnavailable}
	f := newChallengeFixture(ai.NewMockJudge(), ai.NewMockQuizModel(), embedder)

	result, err := f.handler.Handle(context.Background(), challengeCmd("q"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeTransientError, result.Outcome)
	assert.Empty(t, f.quizModel.Calls)
	assert.Empty(t, f.repo.attempts)
}

func TestSubmitChallenge_JudgeFailureIsTransient(t *testing.T) {
	judge := ai.NewMockJudge(ai.MockJudgment{Err: shared.ErrJudgeUnavailable})
	f := newChallengeFixture(judge, ai.NewMockQuizModel(ai.MockAnswer{Text: "a"}), nil)

	result, err := f.handler.Handle(context.Background(), challengeCmd("q"))
	require.NoError(t, err)

	assert.Equal(t, challenge.OutcomeTransientError, result.Outcome)
	assert.Empty(t, f.repo.attempts)
	assert.Empty(t, f.vectors.entries)
}

func TestSubmitChallenge_Validation(t *testing.T) {
	f := newChallengeFixture(ai.NewMockJudge(), ai.NewMockQuizModel(), nil)

	cmd := challengeCmd("q")
	cmd.ModuleID = ""
	_, err := f.handler.Handle(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
