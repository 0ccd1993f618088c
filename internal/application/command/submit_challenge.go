package command

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chibi-hub/chibi-engine/internal/domain/challenge"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/ai"
	"github.com/chibi-hub/chibi-engine/pkg/logger"
	"github.com/chibi-hub/chibi-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT CHALLENGE COMMAND
// One round of the stump-the-model game. The submission runs through a
// fixed gate order: completion check, similarity dedup against previously
// won questions, then the quiz model and the judge. Only submissions that
// reach the judging stage are persisted.
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeConfig holds the anti-cheat and progress tuning knobs.
type ChallengeConfig struct {
	// SimilarityThreshold is the cosine similarity at or above which a
	// question counts as a reuse of an already-won question.
	SimilarityThreshold float64

	// WinTarget is how many wins complete a module.
	WinTarget int

	// RetrievalK is how many context passages to fetch for the quiz model.
	RetrievalK int
}

// DefaultChallengeConfig returns the standard tuning.
func DefaultChallengeConfig() ChallengeConfig {
	return ChallengeConfig{
		SimilarityThreshold: 0.85,
		WinTarget:           3,
		RetrievalK:          3,
	}
}

// SubmitChallengeCommand contains one challenge submission.
type SubmitChallengeCommand struct {
	// ExternalStudentID identifies the student on the chat platform.
	ExternalStudentID string

	// Username is the display name, used on first interaction.
	Username string

	// ModuleID scopes the challenge to one course module.
	ModuleID string

	// Question is the student-authored question.
	Question string

	// Answer is the answer the student claims is correct.
	Answer string
}

// Validate validates the command.
func (c SubmitChallengeCommand) Validate() error {
	if c.ExternalStudentID == "" {
		return shared.NewDomainError("challenge", "Submit", shared.ErrValidation, "external_student_id is required")
	}
	if c.ModuleID == "" {
		return shared.NewDomainError("challenge", "Submit", shared.ErrValidation, "module_id is required")
	}
	if strings.TrimSpace(c.Question) == "" {
		return shared.NewDomainError("challenge", "Submit", shared.ErrValidation, "question is required")
	}
	if strings.TrimSpace(c.Answer) == "" {
		return shared.NewDomainError("challenge", "Submit", shared.ErrValidation, "answer is required")
	}
	return nil
}

// SubmitChallengeResult contains the outcome of one submission.
type SubmitChallengeResult struct {
	// Outcome is what happened to the submission.
	Outcome challenge.Outcome

	// Attempt is the persisted audit record. Nil unless the submission was
	// judged.
	Attempt *challenge.Attempt

	// Progress is the progress after the submission. Nil for transient
	// errors.
	Progress *challenge.Progress

	// MatchedQuestion is the previously won question that triggered the
	// duplicate outcome, empty otherwise.
	MatchedQuestion string

	// Similarity is the cosine similarity behind a duplicate outcome.
	Similarity float64

	// ModelAnswer is what the quiz model answered, for display.
	ModelAnswer string
}

// SubmitChallengeHandler handles the SubmitChallengeCommand.
type SubmitChallengeHandler struct {
	studentRepo   student.Repository
	challengeRepo challenge.Repository
	vectors       challenge.VectorIndex
	judge         ai.Judge
	quizModel     ai.QuizModel
	embedder      ai.Embedder
	retriever     ai.Retriever
	cfg           ChallengeConfig
	embedRetrier  *retry.Retrier
	log           *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSubmitChallengeHandler creates a new SubmitChallengeHandler.
func NewSubmitChallengeHandler(
	studentRepo student.Repository,
	challengeRepo challenge.Repository,
	vectors challenge.VectorIndex,
	judge ai.Judge,
	quizModel ai.QuizModel,
	embedder ai.Embedder,
	retriever ai.Retriever,
	cfg ChallengeConfig,
	log *logger.Logger,
) *SubmitChallengeHandler {
	if cfg.SimilarityThreshold <= 0 {
		cfg = DefaultChallengeConfig()
	}
	if retriever == nil {
		retriever = ai.NopRetriever{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &SubmitChallengeHandler{
		studentRepo:   studentRepo,
		challengeRepo: challengeRepo,
		vectors:       vectors,
		judge:         judge,
		quizModel:     quizModel,
		embedder:      embedder,
		retriever:     retriever,
		cfg:           cfg,
		embedRetrier:  retry.EmbeddingRetrier(),
		log:           log,
		locks:         make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex guarding one (student, module) progress key, so
// two concurrent wins by the same student never lose an increment.
func (h *SubmitChallengeHandler) keyLock(studentID, moduleID string) *sync.Mutex {
	key := studentID + "\x00" + moduleID

	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.locks[key]
	if !ok {
		l = &sync.Mutex{}
		h.locks[key] = l
	}
	return l
}

// Handle executes one challenge submission.
func (h *SubmitChallengeHandler) Handle(ctx context.Context, cmd SubmitChallengeCommand) (*SubmitChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_challenge: validation failed: %w", err)
	}

	st, err := h.studentRepo.GetOrCreate(ctx, student.ExternalID(cmd.ExternalStudentID), cmd.Username)
	if err != nil {
		return nil, fmt.Errorf("submit_challenge: student resolution failed: %w", err)
	}

	progress, err := h.challengeRepo.GetOrCreateProgress(ctx, st.ID, cmd.ModuleID, h.cfg.WinTarget)
	if err != nil {
		return nil, fmt.Errorf("submit_challenge: progress lookup failed: %w", err)
	}

	// Completed modules reject submissions before any external call is made.
	if progress.Completed {
		return &SubmitChallengeResult{
			Outcome:  challenge.OutcomeAlreadyCompleted,
			Progress: progress,
		}, nil
	}

	// Similarity gate against previously won questions in the module.
	vector, err := h.embedQuestion(ctx, cmd.Question)
	if err != nil {
		h.log.Warn("question embedding failed",
			logger.StudentID(st.ID), logger.ModuleID(cmd.ModuleID), logger.Err(err))
		return &SubmitChallengeResult{Outcome: challenge.OutcomeTransientError, Progress: progress}, nil
	}

	matched, similarity, found, err := h.vectors.QueryNearest(ctx, cmd.ModuleID, vector)
	if err != nil {
		return nil, fmt.Errorf("submit_challenge: similarity lookup failed: %w", err)
	}
	if found && similarity >= h.cfg.SimilarityThreshold {
		h.log.Info("duplicate challenge question rejected",
			logger.StudentID(st.ID),
			logger.ModuleID(cmd.ModuleID),
			logger.Float64("similarity", similarity),
		)
		return &SubmitChallengeResult{
			Outcome:         challenge.OutcomeDuplicate,
			Progress:        progress,
			MatchedQuestion: matched,
			Similarity:      similarity,
		}, nil
	}

	// Let the quiz model take its shot at the question.
	passages, err := h.retriever.Retrieve(ctx, cmd.Question, cmd.ModuleID, h.cfg.RetrievalK)
	if err != nil {
		h.log.Warn("challenge context retrieval failed", logger.ModuleID(cmd.ModuleID), logger.Err(err))
		passages = nil
	}
	contextText := strings.Join(passages, "\n\n")

	modelAnswer, err := h.quizModel.Answer(ctx, cmd.Question, contextText)
	if err != nil {
		h.log.Warn("quiz model call failed",
			logger.StudentID(st.ID), logger.ModuleID(cmd.ModuleID), logger.Err(err))
		return &SubmitChallengeResult{Outcome: challenge.OutcomeTransientError, Progress: progress}, nil
	}

	// Judge both answers against the same question.
	studentJudgment, err := h.judge.Judge(ctx, ai.JudgeRequest{
		Question: cmd.Question,
		Answer:   cmd.Answer,
		Context:  contextText,
	})
	if err != nil {
		return &SubmitChallengeResult{Outcome: challenge.OutcomeTransientError, Progress: progress}, nil
	}

	modelJudgment, err := h.judge.Judge(ctx, ai.JudgeRequest{
		Question: cmd.Question,
		Answer:   modelAnswer,
		Context:  contextText,
	})
	if err != nil {
		return &SubmitChallengeResult{Outcome: challenge.OutcomeTransientError, Progress: progress}, nil
	}

	attempt, err := challenge.NewAttempt(
		st.ID, cmd.ModuleID, cmd.Question, cmd.Answer, modelAnswer,
		studentJudgment.Correct, modelJudgment.Correct,
	)
	if err != nil {
		return nil, err
	}

	outcome := challenge.OutcomeLost
	if attempt.Won {
		outcome = challenge.OutcomeWon
		attempt.EmbeddingID = attempt.ID
	}

	// The audit row goes in first: it consumes nothing, so a failure here
	// leaves the question unburned and the win uncounted.
	if err := h.challengeRepo.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("submit_challenge: failed to record attempt: %w", err)
	}

	if attempt.Won {
		// The embedding goes in before the progress write so the question
		// blocks reuse even if the win increment races a concurrent
		// submission.
		if err := h.vectors.Upsert(ctx, attempt.ID, cmd.ModuleID, cmd.Question, vector); err != nil {
			return nil, fmt.Errorf("submit_challenge: failed to index won question: %w", err)
		}

		progress, err = h.recordWin(ctx, st.ID, cmd.ModuleID)
		if err != nil {
			return nil, err
		}
	}

	h.log.Info("challenge judged",
		logger.StudentID(st.ID),
		logger.ModuleID(cmd.ModuleID),
		logger.String("outcome", string(outcome)),
		logger.Int("win_count", progress.WinCount),
		logger.Bool("completed", progress.Completed),
	)

	return &SubmitChallengeResult{
		Outcome:     outcome,
		Attempt:     attempt,
		Progress:    progress,
		ModelAnswer: modelAnswer,
	}, nil
}

// recordWin folds one win into the progress under the (student, module) key
// lock. The progress is re-read inside the lock so concurrent wins observe
// each other's increments; a win landing after a racing completion leaves
// the counter at the target.
func (h *SubmitChallengeHandler) recordWin(ctx context.Context, studentID, moduleID string) (*challenge.Progress, error) {
	l := h.keyLock(studentID, moduleID)
	l.Lock()
	defer l.Unlock()

	progress, err := h.challengeRepo.GetOrCreateProgress(ctx, studentID, moduleID, h.cfg.WinTarget)
	if err != nil {
		return nil, fmt.Errorf("submit_challenge: progress re-read failed: %w", err)
	}
	if progress.Completed {
		return progress, nil
	}

	if err := progress.RecordWin(); err != nil {
		return nil, err
	}
	if err := h.challengeRepo.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("submit_challenge: failed to save progress: %w", err)
	}
	return progress, nil
}

func (h *SubmitChallengeHandler) embedQuestion(ctx context.Context, question string) ([]float64, error) {
	var vector []float64
	err := h.embedRetrier.Do(ctx, func(ctx context.Context) error {
		v, err := h.embedder.Embed(ctx, question)
		if err != nil {
			return retry.Retryable(err)
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}
