// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
	"github.com/chibi-hub/chibi-engine/internal/domain/quiz"
	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/internal/domain/student"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/ai"
	"github.com/chibi-hub/chibi-engine/pkg/logger"
	"github.com/chibi-hub/chibi-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE QUIZ ANSWER COMMAND
// Grades one free-form answer through the judge and folds the result into the
// student's mastery aggregate. The caller-supplied attempt ID makes the whole
// pipeline idempotent: replaying an already-recorded ID returns the stored
// outcome without calling the judge or touching the aggregate again.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateQuizAnswerCommand contains the data for one answer evaluation.
type EvaluateQuizAnswerCommand struct {
	// AttemptID is the caller-supplied idempotency key.
	AttemptID string

	// ExternalStudentID identifies the student on the chat platform.
	ExternalStudentID string

	// Username is the display name, used on first interaction.
	Username string

	// ConceptID identifies the concept the question targets.
	ConceptID string

	// Question is the question that was asked.
	Question string

	// Answer is the student's free-form answer.
	Answer string

	// Rubric frames what a good answer looks like.
	Rubric string
}

// Validate validates the command.
func (c EvaluateQuizAnswerCommand) Validate() error {
	if strings.TrimSpace(c.AttemptID) == "" {
		return shared.NewDomainError("quiz", "Evaluate", shared.ErrValidation, "attempt_id is required")
	}
	if c.ExternalStudentID == "" {
		return shared.NewDomainError("quiz", "Evaluate", shared.ErrValidation, "external_student_id is required")
	}
	if c.ConceptID == "" {
		return shared.NewDomainError("quiz", "Evaluate", shared.ErrValidation, "concept_id is required")
	}
	if strings.TrimSpace(c.Answer) == "" {
		return shared.NewDomainError("quiz", "Evaluate", shared.ErrValidation, "answer is required")
	}
	return nil
}

// EvaluateQuizAnswerResult contains the outcome of one evaluation.
type EvaluateQuizAnswerResult struct {
	// Attempt is the recorded attempt (stored one when replayed).
	Attempt *quiz.Attempt

	// Mastery is the updated aggregate. Nil for error attempts and for
	// replays, where the aggregate was not touched.
	Mastery *mastery.Record

	// Replayed is true when the attempt ID had already been recorded.
	Replayed bool
}

// EvaluateQuizAnswerHandler handles the EvaluateQuizAnswerCommand.
type EvaluateQuizAnswerHandler struct {
	studentRepo student.Repository
	attemptRepo quiz.Repository
	tracker     *mastery.Tracker
	judge       ai.Judge
	retriever   ai.Retriever
	retrier     *retry.Retrier
	log         *logger.Logger
}

// NewEvaluateQuizAnswerHandler creates a new EvaluateQuizAnswerHandler.
func NewEvaluateQuizAnswerHandler(
	studentRepo student.Repository,
	attemptRepo quiz.Repository,
	tracker *mastery.Tracker,
	judge ai.Judge,
	retriever ai.Retriever,
	log *logger.Logger,
) *EvaluateQuizAnswerHandler {
	if retriever == nil {
		retriever = ai.NopRetriever{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &EvaluateQuizAnswerHandler{
		studentRepo: studentRepo,
		attemptRepo: attemptRepo,
		tracker:     tracker,
		judge:       judge,
		retriever:   retriever,
		retrier:     retry.JudgeRetrier(),
		log:         log,
	}
}

// Handle executes the evaluation pipeline.
func (h *EvaluateQuizAnswerHandler) Handle(ctx context.Context, cmd EvaluateQuizAnswerCommand) (*EvaluateQuizAnswerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate_quiz_answer: validation failed: %w", err)
	}

	// Idempotency check before any external call.
	if stored, err := h.attemptRepo.GetByID(ctx, cmd.AttemptID); err == nil {
		return &EvaluateQuizAnswerResult{Attempt: stored, Replayed: true}, nil
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("evaluate_quiz_answer: idempotency lookup failed: %w", err)
	}

	st, err := h.studentRepo.GetOrCreate(ctx, student.ExternalID(cmd.ExternalStudentID), cmd.Username)
	if err != nil {
		return nil, fmt.Errorf("evaluate_quiz_answer: student resolution failed: %w", err)
	}

	judgment, err := h.judgeWithRetry(ctx, cmd)
	if err != nil {
		return h.recordError(ctx, cmd, st, err)
	}

	attempt, err := quiz.NewGraded(
		cmd.AttemptID, st.ID, cmd.ConceptID, cmd.Answer,
		judgment.Quality, judgment.Correct, judgment.Feedback,
	)
	if err != nil {
		return nil, err
	}

	if err := h.attemptRepo.Create(ctx, attempt); err != nil {
		// Lost a race against a concurrent evaluation of the same ID; the
		// winner owns the aggregate update.
		if shared.IsConflict(err) {
			stored, getErr := h.attemptRepo.GetByID(ctx, cmd.AttemptID)
			if getErr != nil {
				return nil, getErr
			}
			return &EvaluateQuizAnswerResult{Attempt: stored, Replayed: true}, nil
		}
		return nil, fmt.Errorf("evaluate_quiz_answer: failed to record attempt: %w", err)
	}

	rec, err := h.tracker.Record(ctx, st.ID, cmd.ConceptID, judgment.Quality, judgment.Correct)
	if err != nil {
		return nil, fmt.Errorf("evaluate_quiz_answer: mastery update failed: %w", err)
	}

	h.log.Info("quiz answer graded",
		logger.AttemptID(cmd.AttemptID),
		logger.StudentID(st.ID),
		logger.ConceptID(cmd.ConceptID),
		logger.Float64("quality", judgment.Quality),
		logger.Bool("correct", judgment.Correct),
		logger.String("level", rec.Level.String()),
	)

	return &EvaluateQuizAnswerResult{Attempt: attempt, Mastery: rec}, nil
}

// judgeWithRetry calls the judge with bounded retries. Malformed responses
// and transient upstream failures are retried; anything else aborts at once.
func (h *EvaluateQuizAnswerHandler) judgeWithRetry(ctx context.Context, cmd EvaluateQuizAnswerCommand) (*ai.Judgment, error) {
	passages, err := h.retriever.Retrieve(ctx, cmd.Question, "", 3)
	if err != nil {
		// Retrieval enriches the evaluation but is not required for it.
		h.log.Warn("context retrieval failed", logger.AttemptID(cmd.AttemptID), logger.Err(err))
		passages = nil
	}

	req := ai.JudgeRequest{
		Rubric:   cmd.Rubric,
		Question: cmd.Question,
		Answer:   cmd.Answer,
		Context:  strings.Join(passages, "\n\n"),
	}

	var judgment *ai.Judgment
	err = h.retrier.Do(ctx, func(ctx context.Context) error {
		j, err := h.judge.Judge(ctx, req)
		if err != nil {
			h.log.Warn("judge call failed", logger.AttemptID(cmd.AttemptID), logger.Err(err))
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		}
		judgment = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return judgment, nil
}

// recordError persists an error attempt after the judge failed for good,
// then reports the failure to the caller as ErrJudgeFailed. The attempt is
// kept for audit; the mastery aggregate is never touched.
func (h *EvaluateQuizAnswerHandler) recordError(ctx context.Context, cmd EvaluateQuizAnswerCommand, st *student.Student, judgeErr error) (*EvaluateQuizAnswerResult, error) {
	h.log.Error("judge failed after retries",
		logger.AttemptID(cmd.AttemptID),
		logger.StudentID(st.ID),
		logger.Err(judgeErr),
	)

	attempt, err := quiz.NewErrored(cmd.AttemptID, st.ID, cmd.ConceptID, cmd.Answer)
	if err != nil {
		return nil, err
	}

	if err := h.attemptRepo.Create(ctx, attempt); err != nil {
		if shared.IsConflict(err) {
			stored, getErr := h.attemptRepo.GetByID(ctx, cmd.AttemptID)
			if getErr != nil {
				return nil, getErr
			}
			return &EvaluateQuizAnswerResult{Attempt: stored, Replayed: true}, nil
		}
		return nil, fmt.Errorf("evaluate_quiz_answer: failed to record error attempt: %w", err)
	}

	return &EvaluateQuizAnswerResult{Attempt: attempt},
		fmt.Errorf("evaluate_quiz_answer: %w: %w", shared.ErrJudgeFailed, judgeErr)
}
