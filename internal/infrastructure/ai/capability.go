// Package ai implements the external AI capabilities the engine consumes:
// judging free-form answers, answering questions with the quiz model,
// computing text embeddings, and retrieving context passages.
//
// Every response from these capabilities is untrusted text; the client
// validates judge output against a strict JSON schema at the boundary and
// converts violations into upstream-service errors before anything reaches
// persisted state.
package ai

import "context"

// Judgment is a validated evaluation of one answer.
type Judgment struct {
	// Quality is the 0-5 quality score.
	Quality float64

	// Correct is the correctness verdict.
	Correct bool

	// Feedback is short free-text feedback for the student.
	Feedback string
}

// JudgeRequest describes one answer to evaluate.
type JudgeRequest struct {
	// Rubric frames what a good answer looks like.
	Rubric string

	// Question is the question being answered.
	Question string

	// Answer is the answer under evaluation.
	Answer string

	// Context is retrieved course material supporting the evaluation.
	Context string
}

// Judge evaluates answers for quality and correctness.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}

// QuizModel produces an answer to a question, given retrieved context.
// This is the model the students try to stump.
type QuizModel interface {
	Answer(ctx context.Context, question, context_ string) (string, error)
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Retriever returns the most relevant course passages for a query, scoped
// to one module. The retrieval pipeline itself lives outside the engine.
type Retriever interface {
	Retrieve(ctx context.Context, query, moduleID string, k int) ([]string, error)
}

// NopRetriever satisfies Retriever when no retrieval pipeline is wired.
type NopRetriever struct{}

// Retrieve returns no passages.
func (NopRetriever) Retrieve(ctx context.Context, query, moduleID string, k int) ([]string, error) {
	return nil, nil
}
