package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// Deterministic capability implementations returning canned responses in
// FIFO order. Used by the engine's tests; kept out of _test files so other
// packages can reuse them.
// ══════════════════════════════════════════════════════════════════════════════

// MockJudgment is one canned judge response.
type MockJudgment struct {
	Judgment *Judgment
	Err      error
}

// MockJudge returns canned judgments in FIFO order and records requests.
type MockJudge struct {
	mu        sync.Mutex
	responses []MockJudgment
	Calls     []JudgeRequest
}

// NewMockJudge creates a MockJudge with the given canned responses.
func NewMockJudge(responses ...MockJudgment) *MockJudge {
	return &MockJudge{responses: responses}
}

// Judge returns the next canned judgment, or an unavailable error when the
// queue is empty.
func (m *MockJudge) Judge(_ context.Context, req JudgeRequest) (*Judgment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, shared.ErrJudgeUnavailable
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Judgment, nil
}

// MockAnswer is one canned quiz-model response.
type MockAnswer struct {
	Text string
	Err  error
}

// MockQuizModel returns canned answers in FIFO order.
type MockQuizModel struct {
	mu        sync.Mutex
	responses []MockAnswer
	Calls     []string
}

// NewMockQuizModel creates a MockQuizModel with the given canned answers.
func NewMockQuizModel(responses ...MockAnswer) *MockQuizModel {
	return &MockQuizModel{responses: responses}
}

// Answer returns the next canned answer.
func (m *MockQuizModel) Answer(_ context.Context, question, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, question)

	if len(m.responses) == 0 {
		return "", shared.ErrQuizModelFailed
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// MockEmbedder returns a fixed vector per text, deterministic across calls.
// When Vectors has no entry for a text, Fallback is returned.
type MockEmbedder struct {
	mu       sync.Mutex
	Vectors  map[string][]float64
	Fallback []float64
	Err      error
	Calls    []string
}

// Embed returns the configured vector for the text.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, text)

	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	if m.Fallback != nil {
		return m.Fallback, nil
	}
	return nil, shared.ErrEmbeddingUnavailable
}

// StaticRetriever returns the same passages for every query. Set Err to
// simulate a retrieval outage; it wraps ErrRetrievalUnavailable.
type StaticRetriever struct {
	Passages []string
	Err      error
}

// Retrieve returns the configured passages, truncated to k.
func (r StaticRetriever) Retrieve(_ context.Context, _, _ string, k int) ([]string, error) {
	if r.Err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRetrievalUnavailable, r.Err)
	}
	if k > 0 && k < len(r.Passages) {
		return r.Passages[:k], nil
	}
	return r.Passages, nil
}
