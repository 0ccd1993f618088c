package ai

import "time"

// ClientConfig contains configuration for the AI capability client.
// A single OpenAI-compatible endpoint serves all three model roles.
type ClientConfig struct {
	// BaseURL is the API base URL (OpenAI-compatible).
	BaseURL string

	// APIKey authenticates requests.
	APIKey string

	// JudgeModel is the model used for evaluations.
	JudgeModel string

	// QuizModel is the model the students try to stump.
	QuizModel string

	// EmbeddingModel is the model used for question embeddings.
	EmbeddingModel string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxTokens caps completion length.
	MaxTokens int

	// Temperature for judge calls. Kept low for stable verdicts.
	JudgeTemperature float32

	// Temperature for quiz-model calls.
	QuizTemperature float32
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		JudgeModel:       "gpt-4o-mini",
		QuizModel:        "gpt-4o-mini",
		EmbeddingModel:   "text-embedding-3-small",
		Timeout:          30 * time.Second,
		MaxTokens:        1000,
		JudgeTemperature: 0.1,
		QuizTemperature:  0.3,
	}
}
