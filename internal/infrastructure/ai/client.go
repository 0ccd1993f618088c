package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
	"github.com/chibi-hub/chibi-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// One OpenAI-compatible endpoint serves the judge, quiz-model, and embedding
// roles. All calls go through a shared circuit breaker so a dead provider
// fails fast instead of stacking up slow requests.
// ══════════════════════════════════════════════════════════════════════════════

// Client implements Judge, QuizModel, and Embedder over an OpenAI-compatible
// API.
type Client struct {
	api     *openai.Client
	config  ClientConfig
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a capability client.
func NewClient(config ClientConfig, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("ai: API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		apiConfig.BaseURL = config.BaseURL
	}

	breaker := circuitbreaker.AIBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("ai breaker state change",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &Client{
		api:     openai.NewClientWithConfig(apiConfig),
		config:  config,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// judgeSystemPrompt frames the evaluation role.
const judgeSystemPrompt = `You are a strict but fair grader for a university course.
Evaluate the student's answer against the question, the rubric, and the course material.
Respond only with the requested JSON.`

// Judge evaluates one answer. The response is schema-validated before use;
// a malformed response is returned as a retryable upstream error.
func (c *Client) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	var sb strings.Builder
	if req.Rubric != "" {
		fmt.Fprintf(&sb, "Rubric:\n%s\n\n", req.Rubric)
	}
	if req.Context != "" {
		fmt.Fprintf(&sb, "Course material:\n%s\n\n", req.Context)
	}
	fmt.Fprintf(&sb, "Question:\n%s\n\nAnswer:\n%s\n", req.Question, req.Answer)

	chatReq := openai.ChatCompletionRequest{
		Model: c.config.JudgeModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.JudgeTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	content, err := c.complete(ctx, chatReq)
	if err != nil {
		return nil, shared.WrapError("ai", "Judge", shared.ErrServiceUnavailable, "judge call failed", err)
	}

	return parseJudgment([]byte(content))
}

// quizSystemPrompt frames the quiz-model role.
const quizSystemPrompt = `You are a knowledgeable teaching assistant.
Answer the question concisely using the provided course material when it is relevant.`

// Answer asks the quiz model to answer a student-authored question.
func (c *Client) Answer(ctx context.Context, question, context_ string) (string, error) {
	var sb strings.Builder
	if context_ != "" {
		fmt.Fprintf(&sb, "Course material:\n%s\n\n", context_)
	}
	fmt.Fprintf(&sb, "Question:\n%s\n", question)

	chatReq := openai.ChatCompletionRequest{
		Model: c.config.QuizModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: quizSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.QuizTemperature,
	}

	content, err := c.complete(ctx, chatReq)
	if err != nil {
		return "", shared.WrapError("ai", "Answer", shared.ErrServiceUnavailable, "quiz model call failed", err)
	}
	return content, nil
}

// Embed computes a fixed-length vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var vector []float64

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.config.EmbeddingModel),
			Input: []string{text},
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}

		raw := resp.Data[0].Embedding
		vector = make([]float64, len(raw))
		for i, v := range raw {
			vector[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, shared.WrapError("ai", "Embed", shared.ErrServiceUnavailable, "embedding call failed", err)
	}
	return vector, nil
}

// complete runs one chat completion through the breaker and returns the
// first choice's content.
func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	var content string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	return content, err
}
