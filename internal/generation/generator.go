// Package generation provides text completion via a generation provider.
package generation

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Sentinel errors for generation operations.
var (
	// ErrProvider indicates an upstream generation provider failure.
	// Transient; callers surface a retry-later message to users.
	ErrProvider = errors.New("generation provider failure")

	// ErrInvalidConfig indicates invalid generation configuration.
	ErrInvalidConfig = errors.New("invalid generation configuration")
)

// Generator maps a prompt to a text completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIConfig holds configuration for the OpenAI chat generator.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the chat model name.
	// Default: "gpt-4o-mini"
	Model string
}

// ApplyDefaults sets default values for unset fields.
func (c *OpenAIConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
}

// Validate validates the configuration.
func (c OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key required", ErrInvalidConfig)
	}
	return nil
}

// OpenAIGenerator generates completions via the OpenAI chat API.
// Temperature is pinned to zero: grounded answers should restate the
// retrieved context, not improvise around it.
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIGenerator creates an OpenAI chat generator.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &OpenAIGenerator{
		client: openai.NewClient(cfg.APIKey),
		config: cfg,
	}, nil
}

// Generate runs one chat completion for the prompt. No retry is attempted;
// transient failures surface as ErrProvider for the caller to report.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}

	return resp.Choices[0].Message.Content, nil
}
