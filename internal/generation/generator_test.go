package generation

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIGenerator(t *testing.T) {
	tests := []struct {
		name    string
		config  OpenAIConfig
		wantErr bool
	}{
		{name: "valid", config: OpenAIConfig{APIKey: "sk-test"}},
		{name: "explicit model", config: OpenAIConfig{APIKey: "sk-test", Model: openai.GPT4o}},
		{name: "missing API key", config: OpenAIConfig{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewOpenAIGenerator(tt.config)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, g)
		})
	}
}

func TestOpenAIGenerator_DefaultModel(t *testing.T) {
	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, openai.GPT4oMini, g.config.Model)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
