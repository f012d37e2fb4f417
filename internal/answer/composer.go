// Package answer turns retrieved chunks and a user query into a grounded
// answer via a single generation call.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/fernlabs/corpusd/internal/generation"
	"github.com/fernlabs/corpusd/internal/vectorstore"
)

const promptTemplate = `Answer the following question based only on the provided context.
If the context does not contain enough information to answer the question,
say that you don't have enough information.

<context>
{{.context}}
</context>

Question: {{.question}}`

// emptyContext stands in when retrieval found nothing. The instruction above
// then steers the model to admit it cannot answer.
const emptyContext = "No context is available for this question."

// Composer formats grounded prompts and generates answers.
type Composer struct {
	template  prompts.PromptTemplate
	generator generation.Generator
	logger    *zap.Logger
}

// NewComposer wires the composer to a generator.
func NewComposer(generator generation.Generator, logger *zap.Logger) (*Composer, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	template := prompts.NewPromptTemplate(promptTemplate, []string{"context", "question"})
	template.TemplateFormat = prompts.TemplateFormatGoTemplate
	return &Composer{template: template, generator: generator, logger: logger}, nil
}

// Answer generates one grounded answer for the query from the retrieved
// chunks. Chunks arrive ordered by similarity and are passed through in that
// order, each tagged with its source document.
func (c *Composer) Answer(ctx context.Context, query string, chunks []vectorstore.SearchResult) (string, error) {
	prompt, err := c.template.Format(map[string]any{
		"context":  formatContext(chunks),
		"question": query,
	})
	if err != nil {
		return "", fmt.Errorf("formatting prompt: %w", err)
	}

	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	c.logger.Debug("answer generated",
		zap.Int("context_chunks", len(chunks)),
		zap.Int("answer_length", len(answer)),
	)

	return answer, nil
}

// formatContext renders retrieved chunks as source-tagged passages.
func formatContext(chunks []vectorstore.SearchResult) string {
	if len(chunks) == 0 {
		return emptyContext
	}
	passages := make([]string, len(chunks))
	for i, chunk := range chunks {
		passages[i] = fmt.Sprintf("[source: %s]\n%s", chunk.Source, chunk.Content)
	}
	return strings.Join(passages, "\n\n")
}
