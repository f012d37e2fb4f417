package embeddings

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIConfig holds configuration for the OpenAI embedding provider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the embedding model name.
	// Default: "text-embedding-3-small"
	Model string

	// Dimension is the embedding dimension the model produces.
	// Default: 1536 (text-embedding-3-small)
	Dimension int

	// BatchSize caps how many texts are sent per API call.
	// Default: 64
	BatchSize int

	// RequestsPerSecond is the client-side rate limit for API calls.
	// Default: 5
	RequestsPerSecond float64
}

// ApplyDefaults sets default values for unset fields.
func (c *OpenAIConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = string(openai.SmallEmbedding3)
	}
	if c.Dimension == 0 {
		c.Dimension = 1536
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
}

// Validate validates the configuration.
func (c OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	return nil
}

// OpenAIProvider generates embeddings via the OpenAI embeddings API.
//
// Calls are rate-limited client-side so bulk ingestion doesn't trip provider
// limits, and batched so large documents do not exceed per-request caps.
type OpenAIProvider struct {
	client  *openai.Client
	config  OpenAIConfig
	limiter *rate.Limiter
}

// NewOpenAIProvider creates an OpenAI embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &OpenAIProvider{
		client:  openai.NewClient(cfg.APIKey),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts, batching API calls.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vectors, err := p.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch issues one embeddings API call for the given texts.
func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(p.config.Model),
	})
	if err != nil {
		requestsTotal.WithLabelValues(p.config.Model, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	if len(resp.Data) != len(texts) {
		requestsTotal.WithLabelValues(p.config.Model, "error").Inc()
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProvider, len(resp.Data), len(texts))
	}

	// Place vectors by the provider-reported index rather than trusting
	// response order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProvider, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	requestsTotal.WithLabelValues(p.config.Model, "success").Inc()
	requestDuration.WithLabelValues(p.config.Model).Observe(time.Since(start).Seconds())
	textsEmbedded.Add(float64(len(texts)))

	return vectors, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *OpenAIProvider) Dimension() int {
	return p.config.Dimension
}

// Close is a no-op; the OpenAI client holds no persistent connections.
func (p *OpenAIProvider) Close() error {
	return nil
}
