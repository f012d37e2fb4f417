// Package embeddings provides embedding generation for chunks and queries.
package embeddings

import (
	"context"
	"errors"
)

// Sentinel errors for embedding operations.
var (
	// ErrProvider indicates an upstream embedding provider failure
	// (timeout, rate limit, auth). Transient; surfaced to callers as a
	// retryable failure, never retried internally beyond the client's
	// own policy.
	ErrProvider = errors.New("embedding provider failure")

	// ErrDimensionMismatch indicates the provider returned a vector whose
	// dimension disagrees with the store's configured dimension. This is
	// model/config drift and fatal to the enclosing request.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid embeddings configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")
)

// Provider generates vector embeddings from text.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the configured model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}
