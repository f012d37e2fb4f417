package embeddings

import (
	"context"
	"fmt"
)

// Gateway fronts a Provider and validates every returned vector against the
// store's configured dimension. A mismatch means the configured model and
// the store schema have drifted apart; the whole operation is aborted so no
// partial writes can occur.
type Gateway struct {
	provider  Provider
	dimension int
}

// NewGateway creates a Gateway enforcing the given dimension.
func NewGateway(provider Provider, dimension int) (*Gateway, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}
	return &Gateway{provider: provider, dimension: dimension}, nil
}

// EmbedDocuments embeds texts and validates every vector's dimension.
func (g *Gateway) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		if len(v) != g.dimension {
			return nil, fmt.Errorf("%w: provider returned dimension %d for text %d, store expects %d",
				ErrDimensionMismatch, len(v), i, g.dimension)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single query and validates its dimension.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := g.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) != g.dimension {
		return nil, fmt.Errorf("%w: provider returned dimension %d, store expects %d",
			ErrDimensionMismatch, len(vector), g.dimension)
	}
	return vector, nil
}

// Dimension returns the enforced embedding dimension.
func (g *Gateway) Dimension() int {
	return g.dimension
}

// Close releases the underlying provider.
func (g *Gateway) Close() error {
	return g.provider.Close()
}
