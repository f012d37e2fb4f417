package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns fixed-dimension vectors, or a fixed error.
type stubProvider struct {
	dimension int
	err       error
}

func (s *stubProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dimension)
	}
	return out, nil
}

func (s *stubProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubProvider) Dimension() int { return s.dimension }
func (s *stubProvider) Close() error   { return nil }

func TestNewGateway(t *testing.T) {
	tests := []struct {
		name      string
		provider  Provider
		dimension int
		wantErr   bool
	}{
		{name: "valid", provider: &stubProvider{dimension: 4}, dimension: 4},
		{name: "nil provider", provider: nil, dimension: 4, wantErr: true},
		{name: "zero dimension", provider: &stubProvider{dimension: 4}, dimension: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGateway(tt.provider, tt.dimension)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dimension, g.Dimension())
		})
	}
}

func TestGateway_EmbedDocuments_ValidDimension(t *testing.T) {
	g, err := NewGateway(&stubProvider{dimension: 8}, 8)
	require.NoError(t, err)

	vectors, err := g.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 8)
	}
}

func TestGateway_EmbedDocuments_DimensionMismatch(t *testing.T) {
	// Provider configured for 768 while the store expects 1536.
	g, err := NewGateway(&stubProvider{dimension: 768}, 1536)
	require.NoError(t, err)

	_, err = g.EmbedDocuments(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "768")
	assert.Contains(t, err.Error(), "1536")
}

func TestGateway_EmbedQuery_DimensionMismatch(t *testing.T) {
	g, err := NewGateway(&stubProvider{dimension: 4}, 16)
	require.NoError(t, err)

	_, err = g.EmbedQuery(context.Background(), "question")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestGateway_PropagatesProviderError(t *testing.T) {
	wrapped := errors.New("rate limited")
	g, err := NewGateway(&stubProvider{dimension: 4, err: wrapped}, 4)
	require.NoError(t, err)

	_, err = g.EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, wrapped)

	_, err = g.EmbedQuery(context.Background(), "a")
	assert.ErrorIs(t, err, wrapped)
}
