package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernlabs/corpusd/internal/vectorstore"
)

type stubEmbedder struct {
	dimension int
	embedding []float32
	err       error
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.embedding, nil
}

func (s *stubEmbedder) Dimension() int { return s.dimension }

type stubStore struct {
	vectorstore.Store
	dimension int
	results   []vectorstore.SearchResult
	err       error
	gotK      int
}

func (s *stubStore) SimilaritySearch(_ context.Context, _ []float32, k int) ([]vectorstore.SearchResult, error) {
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubStore) Dimension() int { return s.dimension }

func TestNewEngine_DimensionMismatch(t *testing.T) {
	embedder := &stubEmbedder{dimension: 768}
	store := &stubStore{dimension: 1536}

	_, err := NewEngine(embedder, store, 3, nil)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "768")
	assert.Contains(t, err.Error(), "1536")
}

func TestNewEngine_DefaultK(t *testing.T) {
	engine, err := NewEngine(&stubEmbedder{dimension: 4}, &stubStore{dimension: 4}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultK, engine.K())
}

func TestEngine_Retrieve(t *testing.T) {
	results := []vectorstore.SearchResult{
		{ID: "a", Content: "first", Score: 0.93, Source: "doc.pdf"},
		{ID: "b", Content: "second", Score: 0.71, Source: "doc.pdf"},
	}
	store := &stubStore{dimension: 4, results: results}
	engine, err := NewEngine(&stubEmbedder{dimension: 4, embedding: []float32{1, 0, 0, 0}}, store, 5, nil)
	require.NoError(t, err)

	got, err := engine.Retrieve(context.Background(), "what is rag?")
	require.NoError(t, err)
	assert.Equal(t, results, got)
	assert.Equal(t, 5, store.gotK)
}

func TestEngine_RetrieveEmptyStore(t *testing.T) {
	store := &stubStore{dimension: 4, results: []vectorstore.SearchResult{}}
	engine, err := NewEngine(&stubEmbedder{dimension: 4, embedding: []float32{1, 0, 0, 0}}, store, 3, nil)
	require.NoError(t, err)

	got, err := engine.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_RetrieveEmptyQuery(t *testing.T) {
	engine, err := NewEngine(&stubEmbedder{dimension: 4}, &stubStore{dimension: 4}, 3, nil)
	require.NoError(t, err)

	_, err = engine.Retrieve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestEngine_RetrieveEmbedderError(t *testing.T) {
	embedErr := errors.New("provider down")
	engine, err := NewEngine(&stubEmbedder{dimension: 4, err: embedErr}, &stubStore{dimension: 4}, 3, nil)
	require.NoError(t, err)

	_, err = engine.Retrieve(context.Background(), "query")
	assert.ErrorIs(t, err, embedErr)
}

func TestEngine_RetrieveStoreError(t *testing.T) {
	store := &stubStore{dimension: 4, err: vectorstore.ErrStore}
	engine, err := NewEngine(&stubEmbedder{dimension: 4, embedding: []float32{1, 0, 0, 0}}, store, 3, nil)
	require.NoError(t, err)

	_, err = engine.Retrieve(context.Background(), "query")
	assert.ErrorIs(t, err, vectorstore.ErrStore)
}
