// Package retrieval embeds queries and finds the most similar stored chunks.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fernlabs/corpusd/internal/vectorstore"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("corpusd.retrieval")

var (
	// ErrConfiguration indicates the engine was wired with incompatible
	// components, such as mismatched embedding dimensions.
	ErrConfiguration = errors.New("invalid retrieval configuration")

	// ErrEmptyQuery indicates a blank query string.
	ErrEmptyQuery = errors.New("query is empty")
)

// DefaultK is the number of chunks retrieved per query.
const DefaultK = 3

// Embedder is the embedding surface the engine needs. *embeddings.Gateway
// satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Engine runs similarity retrieval over the vector store.
type Engine struct {
	embedder Embedder
	store    vectorstore.Store
	k        int
	logger   *zap.Logger
}

// NewEngine builds the engine. It fails fast when the embedder and store
// disagree on dimension: queries would never match anything, and catching
// that at startup beats returning empty results forever.
func NewEngine(embedder Embedder, store vectorstore.Store, k int, logger *zap.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrConfiguration)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrConfiguration)
	}
	if k == 0 {
		k = DefaultK
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrConfiguration, k)
	}
	if embedder.Dimension() != store.Dimension() {
		return nil, fmt.Errorf("%w: embedder produces dimension %d but store expects %d",
			ErrConfiguration, embedder.Dimension(), store.Dimension())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{embedder: embedder, store: store, k: k, logger: logger}, nil
}

// K returns the configured result count.
func (e *Engine) K() int { return e.k }

// Retrieve embeds the query and returns up to K chunks ordered by descending
// similarity. An empty store yields an empty slice, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]vectorstore.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.Retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("k", e.k))

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := e.store.SimilaritySearch(ctx, embedding, e.k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching store: %w", err)
	}

	e.logger.Debug("retrieved chunks",
		zap.Int("requested", e.k),
		zap.Int("returned", len(results)),
	)

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}
