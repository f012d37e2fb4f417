package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fernlabs/corpusd/internal/fingerprint"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Tracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("corpusd.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means in-memory
	// only (tests).
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the collection name.
	// Default: "corpus_chunks"
	Collection string

	// Dimension is the expected embedding dimension.
	Dimension int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "corpus_chunks"
	}
}

// Validate validates the configuration.
func (c ChromemConfig) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateName(c.Collection)
}

// ChromemStore is a Store implementation using chromem-go, an embeddable
// pure-Go vector database. It needs no external service, which makes it the
// backend for local development and tests.
//
// Record IDs are deterministic per (fingerprint, chunk index), so duplicate
// ingestions converge: records whose ID already exists are skipped.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger
}

// NewChromemStore creates a ChromemStore, persistent when config.Path is set.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *chromem.DB
		err error
	)
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, perr := expandPath(config.Path)
		if perr != nil {
			return nil, fmt.Errorf("expanding path: %w", perr)
		}
		if perr := os.MkdirAll(path, 0o755); perr != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, perr)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	}

	// All records arrive with embeddings computed upstream; the store
	// itself never embeds.
	noEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("%w: store does not generate embeddings", ErrStore)
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %s: %v", ErrStore, config.Collection, err)
	}

	logger.Info("chromem store initialized",
		zap.String("path", config.Path),
		zap.String("collection", config.Collection),
		zap.Int("dimension", config.Dimension),
	)

	return &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
	}, nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// UpsertRecords adds records, skipping IDs that already exist.
func (s *ChromemStore) UpsertRecords(ctx context.Context, records []Record) (int, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpsertRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))

	if len(records) == 0 {
		return 0, ErrEmptyRecords
	}

	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) != s.config.Dimension {
			return 0, fmt.Errorf("%w: record %s has dimension %d, store expects %d",
				ErrInvalidConfig, r.ID, len(r.Embedding), s.config.Dimension)
		}
		if _, err := s.collection.GetByID(ctx, r.ID); err == nil {
			continue // already stored; never updated, only skipped
		}
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Embedding: r.Embedding,
			Metadata:  recordMetadata(r),
		})
	}

	if len(docs) > 0 {
		if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
			upsertsTotal.WithLabelValues("chromem", "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("%w: adding documents: %v", ErrStore, err)
		}
	}

	upsertsTotal.WithLabelValues("chromem", "success").Inc()
	recordsWritten.WithLabelValues("chromem").Add(float64(len(docs)))
	span.SetAttributes(attribute.Int("records_written", len(docs)))
	span.SetStatus(codes.Ok, "success")

	return len(docs), nil
}

// recordMetadata flattens a Record into chromem's string-valued metadata.
func recordMetadata(r Record) map[string]string {
	meta := map[string]string{
		"fingerprint": r.Fingerprint,
		"chunk_index": strconv.Itoa(r.ChunkIndex),
		"source":      r.Source,
		"created_at":  r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range r.Metadata {
		if _, taken := meta[k]; taken {
			continue
		}
		meta[k] = fmt.Sprintf("%v", v)
	}
	return meta
}

// SimilaritySearch runs cosine similarity over the collection.
func (s *ChromemStore) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.SimilaritySearch")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	start := time.Now()

	// chromem requires nResults <= stored count.
	count := s.collection.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		searchesTotal.WithLabelValues("chromem", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: query: %v", ErrStore, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Source:   r.Metadata["source"],
			Metadata: metadataFromStrings(r.Metadata),
		}
	}

	searchesTotal.WithLabelValues("chromem", "success").Inc()
	searchDuration.WithLabelValues("chromem").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("results_count", len(searchResults)))
	span.SetStatus(codes.Ok, "success")

	return searchResults, nil
}

// metadataFromStrings widens chromem's string metadata for the Store API.
func metadataFromStrings(meta map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// ExistsFingerprint checks for the document's first chunk. Chunk indices are
// dense and zero-based, so a document is present exactly when its chunk 0 is.
func (s *ChromemStore) ExistsFingerprint(ctx context.Context, fp string) (bool, error) {
	_, err := s.collection.GetByID(ctx, fingerprint.RecordID(fp, 0))
	return err == nil, nil
}

// Count returns the number of stored records.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Dimension returns the configured embedding dimension.
func (s *ChromemStore) Dimension() int {
	return s.config.Dimension
}

// Close is a no-op; chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}
