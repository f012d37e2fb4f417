// Package ingest orchestrates the document ingestion pipeline: extract,
// fingerprint, chunk, embed, store.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fernlabs/corpusd/internal/chunk"
	"github.com/fernlabs/corpusd/internal/events"
	"github.com/fernlabs/corpusd/internal/extract"
	"github.com/fernlabs/corpusd/internal/fingerprint"
	"github.com/fernlabs/corpusd/internal/vectorstore"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("corpusd.ingest")

// Outcome classifies what an ingestion did.
type Outcome string

const (
	// OutcomeProcessed means the document was chunked, embedded and stored.
	OutcomeProcessed Outcome = "processed"

	// OutcomeAlreadyProcessed means an identical document was stored
	// earlier; no new records were written.
	OutcomeAlreadyProcessed Outcome = "already_processed"

	// OutcomeNoContent means extraction yielded no usable text.
	OutcomeNoContent Outcome = "no_content"
)

// Result reports a completed ingestion.
type Result struct {
	Outcome     Outcome
	Fingerprint string
	Source      string
	Chunks      int
}

// Embedder is the embedding surface the pipeline needs. *embeddings.Gateway
// satisfies it.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Pipeline runs the ingestion stages in order. Any stage error aborts the
// whole ingestion; nothing is written unless every chunk embedded cleanly.
type Pipeline struct {
	chunker   *chunk.Chunker
	embedder  Embedder
	store     vectorstore.Store
	publisher events.Publisher
	logger    *zap.Logger

	// extractText is swappable in tests.
	extractText func(data []byte) (string, error)
}

// NewPipeline wires the pipeline. publisher may be nil (events disabled).
func NewPipeline(chunker *chunk.Chunker, embedder Embedder, store vectorstore.Store, publisher events.Publisher, logger *zap.Logger) (*Pipeline, error) {
	if chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chunker:     chunker,
		embedder:    embedder,
		store:       store,
		publisher:   publisher,
		logger:      logger,
		extractText: extract.Text,
	}, nil
}

// Ingest runs the full pipeline for one uploaded document. source is the
// client-supplied filename, kept as provenance on every stored chunk.
func (p *Pipeline) Ingest(ctx context.Context, source string, data []byte) (Result, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("bytes", len(data)),
	)

	text, err := p.extractText(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("extracting %s: %w", source, err)
	}

	if strings.TrimSpace(text) == "" {
		p.logger.Info("document has no extractable text", zap.String("source", source))
		span.SetStatus(codes.Ok, "no content")
		return Result{Outcome: OutcomeNoContent, Source: source}, nil
	}

	fp := fingerprint.Hash(text)
	span.SetAttributes(attribute.String("fingerprint", fp))

	exists, err := p.store.ExistsFingerprint(ctx, fp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("checking fingerprint: %w", err)
	}
	if exists {
		p.logger.Info("document already ingested",
			zap.String("source", source),
			zap.String("fingerprint", fp),
		)
		span.SetStatus(codes.Ok, "already processed")
		return Result{Outcome: OutcomeAlreadyProcessed, Fingerprint: fp, Source: source}, nil
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		span.SetStatus(codes.Ok, "no content")
		return Result{Outcome: OutcomeNoContent, Fingerprint: fp, Source: source}, nil
	}
	span.SetAttributes(attribute.Int("chunks", len(chunks)))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	now := time.Now().UTC()
	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ID:          fingerprint.RecordID(fp, c.Index),
			Content:     c.Text,
			Embedding:   vectors[i],
			Fingerprint: fp,
			ChunkIndex:  c.Index,
			Metadata: map[string]interface{}{
				"overlap": c.Overlap,
			},
			Source:    source,
			CreatedAt: now,
		}
	}

	written, err := p.store.UpsertRecords(ctx, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("storing %d records: %w", len(records), err)
	}

	result := Result{Fingerprint: fp, Source: source, Chunks: len(chunks)}
	if written == 0 {
		// A concurrent ingestion of the same document won the race; the
		// store turned every insert into a no-op.
		result.Outcome = OutcomeAlreadyProcessed
	} else {
		result.Outcome = OutcomeProcessed
	}

	p.logger.Info("document ingested",
		zap.String("source", source),
		zap.String("fingerprint", fp),
		zap.Int("chunks", len(chunks)),
		zap.Int("records_written", written),
		zap.String("outcome", string(result.Outcome)),
	)

	p.publish(ctx, result)

	span.SetStatus(codes.Ok, "success")
	return result, nil
}

// publish emits the completion event. Failures are logged, never returned:
// the document is already committed.
func (p *Pipeline) publish(ctx context.Context, result Result) {
	if p.publisher == nil {
		return
	}
	event := events.IngestCompleted{
		Fingerprint: result.Fingerprint,
		Source:      result.Source,
		Chunks:      result.Chunks,
		Outcome:     string(result.Outcome),
		At:          time.Now().UTC(),
	}
	if err := p.publisher.PublishIngestCompleted(ctx, event); err != nil {
		p.logger.Warn("failed to publish ingestion event",
			zap.String("fingerprint", result.Fingerprint),
			zap.Error(err),
		)
	}
}
