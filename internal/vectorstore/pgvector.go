package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Tracer for OpenTelemetry instrumentation.
var pgTracer = otel.Tracer("corpusd.vectorstore.pgvector")

// PGVectorConfig holds configuration for the PostgreSQL + pgvector backend.
type PGVectorConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Table is the table name for chunk records.
	// Default: "corpus_chunks"
	Table string

	// Dimension is the embedding dimension of the vector column.
	Dimension int

	// MaxConns bounds the connection pool.
	// Default: 5
	MaxConns int32

	// ConnectTimeout bounds the initial connection attempt.
	// Default: 10s
	ConnectTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *PGVectorConfig) ApplyDefaults() {
	if c.Table == "" {
		c.Table = "corpus_chunks"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 5
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// Validate validates the configuration.
func (c PGVectorConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: DSN required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateName(c.Table)
}

// PGVectorStore is a Store implementation backed by PostgreSQL with the
// pgvector extension.
//
// The UNIQUE (fingerprint, chunk_index) constraint is what closes the
// ingestion check-then-act race: concurrent ingestions of identical content
// both reach the insert, and the loser's rows become conflict no-ops instead
// of duplicates or errors.
type PGVectorStore struct {
	pool   *pgxpool.Pool
	config PGVectorConfig
	logger *zap.Logger
}

// NewPGVectorStore connects to PostgreSQL, registers pgvector types on every
// pooled connection, and ensures the schema exists.
func NewPGVectorStore(ctx context.Context, config PGVectorConfig, logger *zap.Logger) (*PGVectorStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing DSN: %v", ErrInvalidConfig, err)
	}
	poolCfg.MaxConns = config.MaxConns
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &PGVectorStore{
		pool:   pool,
		config: config,
		logger: logger,
	}

	if err := store.migrate(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	logger.Info("pgvector store initialized",
		zap.String("table", config.Table),
		zap.Int("dimension", config.Dimension),
		zap.Int32("max_conns", config.MaxConns),
	)

	return store, nil
}

// migrate creates the extension, table, and indexes if they don't exist.
func (s *PGVectorStore) migrate(ctx context.Context) error {
	t := s.config.Table
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			fingerprint TEXT NOT NULL,
			chunk_index INT NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}',
			source      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (fingerprint, chunk_index)
		)`, t, s.config.Dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING gin (metadata)`, t, t),
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
	}
	return nil
}

// UpsertRecords inserts all records in one transaction. Conflicting
// (fingerprint, chunk_index) pairs are skipped via ON CONFLICT DO NOTHING;
// the returned count covers only rows actually written.
func (s *PGVectorStore) UpsertRecords(ctx context.Context, records []Record) (int, error) {
	ctx, span := pgTracer.Start(ctx, "PGVectorStore.UpsertRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))

	if len(records) == 0 {
		return 0, ErrEmptyRecords
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		upsertsTotal.WithLabelValues("pgvector", "error").Inc()
		return 0, fmt.Errorf("%w: begin: %v", ErrStore, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	insertSQL := fmt.Sprintf(`INSERT INTO %s
		(id, content, embedding, fingerprint, chunk_index, metadata, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint, chunk_index) DO NOTHING`, s.config.Table)

	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			upsertsTotal.WithLabelValues("pgvector", "error").Inc()
			return 0, fmt.Errorf("%w: marshaling metadata: %v", ErrStore, err)
		}
		batch.Queue(insertSQL,
			r.ID, r.Content, pgvector.NewVector(r.Embedding),
			r.Fingerprint, r.ChunkIndex, meta, r.Source, r.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	inserted := 0
	for range records {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			upsertsTotal.WithLabelValues("pgvector", "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("%w: insert: %v", ErrStore, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		upsertsTotal.WithLabelValues("pgvector", "error").Inc()
		return 0, fmt.Errorf("%w: batch close: %v", ErrStore, err)
	}

	if err := tx.Commit(ctx); err != nil {
		upsertsTotal.WithLabelValues("pgvector", "error").Inc()
		return 0, fmt.Errorf("%w: commit: %v", ErrStore, err)
	}

	upsertsTotal.WithLabelValues("pgvector", "success").Inc()
	recordsWritten.WithLabelValues("pgvector").Add(float64(inserted))
	span.SetAttributes(attribute.Int("records_written", inserted))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("upserted records",
		zap.Int("requested", len(records)),
		zap.Int("written", inserted),
	)

	return inserted, nil
}

// SimilaritySearch runs a cosine similarity query, ordered by descending
// similarity with creation time breaking ties.
func (s *PGVectorStore) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]SearchResult, error) {
	ctx, span := pgTracer.Start(ctx, "PGVectorStore.SimilaritySearch")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	start := time.Now()
	querySQL := fmt.Sprintf(`SELECT id, content, source, metadata,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, created_at ASC
		LIMIT $2`, s.config.Table)

	rows, err := s.pool.Query(ctx, querySQL, pgvector.NewVector(embedding), k)
	if err != nil {
		searchesTotal.WithLabelValues("pgvector", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: query: %v", ErrStore, err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, k)
	for rows.Next() {
		var (
			r    SearchResult
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &meta, &r.Score); err != nil {
			searchesTotal.WithLabelValues("pgvector", "error").Inc()
			return nil, fmt.Errorf("%w: scan: %v", ErrStore, err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("%w: unmarshaling metadata: %v", ErrStore, err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		searchesTotal.WithLabelValues("pgvector", "error").Inc()
		return nil, fmt.Errorf("%w: rows: %v", ErrStore, err)
	}

	searchesTotal.WithLabelValues("pgvector", "success").Inc()
	searchDuration.WithLabelValues("pgvector").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")

	return results, nil
}

// ExistsFingerprint reports whether any row carries the fingerprint.
func (s *PGVectorStore) ExistsFingerprint(ctx context.Context, fp string) (bool, error) {
	ctx, span := pgTracer.Start(ctx, "PGVectorStore.ExistsFingerprint")
	defer span.End()

	existsSQL := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE fingerprint = $1)`, s.config.Table)

	var exists bool
	if err := s.pool.QueryRow(ctx, existsSQL, fp).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("%w: fingerprint lookup: %v", ErrStore, err)
	}
	return exists, nil
}

// Count returns the number of stored records.
func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	countSQL := fmt.Sprintf(`SELECT count(*) FROM %s`, s.config.Table)

	var count int
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStore, err)
	}
	return count, nil
}

// Dimension returns the configured embedding dimension.
func (s *PGVectorStore) Dimension() int {
	return s.config.Dimension
}

// Close closes the connection pool.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
