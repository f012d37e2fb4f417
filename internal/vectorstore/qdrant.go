package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fernlabs/corpusd/internal/fingerprint"
)

// Tracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("corpusd.vectorstore.qdrant")

// QdrantConfig configures the Qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334
	Port int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// APIKey is the optional API key. Empty for local development.
	APIKey string

	// Collection is the collection name.
	// Default: "corpus_chunks"
	Collection string

	// Dimension is the embedding dimension for the collection.
	Dimension int

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int

	// RequestTimeout bounds individual requests.
	// Default: 30 seconds
	RequestTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "corpus_chunks"
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateName(c.Collection)
}

// QdrantStore is a Store implementation backed by a Qdrant server over gRPC.
// Points carry deterministic UUIDs per (fingerprint, chunk index), so a
// re-ingested chunk overwrites its previous point instead of duplicating it.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore connects to Qdrant and ensures the collection exists with a
// cosine-distance vector index of the configured dimension.
func NewQdrantStore(ctx context.Context, config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qdrantConfig := &qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		APIKey: config.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	}
	if !config.UseTLS {
		qdrantConfig.GrpcOptions = append(qdrantConfig.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{client: client, config: config, logger: logger}

	healthCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: qdrant health check: %v", ErrConnectionFailed, err)
	}

	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection),
		zap.Int("dimension", config.Dimension),
	)

	return store, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	_, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); !ok || st.Code() != codes.NotFound {
		return fmt.Errorf("%w: inspecting collection %s: %v", ErrStore, s.config.Collection, err)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", ErrStore, s.config.Collection, err)
	}
	return nil
}

// UpsertRecords writes records as Qdrant points, skipping IDs that already
// exist. The returned count covers newly written points only.
func (s *QdrantStore) UpsertRecords(ctx context.Context, records []Record) (int, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.UpsertRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))

	if len(records) == 0 {
		return 0, ErrEmptyRecords
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	ids := make([]*qdrant.PointId, len(records))
	for i, r := range records {
		ids[i] = qdrant.NewIDUUID(r.ID)
	}
	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.config.Collection,
		Ids:            ids,
	})
	if err != nil {
		upsertsTotal.WithLabelValues("qdrant", "error").Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("%w: checking existing points: %v", ErrStore, err)
	}
	present := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		present[p.Id.GetUuid()] = struct{}{}
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if _, found := present[r.ID]; found {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(r.ID),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: recordPayload(r),
		})
	}

	if len(points) > 0 {
		_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         points,
		})
		if err != nil {
			upsertsTotal.WithLabelValues("qdrant", "error").Inc()
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return 0, fmt.Errorf("%w: upserting points: %v", ErrStore, err)
		}
	}

	upsertsTotal.WithLabelValues("qdrant", "success").Inc()
	recordsWritten.WithLabelValues("qdrant").Add(float64(len(points)))
	span.SetAttributes(attribute.Int("records_written", len(points)))
	span.SetStatus(otelcodes.Ok, "success")

	return len(points), nil
}

func recordPayload(r Record) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"content":     qdrantValue(r.Content),
		"fingerprint": qdrantValue(r.Fingerprint),
		"chunk_index": qdrantValue(r.ChunkIndex),
		"source":      qdrantValue(r.Source),
		"created_at":  qdrantValue(r.CreatedAt.UTC().Format(time.RFC3339Nano)),
	}
	for k, v := range r.Metadata {
		if _, taken := payload[k]; taken {
			continue
		}
		payload[k] = qdrantValue(v)
	}
	return payload
}

func qdrantValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

// SimilaritySearch runs a cosine-similarity query over the collection.
func (s *QdrantStore) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.SimilaritySearch")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	start := time.Now()

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		searchesTotal.WithLabelValues("qdrant", "error").Inc()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("%w: query: %v", ErrStore, err)
	}

	results := make([]SearchResult, len(points))
	for i, p := range points {
		payload := extractPayload(p.Payload)
		content, _ := payload["content"].(string)
		source, _ := payload["source"].(string)
		delete(payload, "content")
		results[i] = SearchResult{
			ID:       p.Id.GetUuid(),
			Content:  content,
			Score:    p.Score,
			Source:   source,
			Metadata: payload,
		}
	}

	searchesTotal.WithLabelValues("qdrant", "success").Inc()
	searchDuration.WithLabelValues("qdrant").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(otelcodes.Ok, "success")

	return results, nil
}

func extractPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	result := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		result[k] = extractValue(v)
	}
	return result
}

func extractValue(v *qdrant.Value) interface{} {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

// ExistsFingerprint checks for the document's first chunk by its
// deterministic point ID.
func (s *QdrantStore) ExistsFingerprint(ctx context.Context, fp string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.config.Collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(fingerprint.RecordID(fp, 0))},
	})
	if err != nil {
		return false, fmt.Errorf("%w: checking fingerprint: %v", ErrStore, err)
	}
	return len(points) > 0, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.Collection,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", ErrStore, err)
	}
	return int(count), nil
}

// Dimension returns the configured embedding dimension.
func (s *QdrantStore) Dimension() int {
	return s.config.Dimension
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
