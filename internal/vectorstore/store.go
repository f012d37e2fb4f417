// Package vectorstore defines the interface for vector storage operations.
package vectorstore

import (
	"context"
	"errors"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrStore wraps backend failures (connectivity, constraint violations).
	// Full detail belongs in server-side logs; user-facing messages stay
	// generic.
	ErrStore = errors.New("vector store failure")

	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid vector store configuration")

	// ErrEmptyRecords indicates empty or nil records.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrConnectionFailed indicates the backend could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// namePattern validates table and collection names before they are
// interpolated into SQL or sent to a backend.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var namePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateName validates a table or collection name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.Join(ErrInvalidConfig, errors.New("name must match ^[a-z0-9_]{1,64}$: "+name))
	}
	return nil
}

// Store is the interface for vector storage operations.
//
// The store owns schema assumptions, connection lifecycle, and similarity
// queries. Callers pass in-memory Record values across this boundary and
// never hold references to storage rows.
//
// Implementations:
//   - PGVectorStore: PostgreSQL + pgvector (default, production)
//   - ChromemStore: embedded chromem-go (dev and tests)
//   - QdrantStore: external Qdrant over gRPC
type Store interface {
	// UpsertRecords inserts the given records as one logical unit and
	// returns the number of rows actually written. Records that collide
	// with an existing (fingerprint, chunk index) pair are skipped, not
	// errors: concurrent ingestions of identical content converge on one
	// row set.
	UpsertRecords(ctx context.Context, records []Record) (int, error)

	// SimilaritySearch returns up to k records closest to the query
	// embedding under cosine similarity, descending, ties broken by
	// earliest creation time. An empty store yields an empty slice, and k
	// larger than the stored count yields everything available.
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]SearchResult, error)

	// ExistsFingerprint reports whether any record carries the fingerprint.
	ExistsFingerprint(ctx context.Context, fp string) (bool, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Dimension returns the embedding dimension the store is configured for.
	Dimension() int

	// Close releases the store's connections and resources.
	Close() error
}
