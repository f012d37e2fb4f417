package vectorstore

import "time"

// Record is the persisted unit: one chunk, its embedding, and its metadata.
type Record struct {
	// ID is the deterministic record identifier (UUIDv5 of
	// fingerprint and chunk index).
	ID string

	// Content is the chunk text.
	Content string

	// Embedding is the chunk's vector, exactly the store's dimension.
	Embedding []float32

	// Fingerprint is the owning document's content fingerprint.
	Fingerprint string

	// ChunkIndex is the zero-based ordinal within the document.
	ChunkIndex int

	// Metadata carries additional key-value pairs. The fingerprint and
	// chunk index are always duplicated here so filtered lookups don't
	// depend on backend-specific columns.
	Metadata map[string]interface{}

	// Source is the original filename of the upload.
	Source string

	// CreatedAt is the ingestion timestamp.
	CreatedAt time.Time
}

// SearchResult is one similarity hit.
type SearchResult struct {
	// ID is the record identifier.
	ID string

	// Content is the chunk text.
	Content string

	// Score is the cosine similarity (higher = more similar).
	Score float32

	// Source is the original filename of the owning document.
	Source string

	// Metadata carries the record metadata.
	Metadata map[string]interface{}
}
