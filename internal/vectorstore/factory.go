package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by NewStore.
const (
	BackendPGVector = "pgvector"
	BackendChromem  = "chromem"
	BackendQdrant   = "qdrant"
)

// Config selects and configures a store backend.
type Config struct {
	// Backend is one of "pgvector", "chromem", "qdrant".
	// Default: "pgvector"
	Backend string

	PGVector PGVectorConfig
	Chromem  ChromemConfig
	Qdrant   QdrantConfig
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendPGVector
	}
}

// NewStore builds the configured backend. The embedding dimension must be
// set on the selected backend's config before calling.
func NewStore(ctx context.Context, config Config, logger *zap.Logger) (Store, error) {
	config.ApplyDefaults()

	switch config.Backend {
	case BackendPGVector:
		return NewPGVectorStore(ctx, config.PGVector, logger)
	case BackendChromem:
		return NewChromemStore(config.Chromem, logger)
	case BackendQdrant:
		return NewQdrantStore(ctx, config.Qdrant, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, config.Backend)
	}
}
