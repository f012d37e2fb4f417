// Package config provides configuration loading for corpusd.
package config

import (
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config is the full corpusd configuration. Loaded once at startup and
// immutable afterwards.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Generation GenerationConfig `koanf:"generation"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Chunk      ChunkConfig      `koanf:"chunk"`
	Events     EventsConfig     `koanf:"events"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	CORSOrigin      string   `koanf:"cors_origin"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Provider is one of "pgvector", "chromem", "qdrant".
	Provider string `koanf:"provider"`

	// DatabaseURL is the PostgreSQL DSN for the pgvector backend.
	DatabaseURL Secret `koanf:"database_url"`

	// Table is the pgvector table / chromem and qdrant collection name.
	Table string `koanf:"table"`

	QdrantHost string `koanf:"qdrant_host"`
	QdrantPort int    `koanf:"qdrant_port"`

	ChromemPath string `koanf:"chromem_path"`
}

// OpenAIConfig holds provider credentials shared by embeddings and
// generation.
type OpenAIConfig struct {
	APIKey Secret `koanf:"api_key"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model     string `koanf:"model"`
	Dimension int    `koanf:"dimension"`
}

// GenerationConfig holds generation model settings.
type GenerationConfig struct {
	Model string `koanf:"model"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	K int `koanf:"k"`
}

// ChunkConfig holds chunking settings.
type ChunkConfig struct {
	Size    int `koanf:"size"`
	Overlap int `koanf:"overlap"`
}

// EventsConfig holds ingestion event settings.
type EventsConfig struct {
	// NATSURL enables event publishing when set.
	NATSURL string `koanf:"nats_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "*"
	}

	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "pgvector"
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = "corpus_chunks"
	}
	if cfg.Store.QdrantHost == "" {
		cfg.Store.QdrantHost = "localhost"
	}
	if cfg.Store.QdrantPort == 0 {
		cfg.Store.QdrantPort = 6334
	}
	if cfg.Store.ChromemPath == "" {
		cfg.Store.ChromemPath = "~/.local/share/corpusd/vectorstore"
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1536
	}

	if cfg.Generation.Model == "" {
		cfg.Generation.Model = openai.GPT4oMini
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 3
	}

	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 1000
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = 200
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Store.Provider {
	case "pgvector":
		if !c.Store.DatabaseURL.IsSet() {
			return fmt.Errorf("store provider pgvector requires STORE_DATABASE_URL")
		}
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unknown store provider: %q", c.Store.Provider)
	}

	if !c.OpenAI.APIKey.IsSet() {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive: %d", c.Embedding.Dimension)
	}

	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval k must be positive: %d", c.Retrieval.K)
	}

	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk size must be positive: %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk overlap must be in [0, size): overlap=%d size=%d",
			c.Chunk.Overlap, c.Chunk.Size)
	}

	return nil
}
