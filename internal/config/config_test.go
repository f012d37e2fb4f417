package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_PROVIDER", "chromem")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
	assert.Equal(t, "chromem", cfg.Store.Provider)
	assert.Equal(t, "corpus_chunks", cfg.Store.Table)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
	assert.Equal(t, 3, cfg.Retrieval.K)
	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 200, cfg.Chunk.Overlap)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey.Value())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_PROVIDER", "qdrant")
	t.Setenv("STORE_QDRANT_HOST", "qdrant.internal")
	t.Setenv("STORE_QDRANT_PORT", "7334")
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("EMBEDDING_DIMENSION", "768")
	t.Setenv("RETRIEVAL_K", "5")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("EVENTS_NATS_URL", "nats://localhost:4222")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.Store.Provider)
	assert.Equal(t, "qdrant.internal", cfg.Store.QdrantHost)
	assert.Equal(t, 7334, cfg.Store.QdrantPort)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 5, cfg.Retrieval.K)
	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERVER_PORT", "9100")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 8080
store:
  provider: chromem
retrieval:
  k: 7
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, 9100, cfg.Server.Port)
	// File wins over defaults.
	assert.Equal(t, "chromem", cfg.Store.Provider)
	assert.Equal(t, 7, cfg.Retrieval.K)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_PROVIDER", "chromem")

	path := filepath.Join(t.TempDir(), "absent.yaml")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		applyDefaults(&cfg)
		cfg.Store.Provider = "chromem"
		cfg.OpenAI.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = -1 }, "port"},
		{"unknown provider", func(c *Config) { c.Store.Provider = "weaviate" }, "provider"},
		{"pgvector without dsn", func(c *Config) { c.Store.Provider = "pgvector" }, "STORE_DATABASE_URL"},
		{"missing api key", func(c *Config) { c.OpenAI.APIKey = "" }, "OPENAI_API_KEY"},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = -1 }, "dimension"},
		{"zero k", func(c *Config) { c.Retrieval.K = -2 }, "k must be positive"},
		{"overlap >= size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }, "overlap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-very-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "sk-very-secret", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
