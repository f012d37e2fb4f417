package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Backend: "pinecone"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewStore_Chromem(t *testing.T) {
	store, err := NewStore(context.Background(), Config{
		Backend: BackendChromem,
		Chromem: ChromemConfig{Dimension: 8},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, store.Dimension())
	assert.NoError(t, store.Close())
}

func TestQdrantConfig_Defaults(t *testing.T) {
	config := QdrantConfig{Dimension: 1536}
	config.ApplyDefaults()

	assert.Equal(t, "localhost", config.Host)
	assert.Equal(t, 6334, config.Port)
	assert.Equal(t, "corpus_chunks", config.Collection)
	assert.NoError(t, config.Validate())
}

func TestQdrantConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		config QdrantConfig
	}{
		{"missing dimension", QdrantConfig{Host: "localhost", Port: 6334, Collection: "chunks"}},
		{"bad port", QdrantConfig{Host: "localhost", Port: 70000, Collection: "chunks", Dimension: 4}},
		{"bad collection", QdrantConfig{Host: "localhost", Port: 6334, Collection: "bad name", Dimension: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.config.Validate(), ErrInvalidConfig)
		})
	}
}
