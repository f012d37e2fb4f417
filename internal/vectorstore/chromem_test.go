package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernlabs/corpusd/internal/fingerprint"
)

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{Dimension: 4}, nil)
	require.NoError(t, err)
	return store
}

func testRecord(fp string, index int, embedding []float32) Record {
	return Record{
		ID:          fingerprint.RecordID(fp, index),
		Content:     "chunk " + fp,
		Embedding:   embedding,
		Fingerprint: fp,
		ChunkIndex:  index,
		Metadata:    map[string]interface{}{"title": "doc"},
		Source:      "doc.pdf",
		CreatedAt:   time.Now(),
	}
}

func TestChromemConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ChromemConfig
		wantErr bool
	}{
		{
			name:   "valid",
			config: ChromemConfig{Collection: "corpus_chunks", Dimension: 1536},
		},
		{
			name:    "zero dimension",
			config:  ChromemConfig{Collection: "corpus_chunks"},
			wantErr: true,
		},
		{
			name:    "bad collection name",
			config:  ChromemConfig{Collection: "Corpus Chunks!", Dimension: 4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChromemStore_UpsertAndSearch(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	records := []Record{
		testRecord("fp-a", 0, []float32{1, 0, 0, 0}),
		testRecord("fp-a", 1, []float32{0, 1, 0, 0}),
		testRecord("fp-b", 0, []float32{0, 0, 1, 0}),
	}

	written, err := store.UpsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, records[0].ID, results[0].ID)
	assert.Equal(t, "doc.pdf", results[0].Source)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemStore_UpsertSkipsExisting(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	records := []Record{
		testRecord("fp-a", 0, []float32{1, 0, 0, 0}),
		testRecord("fp-a", 1, []float32{0, 1, 0, 0}),
	}

	written, err := store.UpsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	// Same records again: all skipped.
	written, err = store.UpsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestChromemStore_UpsertEmpty(t *testing.T) {
	store := newTestChromemStore(t)

	_, err := store.UpsertRecords(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyRecords)
}

func TestChromemStore_UpsertDimensionMismatch(t *testing.T) {
	store := newTestChromemStore(t)

	_, err := store.UpsertRecords(context.Background(), []Record{
		testRecord("fp-a", 0, []float32{1, 0}),
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_SearchEmptyStore(t *testing.T) {
	store := newTestChromemStore(t)

	results, err := store.SimilaritySearch(context.Background(), []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_SearchCapsKAtCount(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	_, err := store.UpsertRecords(ctx, []Record{
		testRecord("fp-a", 0, []float32{1, 0, 0, 0}),
	})
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemStore_ExistsFingerprint(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	exists, err := store.ExistsFingerprint(ctx, "fp-a")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.UpsertRecords(ctx, []Record{
		testRecord("fp-a", 0, []float32{1, 0, 0, 0}),
	})
	require.NoError(t, err)

	exists, err = store.ExistsFingerprint(ctx, "fp-a")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsFingerprint(ctx, "fp-b")
	require.NoError(t, err)
	assert.False(t, exists)
}
