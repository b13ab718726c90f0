package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/testutil"
)

const embeddingDim = 768

// unitVector builds a 768-dim unit vector pointing mostly along axis.
func unitVector(axis int) []float32 {
	v := make([]float32, embeddingDim)
	v[axis%embeddingDim] = 1
	return v
}

func record(uri string, ordinal, axis int, text string) ChunkRecord {
	return ChunkRecord{
		Chunk: Chunk{
			ID:          uuid.New().String(),
			DocumentURI: uri,
			Section:     "Test",
			Ordinal:     ordinal,
			Text:        text,
		},
		Embedding: unitVector(axis),
	}
}

func setupPostgres(t *testing.T) (*Postgres, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	pg, err := NewPostgres(ctx, testDB.ConnStr, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	return pg, ctx
}

func TestPostgresReplaceDocument(t *testing.T) {
	pg, ctx := setupPostgres(t)

	doc := DocumentRecord{URI: "doc-a", Title: "A", ElementCount: 3, IngestedAt: time.Now()}
	first := []ChunkRecord{
		record("doc-a", 0, 0, "first generation chunk one"),
		record("doc-a", 1, 1, "first generation chunk two"),
	}
	require.NoError(t, pg.ReplaceDocument(ctx, doc, first))

	has, err := pg.HasDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.True(t, has)

	// Rewrite with a different chunk count: old generation must vanish.
	second := []ChunkRecord{record("doc-a", 0, 2, "second generation only chunk")}
	require.NoError(t, pg.ReplaceDocument(ctx, doc, second))

	info, err := pg.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DocumentCount)
	assert.Equal(t, 1, info.ChunkCount)
	assert.Equal(t, 3, info.ContentElementCount)
}

func TestPostgresHasDocumentUnknown(t *testing.T) {
	pg, ctx := setupPostgres(t)

	has, err := pg.HasDocument(ctx, "never-ingested")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPostgresSearchChunks(t *testing.T) {
	pg, ctx := setupPostgres(t)

	docA := DocumentRecord{URI: "doc-a", Title: "A", ElementCount: 2, IngestedAt: time.Now()}
	docB := DocumentRecord{URI: "doc-b", Title: "B", ElementCount: 2, IngestedAt: time.Now()}
	require.NoError(t, pg.ReplaceDocument(ctx, docA, []ChunkRecord{
		record("doc-a", 0, 0, "exact match"),
		record("doc-a", 1, 1, "orthogonal"),
	}))
	require.NoError(t, pg.ReplaceDocument(ctx, docB, []ChunkRecord{
		record("doc-b", 0, 0, "same direction, other doc"),
	}))

	results, err := pg.SearchChunks(ctx, Query{
		Embedding: unitVector(0),
		TopK:      10,
		Threshold: 0.9,
	})
	require.NoError(t, err)
	require.Len(t, results, 2, "only the two aligned chunks pass the threshold")
	for _, r := range results {
		assert.InDelta(t, 1.0, float64(r.Similarity), 1e-3)
	}

	// Document filter scopes results.
	results, err = pg.SearchChunks(ctx, Query{
		Embedding: unitVector(0),
		TopK:      10,
		Threshold: 0.9,
		Documents: []string{"doc-b"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-b", results[0].Chunk.DocumentURI)

	// TopK bounds the result set.
	results, err = pg.SearchChunks(ctx, Query{
		Embedding: unitVector(0),
		TopK:      1,
		Threshold: 0,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPostgresProvisionIdempotent(t *testing.T) {
	pg, ctx := setupPostgres(t)

	doc := DocumentRecord{URI: "doc-a", Title: "A", ElementCount: 1, IngestedAt: time.Now()}
	require.NoError(t, pg.ReplaceDocument(ctx, doc, []ChunkRecord{record("doc-a", 0, 0, "kept")}))

	// Re-provisioning an existing schema never destroys data.
	require.NoError(t, pg.Provision(ctx))
	require.NoError(t, pg.Provision(ctx))

	info, err := pg.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DocumentCount)
	assert.Equal(t, 1, info.ChunkCount)
}
