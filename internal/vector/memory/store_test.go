package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchEmptyStore(t *testing.T) {
	store := NewStore()
	passages, err := store.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Empty(t, passages)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Insert(ctx, "doc_a", "orthogonal", []float32{0, 1, 0}))
	require.NoError(t, store.Insert(ctx, "doc_b", "exact", []float32{1, 0, 0}))
	require.NoError(t, store.Insert(ctx, "doc_c", "close", []float32{0.9, 0.1, 0}))

	passages, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	require.Equal(t, "exact", passages[0].Text)
	require.Equal(t, "close", passages[1].Text)
	require.Greater(t, passages[0].Similarity, passages[1].Similarity)
}

func TestSearchTiesBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	// Identical embeddings: identical similarity, insertion order decides.
	require.NoError(t, store.Insert(ctx, "first", "first", []float32{1, 1}))
	require.NoError(t, store.Insert(ctx, "second", "second", []float32{1, 1}))

	passages, err := store.Search(ctx, []float32{1, 1}, 2)
	require.NoError(t, err)
	require.Equal(t, "first", passages[0].SourceID)
	require.Equal(t, "second", passages[1].SourceID)
}

func TestSearchSimilarityBounds(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Insert(ctx, "opposite", "opposite", []float32{-1, 0}))
	require.NoError(t, store.Insert(ctx, "same", "same", []float32{1, 0}))

	passages, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	for _, p := range passages {
		require.GreaterOrEqual(t, p.Similarity, float32(0))
		require.LessOrEqual(t, p.Similarity, float32(1))
	}
}

func TestDeleteSource(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Insert(ctx, "doc", "one", []float32{1, 0}))
	require.NoError(t, store.Insert(ctx, "doc", "two", []float32{0, 1}))
	require.NoError(t, store.Insert(ctx, "other", "three", []float32{1, 1}))
	require.Equal(t, 3, store.Len())

	require.NoError(t, store.DeleteSource(ctx, "doc"))
	require.Equal(t, 1, store.Len())

	passages, err := store.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	require.Equal(t, "other", passages[0].SourceID)

	// Deleting a missing source is a no-op.
	require.NoError(t, store.DeleteSource(ctx, "missing"))
}
