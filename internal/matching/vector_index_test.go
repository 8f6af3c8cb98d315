package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx := NewMemoryIndex(3)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []Entry{
		{ElementID: "x", ProjectID: "p1", Vector: []float32{1, 0, 0}},
		{ElementID: "y", ProjectID: "p1", Vector: []float32{0, 1, 0}},
		{ElementID: "z", ProjectID: "p1", Vector: []float32{0.9, 0.1, 0}},
	}))

	hits, err := idx.Search(ctx, "p1", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "x", hits[0].ElementID)
	assert.Equal(t, "z", hits[1].ElementID)
	assert.Equal(t, "y", hits[2].ElementID)
	assert.InDelta(t, 1.0, hits[0].Score, 0.001)
}

func TestMemoryIndex_ProjectIsolation(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, []Entry{
		{ElementID: "a", ProjectID: "p1", Vector: []float32{1, 0}},
		{ElementID: "b", ProjectID: "p2", Vector: []float32{1, 0}},
	}))

	hits, err := idx.Search(ctx, "p1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ElementID)

	n, err := idx.Count(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryIndex_TopKLimit(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	entries := make([]Entry, 0, 5)
	for i := 0; i < 5; i++ {
		entries = append(entries, Entry{
			ElementID: string(rune('a' + i)),
			ProjectID: "p1",
			Vector:    []float32{1, float32(i) * 0.1},
		})
	}
	require.NoError(t, idx.Insert(ctx, entries))

	hits, err := idx.Search(ctx, "p1", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemoryIndex_DimensionMismatchRejectedOnInsert(t *testing.T) {
	idx := NewMemoryIndex(3)

	err := idx.Insert(context.Background(), []Entry{
		{ElementID: "bad", ProjectID: "p1", Vector: []float32{1, 0}},
	})
	assert.Error(t, err)
}

func TestMemoryIndex_EmptyQueryRejected(t *testing.T) {
	idx := NewMemoryIndex(2)

	_, err := idx.Search(context.Background(), "p1", nil, 5)
	assert.Error(t, err)
}
