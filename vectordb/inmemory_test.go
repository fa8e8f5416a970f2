package vectordb

import (
	"context"
	"testing"

	"github.com/BaSui01/memflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMemClient(t *testing.T) *InMemoryClient {
	t.Helper()
	return NewInMemoryClient(zaptest.NewLogger(t))
}

func seedCollection(t *testing.T, c *InMemoryClient, name string, dim int) {
	t.Helper()
	require.NoError(t, c.CreateCollection(context.Background(), name, CollectionSpec{VectorSize: dim}))
}

func TestInMemory_CollectionLifecycle(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()

	exists, err := c.CollectionExists(ctx, "c")
	require.NoError(t, err)
	assert.False(t, exists)

	seedCollection(t, c, "c", 3)

	exists, err = c.CollectionExists(ctx, "c")
	require.NoError(t, err)
	assert.True(t, exists)

	// Creating again is a no-op, not an error.
	require.NoError(t, c.CreateCollection(ctx, "c", CollectionSpec{VectorSize: 3}))

	info, err := c.GetCollectionInfo(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, info.VectorSize)
	assert.Equal(t, 0, info.PointsCount)
	assert.Equal(t, types.StatusGreen, info.Status)

	require.NoError(t, c.DeleteCollection(ctx, "c"))
	_, err = c.GetCollectionInfo(ctx, "c")
	assert.Equal(t, types.ErrCollectionNotFound, types.GetErrorCode(err))
}

func TestInMemory_UpsertValidatesDimension(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 3)

	err := c.Upsert(ctx, "c", []Point{{ID: "p", Vector: []float32{1, 2}}})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidArgument, types.GetErrorCode(err))
}

func TestInMemory_UpsertReplacesByID(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 2)

	require.NoError(t, c.Upsert(ctx, "c", []Point{{ID: "p", Vector: []float32{1, 0}, Payload: map[string]any{"v": "old"}}}))
	require.NoError(t, c.Upsert(ctx, "c", []Point{{ID: "p", Vector: []float32{0, 1}, Payload: map[string]any{"v": "new"}}}))

	count, err := c.Count(ctx, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	points, _, err := c.Scroll(ctx, "c", nil, 10, "")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "new", points[0].Payload["v"])
}

func TestInMemory_SearchRanksByCosine(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 2)

	require.NoError(t, c.Upsert(ctx, "c", []Point{
		{ID: "aligned", Vector: []float32{1, 0}},
		{ID: "diagonal", Vector: []float32{1, 1}},
		{ID: "orthogonal", Vector: []float32{0, 1}},
	}))

	hits, err := c.Search(ctx, "c", []float32{1, 0}, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "aligned", hits[0].ID)
	assert.Equal(t, "diagonal", hits[1].ID)
	assert.Equal(t, "orthogonal", hits[2].ID)

	// Threshold cuts the orthogonal hit.
	hits, err = c.Search(ctx, "c", []float32{1, 0}, nil, 10, 0.5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestInMemory_SearchAndScrollHonorFilter(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 1)

	require.NoError(t, c.Upsert(ctx, "c", []Point{
		{ID: "a", Vector: []float32{1}, Payload: map[string]any{"session_id": "s1"}},
		{ID: "b", Vector: []float32{1}, Payload: map[string]any{"session_id": "s2"}},
	}))

	hits, err := c.Search(ctx, "c", []float32{1}, MatchField("session_id", "s1"), 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)

	points, _, err := c.Scroll(ctx, "c", MatchField("session_id", "s2"), 10, "")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "b", points[0].ID)
}

func TestInMemory_ScrollPaginates(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 1)

	ids := []string{"p0", "p1", "p2", "p3", "p4"}
	for _, id := range ids {
		require.NoError(t, c.Upsert(ctx, "c", []Point{{ID: id, Vector: []float32{1}}}))
	}

	var collected []string
	cursor := ""
	for {
		points, next, err := c.Scroll(ctx, "c", nil, 2, cursor)
		require.NoError(t, err)
		for _, p := range points {
			collected = append(collected, p.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Equal(t, ids, collected, "pagination covers every point once, in insertion order")
}

func TestInMemory_DeleteByFilter(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 1)

	require.NoError(t, c.Upsert(ctx, "c", []Point{
		{ID: "a", Vector: []float32{1}, Payload: map[string]any{"session_id": "s1"}},
		{ID: "b", Vector: []float32{1}, Payload: map[string]any{"session_id": "s2"}},
	}))

	require.NoError(t, c.DeleteByFilter(ctx, "c", MatchField("session_id", "s1")))

	count, err := c.Count(ctx, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = c.DeleteByFilter(ctx, "c", nil)
	require.Error(t, err, "unfiltered delete would wipe the collection")
}

func TestInMemory_ClonesPointsOnReadAndWrite(t *testing.T) {
	t.Parallel()
	c := newMemClient(t)
	ctx := context.Background()
	seedCollection(t, c, "c", 1)

	original := Point{ID: "p", Vector: []float32{1}, Payload: map[string]any{"k": "v"}}
	require.NoError(t, c.Upsert(ctx, "c", []Point{original}))

	// Mutating the caller's copy after the write must not leak in.
	original.Payload["k"] = "mutated"

	points, _, err := c.Scroll(ctx, "c", nil, 10, "")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "v", points[0].Payload["k"])
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Zero magnitude is defined as similarity 0, never a division fault.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "mismatched lengths")
}
