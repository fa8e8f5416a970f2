package memory

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testClock hands out strictly increasing timestamps so ordering tests
// are deterministic.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) *ThoughtStore {
	t.Helper()
	clock := newTestClock()
	return NewThoughtStore(
		vectordb.NewInMemoryClient(zaptest.NewLogger(t)),
		nil,
		StoreConfig{Dimension: 4, Now: clock.Now},
		NewCollector("memflow", prometheus.NewRegistry()),
		zaptest.NewLogger(t),
	)
}

func newThought(typ types.ThoughtType, content string) types.Thought {
	return types.Thought{
		ID:         uuid.NewString(),
		Type:       typ,
		Origin:     types.OriginReactive,
		Content:    content,
		Confidence: 0.9,
		Relevance:  0.5,
	}
}

func TestSaveThought_RoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	in := newThought(types.ThoughtObservation, "the cache hit rate dropped")
	in.Topic = "performance"
	in.Tags = []string{"cache", "latency"}
	in.Metadata = map[string]any{"severity": "high"}

	require.NoError(t, store.SaveThought(ctx, "s1", in))

	got, err := store.GetThoughts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	out := got[0]
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Origin, out.Origin)
	assert.Equal(t, in.Content, out.Content)
	assert.Equal(t, in.Confidence, out.Confidence)
	assert.Equal(t, in.Relevance, out.Relevance)
	assert.Equal(t, in.Topic, out.Topic)
	assert.Equal(t, in.Tags, out.Tags)
	assert.Equal(t, in.Metadata, out.Metadata)
	assert.False(t, out.Timestamp.IsZero())
}

func TestSaveThought_IdempotentBySameID(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	th := newThought(types.ThoughtAnalytical, "first version")
	require.NoError(t, store.SaveThought(ctx, "s1", th))

	th.Content = "second version"
	require.NoError(t, store.SaveThought(ctx, "s1", th))

	got, err := store.GetThoughts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1, "same id must replace, not duplicate")
	assert.Equal(t, "second version", got[0].Content)
}

func TestSaveThought_InvalidID(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	th := newThought(types.ThoughtObservation, "x")
	th.ID = "not-a-uuid"

	err := store.SaveThought(context.Background(), "s1", th)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidID, types.GetErrorCode(err))
}

func TestSaveThought_EmptySession(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	err := store.SaveThought(context.Background(), "  ", newThought(types.ThoughtObservation, "x"))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidArgument, types.GetErrorCode(err))
}

func TestGetThoughts_UnknownSessionIsEmpty(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	got, err := store.GetThoughts(context.Background(), "never-written")
	require.NoError(t, err, "missing collection must not surface as an error")
	assert.Empty(t, got)
}

func TestGetThoughts_OrderedByTimestamp(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	third := newThought(types.ThoughtDecision, "third")
	third.Timestamp = base.Add(2 * time.Minute)
	first := newThought(types.ThoughtObservation, "first")
	first.Timestamp = base
	second := newThought(types.ThoughtAnalytical, "second")
	second.Timestamp = base.Add(time.Minute)

	// Written out of order on purpose.
	require.NoError(t, store.SaveThoughts(ctx, "s1", []types.Thought{third, first, second}))

	got, err := store.GetThoughts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)
}

func TestSaveThoughts_ChunksLargeBatch(t *testing.T) {
	t.Parallel()
	clock := newTestClock()
	store := NewThoughtStore(
		vectordb.NewInMemoryClient(zaptest.NewLogger(t)),
		nil,
		StoreConfig{Dimension: 4, BatchSize: 10, Now: clock.Now},
		NewCollector("memflow", prometheus.NewRegistry()),
		zaptest.NewLogger(t),
	)
	ctx := context.Background()

	thoughts := make([]types.Thought, 35)
	for i := range thoughts {
		thoughts[i] = newThought(types.ThoughtObservation, "bulk")
	}
	require.NoError(t, store.SaveThoughts(ctx, "s1", thoughts))

	count, err := store.CountThoughts(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 35, count)
}

func TestGetThought_AbsentReturnsNil(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveThought(ctx, "s1", newThought(types.ThoughtObservation, "x")))

	got, err := store.GetThought(ctx, "s1", uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetThoughtsByTypeAndRange(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	obs := newThought(types.ThoughtObservation, "saw it")
	obs.Timestamp = base
	ana := newThought(types.ThoughtAnalytical, "thought about it")
	ana.Timestamp = base.Add(time.Hour)

	require.NoError(t, store.SaveThoughts(ctx, "s1", []types.Thought{obs, ana}))

	byType, err := store.GetThoughtsByType(ctx, "s1", types.ThoughtAnalytical)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, ana.ID, byType[0].ID)

	inRange, err := store.GetThoughtsInRange(ctx, "s1", base, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, obs.ID, inRange[0].ID)
}

func TestGetRecentThoughts(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveThought(ctx, "s1", newThought(types.ThoughtObservation, "n")))
	}

	recent, err := store.GetRecentThoughts(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	all, err := store.GetRecentThoughts(ctx, "s1", 100)
	require.NoError(t, err)
	assert.Len(t, all, 5, "limit past the end returns everything")
}

func TestSearchThoughts_SubstringFallback(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	a := newThought(types.ThoughtObservation, "Deployment failed on node 3")
	b := newThought(types.ThoughtObservation, "all checks passed")
	require.NoError(t, store.SaveThoughts(ctx, "s1", []types.Thought{a, b}))

	got, err := store.SearchThoughts(ctx, "s1", "DEPLOYMENT", 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "substring match is case-insensitive")
	assert.Equal(t, a.ID, got[0].ID)
}

func TestGetChainedThoughts(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	root := newThought(types.ThoughtObservation, "root")
	child := newThought(types.ThoughtAnalytical, "child")
	child.ParentThoughtID = root.ID
	grandchild := newThought(types.ThoughtDecision, "grandchild")
	grandchild.ParentThoughtID = child.ID
	unrelated := newThought(types.ThoughtObservation, "unrelated")

	require.NoError(t, store.SaveThoughts(ctx, "s1", []types.Thought{root, child, grandchild, unrelated}))

	chain, err := store.GetChainedThoughts(ctx, "s1", root.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, root.ID, chain[0].ID)
	assert.Equal(t, child.ID, chain[1].ID)
	assert.Equal(t, grandchild.ID, chain[2].ID)
}

func TestClearSession_RemovesOnlyThatSession(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveThought(ctx, "s1", newThought(types.ThoughtObservation, "a")))
	require.NoError(t, store.SaveThought(ctx, "s2", newThought(types.ThoughtObservation, "b")))

	require.NoError(t, store.ClearSession(ctx, "s1"))

	gone, err := store.GetThoughts(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := store.GetThoughts(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestDecodeDrops_CountsCorruptPayloads(t *testing.T) {
	t.Parallel()
	client := vectordb.NewInMemoryClient(zaptest.NewLogger(t))
	store := NewThoughtStore(client, nil,
		StoreConfig{Dimension: 4},
		NewCollector("memflow", prometheus.NewRegistry()),
		zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, store.SaveThought(ctx, "s1", newThought(types.ThoughtObservation, "good")))

	// Plant a point missing required fields directly in the backend.
	require.NoError(t, client.Upsert(ctx, store.Config().ThoughtCollection, []vectordb.Point{{
		ID:     uuid.NewString(),
		Vector: make([]float32, 4),
		Payload: map[string]any{
			fieldSessionID: "s1",
			fieldContent:   "corrupt",
		},
	}}))

	got, err := store.GetThoughts(ctx, "s1")
	require.NoError(t, err, "one bad payload must not fail the query")
	assert.Len(t, got, 1)
	assert.Equal(t, int64(1), store.DecodeDrops())
}
