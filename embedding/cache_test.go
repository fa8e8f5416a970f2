package embedding

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// countingEmbedder records how many times the real model was hit.
type countingEmbedder struct {
	dim   int
	calls atomic.Int64
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	vec := make([]float32, e.dim)
	for i := range vec {
		vec[i] = float32(len(text))
	}
	return vec, nil
}

func (e *countingEmbedder) Dimension() int { return e.dim }

func newCacheFixture(t *testing.T, ttl time.Duration) (*CachedEmbedder, *countingEmbedder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingEmbedder{dim: 4}
	cached := NewCachedEmbedderWithClient(inner, client, "test:emb", ttl, zaptest.NewLogger(t))
	return cached, inner, mr
}

func TestCachedEmbedder_SecondCallHitsCache(t *testing.T) {
	t.Parallel()
	cached, inner, _ := newCacheFixture(t, 0)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "repeated thought")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "repeated thought")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load(), "second embed must come from the cache")
}

func TestCachedEmbedder_DistinctTextsDistinctKeys(t *testing.T) {
	t.Parallel()
	cached, inner, _ := newCacheFixture(t, 0)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "one")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "two")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedder_TTLExpiry(t *testing.T) {
	t.Parallel()
	cached, inner, mr := newCacheFixture(t, time.Minute)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "transient")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cached.Embed(ctx, "transient")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load(), "expired entry re-embeds")
}

func TestCachedEmbedder_RedisDownDegradesToInner(t *testing.T) {
	t.Parallel()
	cached, inner, mr := newCacheFixture(t, 0)
	ctx := context.Background()

	mr.Close()

	vec, err := cached.Embed(ctx, "still works")
	require.NoError(t, err, "cache failure must not fail the embed")
	assert.Len(t, vec, 4)
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedEmbedder_Dimension(t *testing.T) {
	t.Parallel()
	cached, _, _ := newCacheFixture(t, 0)
	assert.Equal(t, 4, cached.Dimension())
}
