package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned internally when a key is absent from the cache.
var ErrCacheMiss = fmt.Errorf("embedding cache miss")

// CacheConfig configures the Redis-backed embedding cache.
type CacheConfig struct {
	Addr     string        `json:"addr"`
	Password string        `json:"password,omitempty"`
	DB       int           `json:"db,omitempty"`
	// KeyPrefix namespaces cache keys; defaults to "memflow:emb".
	KeyPrefix string        `json:"key_prefix,omitempty"`
	TTL       time.Duration `json:"ttl,omitempty"` // 0 means no expiry
}

// CachedEmbedder wraps an Embedder with a Redis cache keyed by a hash of
// the input text. Embedding the same content twice (a common pattern when
// an agent revisits a topic) then costs one Redis round-trip instead of a
// model call.
//
// Cache failures are never fatal: a Redis error degrades to calling the
// inner embedder directly.
type CachedEmbedder struct {
	inner  Embedder
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedEmbedder wraps inner with a Redis cache.
func NewCachedEmbedder(inner Embedder, cfg CacheConfig, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "memflow:emb"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &CachedEmbedder{
		inner:  inner,
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "embedding_cache")),
	}
}

// NewCachedEmbedderWithClient wraps inner using an existing Redis client.
// The caller keeps ownership of the client's lifecycle.
func NewCachedEmbedderWithClient(inner Embedder, client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "memflow:emb"
	}
	return &CachedEmbedder{
		inner:  inner,
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "embedding_cache")),
	}
}

// Dimension reports the inner embedder's vector length.
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// Embed returns the cached vector for text, embedding and caching on miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	vec, err := c.get(ctx, key)
	if err == nil {
		return vec, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("embedding cache read failed, falling through", zap.Error(err))
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

// Close releases the underlying Redis client.
func (c *CachedEmbedder) Close() error {
	return c.client.Close()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%d:%s", c.prefix, c.inner.Dimension(), hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) get(ctx context.Context, key string) ([]float32, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *CachedEmbedder) set(ctx context.Context, key string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

var _ Embedder = (*CachedEmbedder)(nil)
