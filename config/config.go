package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete memflow configuration.
type Config struct {
	// Backend is the vector-search backend (Qdrant-compatible REST).
	Backend BackendConfig `yaml:"backend" env:"BACKEND"`

	// Embedding configures the embedding provider and optional cache.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Redis backs the embedding cache when enabled.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Engine tunes the memory engine itself.
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// BackendConfig is the vector backend connection.
type BackendConfig struct {
	// BaseURL of the REST endpoint, e.g. http://localhost:6333.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// APIKey is sent as api-key header when set.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Timeout per request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RequestsPerSecond caps the client-side request rate; 0 disables.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	// Burst for the rate limiter.
	Burst int `yaml:"burst" env:"BURST"`
}

// EmbeddingConfig is the embedding provider.
type EmbeddingConfig struct {
	// Enabled turns embedding on; without it thoughts are stored with
	// zero vectors and similarity features degrade gracefully.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// BaseURL of an OpenAI-compatible embeddings endpoint.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// APIKey for the provider.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Model name, e.g. text-embedding-3-small.
	Model string `yaml:"model" env:"MODEL"`
	// Dimension of produced vectors.
	Dimension int `yaml:"dimension" env:"DIMENSION"`
	// Timeout per embed request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// CacheEnabled wraps the embedder in the Redis cache.
	CacheEnabled bool `yaml:"cache_enabled" env:"CACHE_ENABLED"`
	// CacheTTL for cached vectors.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// RedisConfig is the cache connection.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// EngineConfig tunes the memory engine.
type EngineConfig struct {
	// ThoughtCollection, RelationCollection and ResultCollection name the
	// three backing collections.
	ThoughtCollection  string `yaml:"thought_collection" env:"THOUGHT_COLLECTION"`
	RelationCollection string `yaml:"relation_collection" env:"RELATION_COLLECTION"`
	ResultCollection   string `yaml:"result_collection" env:"RESULT_COLLECTION"`
	// BatchSize chunks bulk saves.
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// MaxChainDepth bounds causal-chain traversal.
	MaxChainDepth int `yaml:"max_chain_depth" env:"MAX_CHAIN_DEPTH"`
	// RecentWindow for relation inference.
	RecentWindow int `yaml:"recent_window" env:"RECENT_WINDOW"`
	// SimilarityThreshold for relation inference.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths, zap-style (stdout, stderr, file paths).
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with file:line.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// EnableStacktrace attaches stacks at error level.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures OTLP export. Disabled means noop providers.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Embedding.Enabled {
		if c.Embedding.BaseURL == "" {
			errs = append(errs, "embedding.base_url is required when embedding is enabled")
		}
		if c.Embedding.Dimension <= 0 {
			errs = append(errs, "embedding.dimension must be positive")
		}
	}
	if c.Embedding.CacheEnabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required when the embedding cache is enabled")
	}
	if c.Engine.BatchSize <= 0 {
		errs = append(errs, "engine.batch_size must be positive")
	}
	if c.Engine.MaxChainDepth <= 0 {
		errs = append(errs, "engine.max_chain_depth must be positive")
	}
	if c.Engine.SimilarityThreshold < 0 || c.Engine.SimilarityThreshold > 1 {
		errs = append(errs, "engine.similarity_threshold must be within [0,1]")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be within [0,1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
