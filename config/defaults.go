package config

import "time"

// DefaultConfig returns a configuration suitable for local development:
// backend on localhost, embeddings off, cache off, noop telemetry.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:           "http://localhost:6333",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Model:     "text-embedding-3-small",
			Dimension: 768,
			Timeout:   30 * time.Second,
			CacheTTL:  24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Engine: EngineConfig{
			ThoughtCollection:   "agent_thoughts",
			RelationCollection:  "thought_relations",
			ResultCollection:    "thought_results",
			BatchSize:           100,
			MaxChainDepth:       8,
			RecentWindow:        10,
			SimilarityThreshold: 0.7,
		},
		Log: LogConfig{
			Level:            "info",
			Format:           "json",
			OutputPaths:      []string{"stdout"},
			EnableCaller:     true,
			EnableStacktrace: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "memflow",
			SampleRate:   1.0,
		},
	}
}
