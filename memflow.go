// Package memflow is the top-level entry point for the agent memory
// engine: thoughts, typed relations and results persisted in a remote
// vector-search backend, with relation inference, causal-chain
// reconstruction and memory-layer administration layered on top.
//
// Usage:
//
//	import "github.com/BaSui01/memflow"
//
//	eng, err := memflow.New(memflow.WithConfigPath("memflow.yaml"))
//	eng, err := memflow.New(memflow.WithInMemoryBackend()) // tests, demos
//
// The zero-option form loads configuration from defaults plus MEMFLOW_*
// environment variables and connects to the configured backend.
package memflow

import (
	"context"
	"fmt"

	"github.com/BaSui01/memflow/admin"
	"github.com/BaSui01/memflow/config"
	"github.com/BaSui01/memflow/embedding"
	"github.com/BaSui01/memflow/internal/telemetry"
	"github.com/BaSui01/memflow/memory"
	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Engine bundles every component of the memory system wired to one
// backend. Fields are exported so callers reach each surface directly;
// construction is the only part that needs care, and New does it.
type Engine struct {
	Thoughts  *memory.ThoughtStore
	Relations *memory.RelationStore
	Results   *memory.ResultStore
	Inference *memory.RelationInference
	Chains    *memory.CausalChainFinder
	Admin     *admin.CollectionAdmin
	Layers    *admin.LayerManager

	cfg       *config.Config
	logger    *zap.Logger
	ownLogger bool
	providers *telemetry.Providers
}

type options struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	client     vectordb.Client
	embedder   embedding.Embedder
	registerer prometheus.Registerer
	mappings   []types.LayerMapping
}

// Option configures the engine created by [New].
type Option func(*options)

// WithConfigPath loads configuration from the given YAML file.
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithConfig supplies an already-resolved configuration, skipping the
// loader entirely.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger. Without it the engine builds one
// from the Log config section and owns its lifecycle.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBackend injects a pre-built backend client, bypassing the Backend
// config section.
func WithBackend(client vectordb.Client) Option {
	return func(o *options) { o.client = client }
}

// WithInMemoryBackend runs the engine against the in-process backend.
// Intended for tests and demos; nothing persists.
func WithInMemoryBackend() Option {
	return func(o *options) { o.client = vectordb.NewInMemoryClient(nil) }
}

// WithEmbedder injects an embedder, bypassing the Embedding config
// section.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithMetricsRegisterer sets the Prometheus registerer for engine
// metrics. Defaults to the process-global registerer.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLayerMappings overrides the default layer-to-collection mapping.
func WithLayerMappings(mappings []types.LayerMapping) Option {
	return func(o *options) { o.mappings = mappings }
}

// New builds a fully wired engine: config, logger, backend client,
// embedder (with optional Redis cache), the three stores, inference,
// chain finder, collection admin and layer manager, plus telemetry when
// enabled.
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		var err error
		cfg, err = config.NewLoader().WithConfigPath(o.configPath).Load()
		if err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	ownLogger := false
	if logger == nil {
		var err error
		logger, err = buildLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		ownLogger = true
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		client = vectordb.NewQdrantClient(vectordb.QdrantConfig{
			BaseURL:           cfg.Backend.BaseURL,
			APIKey:            cfg.Backend.APIKey,
			Timeout:           cfg.Backend.Timeout,
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
			Burst:             cfg.Backend.Burst,
		}, logger)
	}

	embedder := o.embedder
	if embedder == nil && cfg.Embedding.Enabled {
		base, err := embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			BaseURL:   cfg.Embedding.BaseURL,
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		embedder = base
		if cfg.Embedding.CacheEnabled {
			embedder = embedding.NewCachedEmbedder(base, embedding.CacheConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				TTL:      cfg.Embedding.CacheTTL,
			}, logger)
		}
	}

	dimension := cfg.Embedding.Dimension
	if embedder != nil {
		dimension = embedder.Dimension()
	}

	collector := memory.NewCollector("memflow", o.registerer)
	thoughts := memory.NewThoughtStore(client, embedder, memory.StoreConfig{
		ThoughtCollection:  cfg.Engine.ThoughtCollection,
		RelationCollection: cfg.Engine.RelationCollection,
		ResultCollection:   cfg.Engine.ResultCollection,
		Dimension:          dimension,
		BatchSize:          cfg.Engine.BatchSize,
		MaxChainDepth:      cfg.Engine.MaxChainDepth,
	}, collector, logger)
	relations := memory.NewRelationStore(thoughts, logger)
	results := memory.NewResultStore(thoughts, relations, logger)
	inference := memory.NewRelationInference(thoughts, relations, memory.InferenceConfig{
		RecentWindow:        cfg.Engine.RecentWindow,
		SimilarityThreshold: cfg.Engine.SimilarityThreshold,
	}, logger)
	chains := memory.NewCausalChainFinder(relations, logger)

	adm := admin.NewCollectionAdmin(client, admin.AdminConfig{
		DefaultDimension: dimension,
	}, logger)
	layers, err := admin.NewLayerManager(adm, o.mappings, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Thoughts:  thoughts,
		Relations: relations,
		Results:   results,
		Inference: inference,
		Chains:    chains,
		Admin:     adm,
		Layers:    layers,
		cfg:       cfg,
		logger:    logger,
		ownLogger: ownLogger,
		providers: providers,
	}, nil
}

// Config returns the resolved configuration the engine runs with.
func (e *Engine) Config() *config.Config { return e.cfg }

// Logger returns the engine's logger for callers that want to share it.
func (e *Engine) Logger() *zap.Logger { return e.logger }

// Close flushes telemetry and the logger. The backend client has no
// connection state to release; its requests are plain HTTP.
func (e *Engine) Close(ctx context.Context) error {
	err := e.providers.Shutdown(ctx)
	if e.ownLogger {
		// Sync on stdout/stderr returns ENOTTY on some platforms; not a
		// real failure.
		_ = e.logger.Sync()
	}
	return err
}

// buildLogger constructs a zap logger from the Log config section.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level
	if len(cfg.OutputPaths) > 0 {
		zcfg.OutputPaths = cfg.OutputPaths
	}
	zcfg.DisableCaller = !cfg.EnableCaller
	zcfg.DisableStacktrace = !cfg.EnableStacktrace

	return zcfg.Build()
}
