package admin

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/memflow/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultLayerMappings returns the built-in layer-to-collection mapping.
func DefaultLayerMappings() []types.LayerMapping {
	return []types.LayerMapping{
		{
			Layer:             types.LayerWorking,
			Collections:       []string{"working_context"},
			Description:       "short-lived task context, cleared between tasks",
			RetentionPriority: 0.2,
		},
		{
			Layer:             types.LayerEpisodic,
			Collections:       []string{"episodic_events", "agent_thoughts"},
			Description:       "what happened: events and reasoning traces",
			RetentionPriority: 0.6,
		},
		{
			Layer:             types.LayerSemantic,
			Collections:       []string{"semantic_facts"},
			Description:       "what is known: distilled factual knowledge",
			RetentionPriority: 0.9,
		},
		{
			Layer:             types.LayerProcedural,
			Collections:       []string{"procedural_skills"},
			Description:       "how to do things: learned procedures",
			RetentionPriority: 0.8,
		},
		{
			Layer:             types.LayerAutobiographical,
			Collections:       []string{"life_narrative"},
			Description:       "who the agent is: long-horizon narrative",
			RetentionPriority: 1.0,
		},
	}
}

// LayerManager maps the five cognitive layers onto collection sets and
// aggregates statistics across them.
type LayerManager struct {
	admin  *CollectionAdmin
	logger *zap.Logger

	mu       sync.RWMutex
	mappings []types.LayerMapping
	byColl   map[string]types.MemoryLayer
}

// NewLayerManager builds a manager over the given mappings; nil mappings
// use DefaultLayerMappings. A collection appearing in more than one layer
// is rejected with LAYER_OVERLAP: the reverse lookup must be unambiguous.
func NewLayerManager(admin *CollectionAdmin, mappings []types.LayerMapping, logger *zap.Logger) (*LayerManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mappings == nil {
		mappings = DefaultLayerMappings()
	}

	byColl := make(map[string]types.MemoryLayer)
	for _, m := range mappings {
		for _, coll := range m.Collections {
			if owner, ok := byColl[coll]; ok && owner != m.Layer {
				return nil, types.NewErrorf(types.ErrLayerOverlap,
					"collection %q mapped into both %q and %q", coll, owner, m.Layer)
			}
			byColl[coll] = m.Layer
		}
	}

	return &LayerManager{
		admin:    admin,
		logger:   logger.With(zap.String("component", "layer_manager")),
		mappings: mappings,
		byColl:   byColl,
	}, nil
}

// Mappings returns a copy of the active layer mappings.
func (m *LayerManager) Mappings() []types.LayerMapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.LayerMapping, len(m.mappings))
	copy(out, m.mappings)
	return out
}

func (m *LayerManager) mappingFor(layer types.MemoryLayer) (types.LayerMapping, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mapping := range m.mappings {
		if mapping.Layer == layer {
			return mapping, true
		}
	}
	return types.LayerMapping{}, false
}

// Initialize ensures every collection referenced by a layer mapping exists,
// creating missing ones at the admin's default dimension.
func (m *LayerManager) Initialize(ctx context.Context) error {
	for _, mapping := range m.Mappings() {
		for _, coll := range mapping.Collections {
			if err := m.admin.EnsureCollection(ctx, coll, 0); err != nil {
				return err
			}
		}
	}
	m.logger.Info("memory layers initialized", zap.Int("layers", len(m.mappings)))
	return nil
}

// GetLayerForCollection reverse-looks-up the owning layer. The false return
// means the collection is not mapped into any layer.
func (m *LayerManager) GetLayerForCollection(name string) (types.MemoryLayer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	layer, ok := m.byColl[name]
	return layer, ok
}

// ClearMemoryLayer deletes and recreates empty every collection in the
// layer. Destructive: confirm must be true. Recreation uses each
// collection's current dimension so the shape survives the wipe.
func (m *LayerManager) ClearMemoryLayer(ctx context.Context, layer types.MemoryLayer, confirm bool) error {
	if !confirm {
		return types.NewErrorf(types.ErrConfirmationRequired,
			"clearing layer %q deletes its collections; pass confirm=true to proceed", layer)
	}

	mapping, ok := m.mappingFor(layer)
	if !ok {
		return types.NewErrorf(types.ErrInvalidArgument, "unknown memory layer %q", layer)
	}

	for _, coll := range mapping.Collections {
		size := 0
		if desc, err := m.admin.client.GetCollectionInfo(ctx, coll); err == nil {
			size = desc.VectorSize
		} else if !types.IsCode(err, types.ErrCollectionNotFound) {
			return err
		}

		if err := m.admin.client.DeleteCollection(ctx, coll); err != nil {
			if !types.IsCode(err, types.ErrCollectionNotFound) {
				return err
			}
		}
		if err := m.admin.EnsureCollection(ctx, coll, size); err != nil {
			return err
		}

		m.logger.Warn("layer collection cleared",
			zap.String("layer", string(layer)),
			zap.String("collection", coll))
	}
	return nil
}

// CreateSnapshot aggregates the full collection list, the link graph,
// per-layer vector counts and system-wide statistics. Reads only, so the
// per-layer counts fan out concurrently.
func (m *LayerManager) CreateSnapshot(ctx context.Context) (*types.MemorySnapshot, error) {
	infos, err := m.admin.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(infos))
	var countsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, info := range infos {
		info := info
		g.Go(func() error {
			desc, err := m.admin.client.GetCollectionInfo(gctx, info.Name)
			if err != nil {
				if types.IsCode(err, types.ErrCollectionNotFound) {
					return nil
				}
				return err
			}
			countsMu.Lock()
			counts[info.Name] = desc.PointsCount
			countsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	layerCounts := make(map[types.MemoryLayer]int, len(types.Layers()))
	for _, layer := range types.Layers() {
		layerCounts[layer] = 0
	}
	for _, mapping := range m.Mappings() {
		for _, coll := range mapping.Collections {
			layerCounts[mapping.Layer] += counts[coll]
		}
	}

	stats := types.SystemStats{
		CollectionCount:    len(infos),
		LinkCount:          m.admin.links.Count(),
		DimensionHistogram: make(map[int]int),
	}
	for _, info := range infos {
		stats.TotalVectors += info.PointsCount
		stats.DimensionHistogram[info.VectorSize]++
		if info.Status == types.StatusGreen || info.Status == "" {
			stats.HealthyCollections++
		} else {
			stats.UnhealthyCollections++
		}
	}

	return &types.MemorySnapshot{
		CreatedAt:         time.Now().UTC(),
		Collections:       infos,
		Links:             m.admin.AllLinks(),
		LayerVectorCounts: layerCounts,
		Stats:             stats,
	}, nil
}
