package admin

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"go.uber.org/zap"
)

// AdminConfig configures the collection administrator.
type AdminConfig struct {
	// DefaultDimension is used when EnsureCollection is called without an
	// explicit size.
	DefaultDimension int    `json:"default_dimension"`
	Distance         string `json:"distance"`
}

func (c *AdminConfig) withDefaults() {
	if c.DefaultDimension <= 0 {
		c.DefaultDimension = 768
	}
	if c.Distance == "" {
		c.Distance = "Cosine"
	}
}

// CollectionAdmin manages backend collections and the metadata the engine
// layers on top of them. The purpose registry and link graph are in-memory
// caches guarded by a mutex; the backend remains the source of truth for
// everything else.
type CollectionAdmin struct {
	client vectordb.Client
	cfg    AdminConfig
	links  *linkRegistry
	logger *zap.Logger

	mu       sync.RWMutex
	purposes map[string]string
}

// NewCollectionAdmin creates an administrator over the backend client,
// seeded with the default purposes and collection links.
func NewCollectionAdmin(client vectordb.Client, cfg AdminConfig, logger *zap.Logger) *CollectionAdmin {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.withDefaults()

	return &CollectionAdmin{
		client:   client,
		cfg:      cfg,
		links:    newLinkRegistry(defaultLinks()),
		logger:   logger.With(zap.String("component", "collection_admin")),
		purposes: defaultPurposes(),
	}
}

func defaultPurposes() map[string]string {
	return map[string]string{
		"agent_thoughts":    "atomic reasoning units, session scoped",
		"thought_relations": "typed causal/associative edges between thoughts",
		"thought_results":   "outcome records attached to thoughts",
		"working_context":   "short-lived task context",
		"episodic_events":   "event-based experiential memories",
		"semantic_facts":    "long-term factual knowledge",
		"procedural_skills": "learned procedures and skills",
		"life_narrative":    "autobiographical agent history",
	}
}

// SetPurpose records a human-readable purpose for a collection.
func (a *CollectionAdmin) SetPurpose(name, purpose string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.purposes[name] = purpose
}

func (a *CollectionAdmin) purposeFor(name string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.purposes[name]
}

// EnsureCollection creates the collection if absent with the declared
// shape. size <= 0 uses the configured default dimension.
func (a *CollectionAdmin) EnsureCollection(ctx context.Context, name string, size int) error {
	if size <= 0 {
		size = a.cfg.DefaultDimension
	}

	exists, err := a.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := a.client.CreateCollection(ctx, name, vectordb.CollectionSpec{
		VectorSize: size,
		Distance:   a.cfg.Distance,
	}); err != nil {
		return err
	}

	a.logger.Info("collection ensured",
		zap.String("collection", name),
		zap.Int("vector_size", size))
	return nil
}

// DeleteCollection removes the collection and all of its data.
func (a *CollectionAdmin) DeleteCollection(ctx context.Context, name string) error {
	if err := a.client.DeleteCollection(ctx, name); err != nil {
		return err
	}
	a.logger.Warn("collection deleted", zap.String("collection", name))
	return nil
}

// DescribeCollection merges backend metadata with the purpose registry and
// declared links into a CollectionInfo.
func (a *CollectionAdmin) DescribeCollection(ctx context.Context, name string) (*types.CollectionInfo, error) {
	desc, err := a.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	linked := make([]string, 0, 2)
	for _, link := range a.links.For(name) {
		other := link.Target
		if other == name {
			other = link.Source
		}
		linked = append(linked, other)
	}
	sort.Strings(linked)

	return &types.CollectionInfo{
		Name:              desc.Name,
		VectorSize:        desc.VectorSize,
		PointsCount:       desc.PointsCount,
		DistanceMetric:    desc.Distance,
		Status:            desc.Status,
		Purpose:           a.purposeFor(name),
		LinkedCollections: linked,
	}, nil
}

// ListCollections describes every collection known to the backend.
func (a *CollectionAdmin) ListCollections(ctx context.Context) ([]types.CollectionInfo, error) {
	names, err := a.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]types.CollectionInfo, 0, len(names))
	for _, name := range names {
		info, err := a.DescribeCollection(ctx, name)
		if err != nil {
			// A collection deleted between list and describe is not fatal.
			if types.IsCode(err, types.ErrCollectionNotFound) {
				continue
			}
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// HealthIssue describes one collection flagged by HealthCheck.
type HealthIssue struct {
	Collection        string `json:"collection"`
	ActualDimension   int    `json:"actual_dimension"`
	ExpectedDimension int    `json:"expected_dimension"`
	PointsCount       int    `json:"points_count"`
}

// HealthReport is the outcome of a dimension health check.
type HealthReport struct {
	Healthy    bool          `json:"healthy"`
	Checked    int           `json:"checked"`
	Mismatched []HealthIssue `json:"mismatched,omitempty"`
}

// HealthCheck flags every collection whose vector size is nonzero and
// differs from expectedDimension. A never-written collection (size 0) is
// never flagged. Nothing is repaired here; that is AutoHeal's job and only
// on explicit request.
func (a *CollectionAdmin) HealthCheck(ctx context.Context, expectedDimension int) (*HealthReport, error) {
	if expectedDimension <= 0 {
		return nil, types.NewError(types.ErrInvalidArgument, "expected dimension must be > 0")
	}

	names, err := a.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	report := &HealthReport{Healthy: true, Checked: len(names)}
	for _, name := range names {
		desc, err := a.client.GetCollectionInfo(ctx, name)
		if err != nil {
			if types.IsCode(err, types.ErrCollectionNotFound) {
				continue
			}
			return nil, err
		}
		if desc.VectorSize == 0 || desc.VectorSize == expectedDimension {
			continue
		}
		report.Healthy = false
		report.Mismatched = append(report.Mismatched, HealthIssue{
			Collection:        name,
			ActualDimension:   desc.VectorSize,
			ExpectedDimension: expectedDimension,
			PointsCount:       desc.PointsCount,
		})
	}

	if !report.Healthy {
		a.logger.Warn("dimension mismatch detected",
			zap.Int("expected", expectedDimension),
			zap.Int("mismatched", len(report.Mismatched)))
	}
	return report, nil
}

// AutoHeal deletes and recreates every mismatched collection empty at the
// target dimension. This loses all data in those collections: confirm must
// be true or nothing happens. Returns the names of healed collections.
func (a *CollectionAdmin) AutoHeal(ctx context.Context, targetDimension int, confirm bool) ([]string, error) {
	if !confirm {
		return nil, types.NewError(types.ErrConfirmationRequired,
			"auto-heal recreates mismatched collections empty; pass confirm=true to proceed")
	}

	report, err := a.HealthCheck(ctx, targetDimension)
	if err != nil {
		return nil, err
	}

	healed := make([]string, 0, len(report.Mismatched))
	for _, issue := range report.Mismatched {
		if err := a.client.DeleteCollection(ctx, issue.Collection); err != nil {
			return healed, err
		}
		if err := a.client.CreateCollection(ctx, issue.Collection, vectordb.CollectionSpec{
			VectorSize: targetDimension,
			Distance:   a.cfg.Distance,
		}); err != nil {
			return healed, err
		}
		healed = append(healed, issue.Collection)

		a.logger.Warn("collection healed, data lost",
			zap.String("collection", issue.Collection),
			zap.Int("old_dimension", issue.ActualDimension),
			zap.Int("new_dimension", targetDimension),
			zap.Int("points_lost", issue.PointsCount))
	}
	return healed, nil
}

// AddLink declares a link between two collections at runtime.
func (a *CollectionAdmin) AddLink(link types.CollectionLink) error {
	if link.Source == "" || link.Target == "" {
		return types.NewError(types.ErrInvalidArgument, "link source and target are required")
	}
	a.links.Add(link)
	return nil
}

// LinksFor returns every declared link touching the collection.
func (a *CollectionAdmin) LinksFor(name string) []types.CollectionLink {
	return a.links.For(name)
}

// LinksByType returns the links touching the collection with the given
// relation type.
func (a *CollectionAdmin) LinksByType(name string, typ types.LinkType) []types.CollectionLink {
	return a.links.ByType(name, typ)
}

// AllLinks returns a copy of the declared link graph.
func (a *CollectionAdmin) AllLinks() []types.CollectionLink {
	return a.links.All()
}
