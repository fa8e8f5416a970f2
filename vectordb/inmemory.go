package vectordb

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/BaSui01/memflow/types"
	"go.uber.org/zap"
)

// InMemoryClient is a Client backed by process memory. It exists for tests
// and small local deployments; search is exact cosine over all points.
type InMemoryClient struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	logger      *zap.Logger
}

type memCollection struct {
	spec   CollectionSpec
	points map[string]Point
	order  []string // insertion order, for stable scroll pagination
}

// NewInMemoryClient creates an empty in-memory backend.
func NewInMemoryClient(logger *zap.Logger) *InMemoryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryClient{
		collections: make(map[string]*memCollection),
		logger:      logger.With(zap.String("component", "inmemory_client")),
	}
}

func (c *InMemoryClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.collections[name]
	return ok, nil
}

func (c *InMemoryClient) CreateCollection(ctx context.Context, name string, spec CollectionSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if spec.VectorSize <= 0 {
		return types.NewError(types.ErrInvalidArgument, "vector size must be > 0")
	}
	if spec.Distance == "" {
		spec.Distance = "Cosine"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.collections[name]; ok {
		return nil
	}
	c.collections[name] = &memCollection{
		spec:   spec,
		points: make(map[string]Point),
	}
	c.logger.Debug("collection created", zap.String("collection", name), zap.Int("vector_size", spec.VectorSize))
	return nil
}

func (c *InMemoryClient) DeleteCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.collections, name)
	return nil
}

func (c *InMemoryClient) GetCollectionInfo(ctx context.Context, name string) (*CollectionDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.collections[name]
	if !ok {
		return nil, types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", name)
	}
	return &CollectionDescription{
		Name:        name,
		VectorSize:  col.spec.VectorSize,
		PointsCount: len(col.points),
		Distance:    col.spec.Distance,
		Status:      types.StatusGreen,
	}, nil
}

func (c *InMemoryClient) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.collections))
	for name := range c.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *InMemoryClient) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.collections[collection]
	if !ok {
		return types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", collection)
	}

	for i, p := range points {
		if p.ID == "" {
			return types.NewErrorf(types.ErrInvalidArgument, "point[%d] has empty id", i)
		}
		if len(p.Vector) != col.spec.VectorSize {
			return types.NewErrorf(types.ErrInvalidArgument,
				"point[%d] vector dimension mismatch: got=%d want=%d", i, len(p.Vector), col.spec.VectorSize)
		}
		if _, exists := col.points[p.ID]; !exists {
			col.order = append(col.order, p.ID)
		}
		col.points[p.ID] = clonePoint(p)
	}
	return nil
}

func (c *InMemoryClient) Search(ctx context.Context, collection string, vector []float32, filter *Filter, limit int, scoreThreshold float64) ([]ScoredPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []ScoredPoint{}, nil
	}
	if len(vector) == 0 {
		return nil, types.NewError(types.ErrInvalidArgument, "query vector is required")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.collections[collection]
	if !ok {
		return nil, types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", collection)
	}

	results := make([]ScoredPoint, 0, len(col.points))
	for _, id := range col.order {
		p, ok := col.points[id]
		if !ok || !matches(p, filter) {
			continue
		}
		score := CosineSimilarity(vector, p.Vector)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		results = append(results, ScoredPoint{Point: clonePoint(p), Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (c *InMemoryClient) Scroll(ctx context.Context, collection string, filter *Filter, limit int, offset string) ([]Point, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 100
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.collections[collection]
	if !ok {
		return nil, "", types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", collection)
	}

	start := 0
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return nil, "", types.NewErrorf(types.ErrInvalidArgument, "invalid scroll cursor %q", offset)
		}
		start = n
	}

	matched := make([]Point, 0, limit)
	seen := 0
	next := ""
	for _, id := range col.order {
		p, ok := col.points[id]
		if !ok || !matches(p, filter) {
			continue
		}
		if seen < start {
			seen++
			continue
		}
		if len(matched) == limit {
			next = strconv.Itoa(seen)
			break
		}
		matched = append(matched, clonePoint(p))
		seen++
	}
	return matched, next, nil
}

func (c *InMemoryClient) DeletePoints(ctx context.Context, collection string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.collections[collection]
	if !ok {
		return types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", collection)
	}

	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
		delete(col.points, id)
	}
	col.order = filterOrder(col.order, idSet)
	return nil
}

func (c *InMemoryClient) DeleteByFilter(ctx context.Context, collection string, filter *Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filter == nil || len(filter.Match) == 0 {
		return types.NewError(types.ErrInvalidArgument, "delete by filter requires a non-empty filter")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.collections[collection]
	if !ok {
		return types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", collection)
	}

	removed := make(map[string]bool)
	for id, p := range col.points {
		if matches(p, filter) {
			removed[id] = true
			delete(col.points, id)
		}
	}
	col.order = filterOrder(col.order, removed)
	return nil
}

func (c *InMemoryClient) Count(ctx context.Context, collection string, filter *Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	col, ok := c.collections[collection]
	if !ok {
		return 0, types.NewErrorf(types.ErrCollectionNotFound, "collection %q not found", collection)
	}

	if filter == nil || len(filter.Match) == 0 {
		return len(col.points), nil
	}
	count := 0
	for _, p := range col.points {
		if matches(p, filter) {
			count++
		}
	}
	return count, nil
}

func matches(p Point, f *Filter) bool {
	if f == nil || len(f.Match) == 0 {
		return true
	}
	for key, want := range f.Match {
		got, ok := p.Payload[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func clonePoint(p Point) Point {
	out := Point{ID: p.ID}
	if p.Vector != nil {
		out.Vector = make([]float32, len(p.Vector))
		copy(out.Vector, p.Vector)
	}
	if p.Payload != nil {
		out.Payload = make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			out.Payload[k] = v
		}
	}
	return out
}

func filterOrder(order []string, removed map[string]bool) []string {
	if len(removed) == 0 {
		return order
	}
	kept := order[:0]
	for _, id := range order {
		if !removed[id] {
			kept = append(kept, id)
		}
	}
	return kept
}
