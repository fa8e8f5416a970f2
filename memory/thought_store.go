package memory

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/memflow/embedding"
	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// StoreConfig configures the session-scoped stores.
type StoreConfig struct {
	ThoughtCollection  string `json:"thought_collection"`
	RelationCollection string `json:"relation_collection"`
	ResultCollection   string `json:"result_collection"`

	// Dimension is the vector size for all three collections. Zero defers
	// to the embedder's declared dimension.
	Dimension int    `json:"dimension"`
	Distance  string `json:"distance"`

	// BatchSize bounds the points per upsert request in SaveThoughts.
	BatchSize int `json:"batch_size"`

	// MaxChainDepth caps the parent-link walk in GetChainedThoughts.
	MaxChainDepth int `json:"max_chain_depth"`

	// Now is injectable for tests.
	Now func() time.Time `json:"-"`
}

func (c *StoreConfig) withDefaults(embedder embedding.Embedder) {
	if c.ThoughtCollection == "" {
		c.ThoughtCollection = "agent_thoughts"
	}
	if c.RelationCollection == "" {
		c.RelationCollection = "thought_relations"
	}
	if c.ResultCollection == "" {
		c.ResultCollection = "thought_results"
	}
	if c.Dimension == 0 && embedder != nil {
		c.Dimension = embedder.Dimension()
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Distance == "" {
		c.Distance = "Cosine"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxChainDepth <= 0 {
		c.MaxChainDepth = 32
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// ThoughtStore persists thoughts into the vector backend, scoped by
// session. When no embedder is configured, thoughts are stored with a zero
// vector and search degrades to substring matching.
type ThoughtStore struct {
	client   vectordb.Client
	embedder embedding.Embedder // nil when embeddings are unavailable
	cfg      StoreConfig
	locks    *sessionLocks
	metrics  *Collector
	logger   *zap.Logger
	now      func() time.Time

	decodeDrops atomic.Int64
}

// NewThoughtStore creates a thought store over the given backend client.
// embedder may be nil; metrics may be nil (a private registry is used then).
func NewThoughtStore(client vectordb.Client, embedder embedding.Embedder, cfg StoreConfig, metrics *Collector, logger *zap.Logger) *ThoughtStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.withDefaults(embedder)
	if metrics == nil {
		metrics = NewCollector("memflow", prometheus.NewRegistry())
	}

	return &ThoughtStore{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
		locks:    newSessionLocks(),
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "thought_store")),
		now:      cfg.Now,
	}
}

// Config returns the effective configuration after defaulting.
func (s *ThoughtStore) Config() StoreConfig {
	return s.cfg
}

// DecodeDrops reports how many stored points were skipped because their
// payload could not be decoded. Exposed so callers can observe lenient-read
// data loss instead of it silently vanishing.
func (s *ThoughtStore) DecodeDrops() int64 {
	return s.decodeDrops.Load()
}

func (s *ThoughtStore) dropPoint(kind, id string, err error) {
	s.decodeDrops.Add(1)
	s.metrics.decodeFailures.WithLabelValues(kind).Inc()
	s.logger.Warn("skipping undecodable point",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.Error(err))
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return types.NewErrorf(types.ErrInvalidID, "id %q is not a valid UUID", id).WithCause(err)
	}
	return nil
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return types.NewError(types.ErrInvalidArgument, "session id is required")
	}
	return nil
}

// ensureCollection lazily creates a collection on first use. An absent
// collection is NotInitialized, not an error.
func (s *ThoughtStore) ensureCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.CreateCollection(ctx, name, vectordb.CollectionSpec{
		VectorSize: s.cfg.Dimension,
		Distance:   s.cfg.Distance,
	})
}

// embedContent produces the vector for a thought's content, or a zero
// vector when no embedder is configured.
func (s *ThoughtStore) embedContent(ctx context.Context, content string) ([]float32, error) {
	if s.embedder == nil {
		return make([]float32, s.cfg.Dimension), nil
	}
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (s *ThoughtStore) thoughtPoint(ctx context.Context, sessionID string, t types.Thought) (vectordb.Point, error) {
	t.SessionID = sessionID
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now()
	}
	payload, err := encodeThought(t)
	if err != nil {
		return vectordb.Point{}, err
	}
	vec, err := s.embedContent(ctx, t.Content)
	if err != nil {
		return vectordb.Point{}, err
	}
	return vectordb.Point{ID: t.ID, Vector: vec, Payload: payload}, nil
}

// SaveThought embeds the thought's content and upserts it by id. Saving
// the same id twice replaces the earlier record (last write wins).
func (s *ThoughtStore) SaveThought(ctx context.Context, sessionID string, t types.Thought) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	if err := validateID(t.ID); err != nil {
		return err
	}

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	point, err := s.thoughtPoint(ctx, sessionID, t)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, s.cfg.ThoughtCollection); err != nil {
		return err
	}
	if err := s.client.Upsert(ctx, s.cfg.ThoughtCollection, []vectordb.Point{point}); err != nil {
		return err
	}

	s.metrics.thoughtsSaved.Inc()
	s.logger.Debug("thought saved",
		zap.String("session_id", sessionID),
		zap.String("thought_id", t.ID),
		zap.String("type", string(t.Type)))
	return nil
}

// SaveThoughts persists a batch, chunked to bound request size. Chunks are
// applied sequentially so duplicate ids within one batch resolve in input
// order on the backend.
func (s *ThoughtStore) SaveThoughts(ctx context.Context, sessionID string, thoughts []types.Thought) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	for _, t := range thoughts {
		if err := validateID(t.ID); err != nil {
			return err
		}
	}
	if len(thoughts) == 0 {
		return nil
	}

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	if err := s.ensureCollection(ctx, s.cfg.ThoughtCollection); err != nil {
		return err
	}

	for start := 0; start < len(thoughts); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(thoughts) {
			end = len(thoughts)
		}

		points := make([]vectordb.Point, 0, end-start)
		for _, t := range thoughts[start:end] {
			point, err := s.thoughtPoint(ctx, sessionID, t)
			if err != nil {
				return err
			}
			points = append(points, point)
		}
		if err := s.client.Upsert(ctx, s.cfg.ThoughtCollection, points); err != nil {
			return err
		}
		s.metrics.thoughtsSaved.Add(float64(len(points)))
	}

	s.logger.Debug("thought batch saved",
		zap.String("session_id", sessionID),
		zap.Int("count", len(thoughts)))
	return nil
}

// scrollSession pages through every point for the session in the given
// collection. A missing collection degrades to an empty result: reads
// favor availability, so callers must not treat empty as proof of no data.
func (s *ThoughtStore) scrollSession(ctx context.Context, collection, sessionID string) ([]vectordb.Point, error) {
	filter := vectordb.MatchField(fieldSessionID, sessionID)

	var all []vectordb.Point
	cursor := ""
	for {
		points, next, err := s.client.Scroll(ctx, collection, filter, 256, cursor)
		if err != nil {
			if types.IsCode(err, types.ErrCollectionNotFound) {
				return nil, nil
			}
			return nil, err
		}
		all = append(all, points...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

func (s *ThoughtStore) decodeThoughts(points []vectordb.Point) []types.Thought {
	thoughts := make([]types.Thought, 0, len(points))
	for _, p := range points {
		t, err := decodeThought(p.Payload)
		if err != nil {
			s.dropPoint("thought", p.ID, err)
			continue
		}
		thoughts = append(thoughts, t)
	}
	sortThoughts(thoughts)
	return thoughts
}

// sortThoughts orders ascending by timestamp, id as tiebreak so the order
// is deterministic regardless of write order.
func sortThoughts(thoughts []types.Thought) {
	sort.SliceStable(thoughts, func(i, j int) bool {
		if thoughts[i].Timestamp.Equal(thoughts[j].Timestamp) {
			return thoughts[i].ID < thoughts[j].ID
		}
		return thoughts[i].Timestamp.Before(thoughts[j].Timestamp)
	})
}

// GetThoughts returns all thoughts for the session, ascending by timestamp.
func (s *ThoughtStore) GetThoughts(ctx context.Context, sessionID string) ([]types.Thought, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	points, err := s.scrollSession(ctx, s.cfg.ThoughtCollection, sessionID)
	if err != nil {
		return nil, err
	}
	return s.decodeThoughts(points), nil
}

// GetThought returns a single thought by id, or nil when absent.
func (s *ThoughtStore) GetThought(ctx context.Context, sessionID, id string) (*types.Thought, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	filter := &vectordb.Filter{Match: map[string]any{
		fieldSessionID: sessionID,
		fieldID:        id,
	}}
	points, _, err := s.client.Scroll(ctx, s.cfg.ThoughtCollection, filter, 1, "")
	if err != nil {
		if types.IsCode(err, types.ErrCollectionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}

	t, err := decodeThought(points[0].Payload)
	if err != nil {
		s.dropPoint("thought", points[0].ID, err)
		return nil, nil
	}
	return &t, nil
}

// GetThoughtsInRange returns the session's thoughts with start <= timestamp <= end.
func (s *ThoughtStore) GetThoughtsInRange(ctx context.Context, sessionID string, start, end time.Time) ([]types.Thought, error) {
	all, err := s.GetThoughts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Thought, 0, len(all))
	for _, t := range all {
		if t.Timestamp.Before(start) || t.Timestamp.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// GetThoughtsByType returns the session's thoughts of the given type.
func (s *ThoughtStore) GetThoughtsByType(ctx context.Context, sessionID string, typ types.ThoughtType) ([]types.Thought, error) {
	all, err := s.GetThoughts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Thought, 0, len(all))
	for _, t := range all {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetRecentThoughts returns the most recent limit thoughts, still in
// ascending timestamp order.
func (s *ThoughtStore) GetRecentThoughts(ctx context.Context, sessionID string, limit int) ([]types.Thought, error) {
	all, err := s.GetThoughts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit >= len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

// CountThoughts returns the number of thoughts stored for the session.
func (s *ThoughtStore) CountThoughts(ctx context.Context, sessionID string) (int, error) {
	if err := validateSession(sessionID); err != nil {
		return 0, err
	}
	count, err := s.client.Count(ctx, s.cfg.ThoughtCollection, vectordb.MatchField(fieldSessionID, sessionID))
	if err != nil {
		if types.IsCode(err, types.ErrCollectionNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// SearchThoughts finds thoughts relevant to query. With an embedder this is
// nearest-neighbor search scoped to the session; without one it falls back
// to case-insensitive substring match over content.
func (s *ThoughtStore) SearchThoughts(ctx context.Context, sessionID, query string, limit int) ([]types.Thought, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	if s.embedder == nil {
		s.metrics.searches.WithLabelValues("substring").Inc()
		return s.substringSearch(ctx, sessionID, query, limit)
	}

	s.metrics.searches.WithLabelValues("vector").Inc()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.client.Search(ctx, s.cfg.ThoughtCollection, vec,
		vectordb.MatchField(fieldSessionID, sessionID), limit, 0)
	if err != nil {
		if types.IsCode(err, types.ErrCollectionNotFound) {
			return []types.Thought{}, nil
		}
		return nil, err
	}

	out := make([]types.Thought, 0, len(hits))
	for _, hit := range hits {
		t, err := decodeThought(hit.Payload)
		if err != nil {
			s.dropPoint("thought", hit.ID, err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *ThoughtStore) substringSearch(ctx context.Context, sessionID, query string, limit int) ([]types.Thought, error) {
	all, err := s.GetThoughts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := make([]types.Thought, 0, limit)
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Content), needle) {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// GetChainedThoughts walks parentThoughtId links starting from parentID and
// returns the parent followed by its descendants in discovery order. The
// parent-link tree is distinct from the relation graph. The walk is
// iterative and capped at MaxChainDepth; malformed parent cycles terminate.
func (s *ThoughtStore) GetChainedThoughts(ctx context.Context, sessionID, parentID string) ([]types.Thought, error) {
	if err := validateID(parentID); err != nil {
		return nil, err
	}
	all, err := s.GetThoughts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]types.Thought, len(all))
	children := make(map[string][]types.Thought)
	for _, t := range all {
		byID[t.ID] = t
		if t.ParentThoughtID != "" {
			children[t.ParentThoughtID] = append(children[t.ParentThoughtID], t)
		}
	}

	var chain []types.Thought
	if root, ok := byID[parentID]; ok {
		chain = append(chain, root)
	}

	visited := map[string]bool{parentID: true}
	frontier := []string{parentID}
	for depth := 0; depth < s.cfg.MaxChainDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, child := range children[id] {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				chain = append(chain, child)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return chain, nil
}

// ClearSession deletes all points for the session across the thought,
// relation, and result collections. Missing collections are not an error.
func (s *ThoughtStore) ClearSession(ctx context.Context, sessionID string) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}

	unlock := s.locks.acquire(sessionID)
	defer unlock()

	filter := vectordb.MatchField(fieldSessionID, sessionID)
	for _, collection := range []string{
		s.cfg.ThoughtCollection,
		s.cfg.RelationCollection,
		s.cfg.ResultCollection,
	} {
		if err := s.client.DeleteByFilter(ctx, collection, filter); err != nil {
			if types.IsCode(err, types.ErrCollectionNotFound) {
				continue
			}
			return err
		}
	}

	s.logger.Info("session cleared", zap.String("session_id", sessionID))
	return nil
}

// recentWithVectors returns the most recent limit thoughts along with their
// stored embeddings, for the relation-inference path. Thoughts whose point
// carries no vector are skipped.
func (s *ThoughtStore) recentWithVectors(ctx context.Context, sessionID string, limit int) ([]types.Thought, [][]float32, error) {
	points, err := s.scrollSession(ctx, s.cfg.ThoughtCollection, sessionID)
	if err != nil {
		return nil, nil, err
	}

	type entry struct {
		thought types.Thought
		vector  []float32
	}
	entries := make([]entry, 0, len(points))
	for _, p := range points {
		if len(p.Vector) == 0 {
			continue
		}
		t, err := decodeThought(p.Payload)
		if err != nil {
			s.dropPoint("thought", p.ID, err)
			continue
		}
		entries = append(entries, entry{thought: t, vector: p.Vector})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].thought.Timestamp.Equal(entries[j].thought.Timestamp) {
			return entries[i].thought.ID < entries[j].thought.ID
		}
		return entries[i].thought.Timestamp.Before(entries[j].thought.Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	thoughts := make([]types.Thought, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		thoughts[i] = e.thought
		vectors[i] = e.vector
	}
	return thoughts, vectors, nil
}
