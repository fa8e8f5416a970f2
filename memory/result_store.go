package memory

import (
	"context"

	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResultStore persists outcome records attached to thoughts. Every save
// also writes the implicit relation from the thought to the result:
// leads_to on success, triggers on failure.
type ResultStore struct {
	store     *ThoughtStore
	relations *RelationStore
	logger    *zap.Logger
}

// NewResultStore creates a result store sharing the thought store's backend
// client and the relation store for implicit links.
func NewResultStore(store *ThoughtStore, relations *RelationStore, logger *zap.Logger) *ResultStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultStore{
		store:     store,
		relations: relations,
		logger:    logger.With(zap.String("component", "result_store")),
	}
}

// SaveResult persists the result and its implicit relation.
func (r *ResultStore) SaveResult(ctx context.Context, sessionID string, res types.Result) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if err := validateID(res.ID); err != nil {
		return err
	}
	if err := validateID(res.ThoughtID); err != nil {
		return err
	}

	res.SessionID = sessionID
	if res.CreatedAt.IsZero() {
		res.CreatedAt = r.store.now()
	}

	payload, err := encodeResult(res)
	if err != nil {
		return err
	}

	if err := r.saveResultPoint(ctx, sessionID, res.ID, payload); err != nil {
		return err
	}

	linkType := types.RelationLeadsTo
	if !res.Success {
		linkType = types.RelationTriggers
	}
	link := stampRelation(sessionID, res.ThoughtID, res.ID, linkType, res.Confidence, res.CreatedAt)
	if err := r.relations.SaveRelation(ctx, sessionID, link); err != nil {
		return err
	}

	r.logger.Debug("result saved",
		zap.String("session_id", sessionID),
		zap.String("result_id", res.ID),
		zap.String("thought_id", res.ThoughtID),
		zap.Bool("success", res.Success),
		zap.String("link_type", string(linkType)))
	return nil
}

// saveResultPoint upserts the encoded result under the session lock. The
// lock is released before the implicit relation is written, which takes it
// again; the two writes are not atomic (best-effort integrity, never
// transactional).
func (r *ResultStore) saveResultPoint(ctx context.Context, sessionID, id string, payload map[string]any) error {
	unlock := r.store.locks.acquire(sessionID)
	defer unlock()

	cfg := r.store.cfg
	if err := r.store.ensureCollection(ctx, cfg.ResultCollection); err != nil {
		return err
	}
	point := vectordb.Point{
		ID:      id,
		Vector:  make([]float32, cfg.Dimension),
		Payload: payload,
	}
	if err := r.store.client.Upsert(ctx, cfg.ResultCollection, []vectordb.Point{point}); err != nil {
		return err
	}
	r.store.metrics.resultsSaved.Inc()
	return nil
}

func (r *ResultStore) decodeResults(points []vectordb.Point) []types.Result {
	results := make([]types.Result, 0, len(points))
	for _, p := range points {
		res, err := decodeResult(p.Payload)
		if err != nil {
			r.store.dropPoint("result", p.ID, err)
			continue
		}
		results = append(results, res)
	}
	return results
}

// GetResults returns all results for the session. A missing collection
// degrades to an empty result set.
func (r *ResultStore) GetResults(ctx context.Context, sessionID string) ([]types.Result, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	points, err := r.store.scrollSession(ctx, r.store.cfg.ResultCollection, sessionID)
	if err != nil {
		return nil, err
	}
	return r.decodeResults(points), nil
}

// GetResultsForThought returns the results attached to one thought.
func (r *ResultStore) GetResultsForThought(ctx context.Context, sessionID, thoughtID string) ([]types.Result, error) {
	if err := validateID(thoughtID); err != nil {
		return nil, err
	}
	all, err := r.GetResults(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Result, 0, len(all))
	for _, res := range all {
		if res.ThoughtID == thoughtID {
			out = append(out, res)
		}
	}
	return out, nil
}
