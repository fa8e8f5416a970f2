package memory

import (
	"context"
	"sort"
	"time"

	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RelationStore persists typed directed edges between thoughts. Relation
// points carry a zero vector of the configured dimension: they live in the
// backend for its filterable payloads, not for similarity search.
//
// Referential integrity to thought ids is best-effort: a relation may
// reference a thought that was never written or was cleared.
type RelationStore struct {
	store  *ThoughtStore
	logger *zap.Logger
}

// NewRelationStore creates a relation store sharing the thought store's
// backend client, session locks, and metrics.
func NewRelationStore(store *ThoughtStore, logger *zap.Logger) *RelationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationStore{
		store:  store,
		logger: logger.With(zap.String("component", "relation_store")),
	}
}

// SaveRelation persists an edge. A missing id is generated; a missing
// CreatedAt is stamped. Cycles are permitted and not checked.
func (r *RelationStore) SaveRelation(ctx context.Context, sessionID string, rel types.Relation) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if err := validateID(rel.ID); err != nil {
		return err
	}
	if err := validateID(rel.SourceThoughtID); err != nil {
		return err
	}
	if err := validateID(rel.TargetThoughtID); err != nil {
		return err
	}

	unlock := r.store.locks.acquire(sessionID)
	defer unlock()

	rel.SessionID = sessionID
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = r.store.now()
	}

	payload, err := encodeRelation(rel)
	if err != nil {
		return err
	}

	cfg := r.store.cfg
	if err := r.store.ensureCollection(ctx, cfg.RelationCollection); err != nil {
		return err
	}
	point := vectordb.Point{
		ID:      rel.ID,
		Vector:  make([]float32, cfg.Dimension),
		Payload: payload,
	}
	if err := r.store.client.Upsert(ctx, cfg.RelationCollection, []vectordb.Point{point}); err != nil {
		return err
	}

	r.store.metrics.relationsSaved.Inc()
	r.logger.Debug("relation saved",
		zap.String("session_id", sessionID),
		zap.String("relation_id", rel.ID),
		zap.String("source", rel.SourceThoughtID),
		zap.String("target", rel.TargetThoughtID),
		zap.String("type", string(rel.Type)))
	return nil
}

func (r *RelationStore) decodeRelations(points []vectordb.Point) []types.Relation {
	relations := make([]types.Relation, 0, len(points))
	for _, p := range points {
		rel, err := decodeRelation(p.Payload)
		if err != nil {
			r.store.dropPoint("relation", p.ID, err)
			continue
		}
		relations = append(relations, rel)
	}
	sort.SliceStable(relations, func(i, j int) bool {
		if relations[i].CreatedAt.Equal(relations[j].CreatedAt) {
			return relations[i].ID < relations[j].ID
		}
		return relations[i].CreatedAt.Before(relations[j].CreatedAt)
	})
	return relations
}

// GetRelations returns all relations for the session, ascending by creation
// time. A missing collection degrades to an empty result.
func (r *RelationStore) GetRelations(ctx context.Context, sessionID string) ([]types.Relation, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	points, err := r.store.scrollSession(ctx, r.store.cfg.RelationCollection, sessionID)
	if err != nil {
		return nil, err
	}
	return r.decodeRelations(points), nil
}

// GetRelationsForThought returns every relation where the thought is source
// or target.
func (r *RelationStore) GetRelationsForThought(ctx context.Context, sessionID, thoughtID string) ([]types.Relation, error) {
	if err := validateID(thoughtID); err != nil {
		return nil, err
	}
	all, err := r.GetRelations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Relation, 0, len(all))
	for _, rel := range all {
		if rel.SourceThoughtID == thoughtID || rel.TargetThoughtID == thoughtID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// GetRelationsBetween returns the relations from sourceID to targetID.
func (r *RelationStore) GetRelationsBetween(ctx context.Context, sessionID, sourceID, targetID string) ([]types.Relation, error) {
	if err := validateID(sourceID); err != nil {
		return nil, err
	}
	if err := validateID(targetID); err != nil {
		return nil, err
	}
	all, err := r.GetRelations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Relation, 0, 2)
	for _, rel := range all {
		if rel.SourceThoughtID == sourceID && rel.TargetThoughtID == targetID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// stampRelation fills defaults used by SaveResult's implicit edge.
func stampRelation(sessionID, source, target string, typ types.RelationType, strength float64, now time.Time) types.Relation {
	return types.Relation{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		SourceThoughtID: source,
		TargetThoughtID: target,
		Type:            typ,
		Strength:        strength,
		CreatedAt:       now,
	}
}
