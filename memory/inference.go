package memory

import (
	"context"

	"github.com/BaSui01/memflow/types"
	"github.com/BaSui01/memflow/vectordb"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InferenceConfig tunes the relation-inference heuristic.
type InferenceConfig struct {
	// RecentWindow is how many recent thoughts are considered (default 10).
	RecentWindow int `json:"recent_window"`
	// SimilarityThreshold gates similarity-driven relations (default 0.7).
	// The parent override ignores it.
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

func (c *InferenceConfig) withDefaults() {
	if c.RecentWindow <= 0 {
		c.RecentWindow = 10
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.7
	}
}

// typePairRule maps an (existing, new) thought-type pair to a relation
// type. Empty strings are wildcards. Rules are checked in order; first
// match wins.
type typePairRule struct {
	existing types.ThoughtType
	incoming types.ThoughtType
	relation types.RelationType
}

// inferenceRules is the fixed heuristic table. It is not learned; swap it
// out here if a better classifier becomes available.
var inferenceRules = []typePairRule{
	{types.ThoughtObservation, types.ThoughtAnalytical, types.RelationLeadsTo},
	{types.ThoughtAnalytical, types.ThoughtDecision, types.RelationLeadsTo},
	{types.ThoughtEmotional, types.ThoughtSelfReflection, types.RelationTriggers},
	{types.ThoughtMemoryRecall, "", types.RelationSupports},
	{"", types.ThoughtSynthesis, types.RelationPartOf},
	{"", types.ThoughtDecision, types.RelationLeadsTo},
}

// classifyRelation picks the relation type for an (existing, incoming)
// pair. A parent link overrides the table entirely.
func classifyRelation(existing, incoming types.Thought) types.RelationType {
	if incoming.ParentThoughtID != "" && incoming.ParentThoughtID == existing.ID {
		return types.RelationRefines
	}
	for _, rule := range inferenceRules {
		if rule.existing != "" && rule.existing != existing.Type {
			continue
		}
		if rule.incoming != "" && rule.incoming != incoming.Type {
			continue
		}
		return rule.relation
	}
	return types.RelationSimilarTo
}

// RelationInference persists a thought and automatically links it to
// recent thoughts in the session by embedding similarity plus a fixed
// type-pair heuristic.
type RelationInference struct {
	store     *ThoughtStore
	relations *RelationStore
	cfg       InferenceConfig
	logger    *zap.Logger
}

// NewRelationInference creates the inference engine over the given stores.
func NewRelationInference(store *ThoughtStore, relations *RelationStore, cfg InferenceConfig, logger *zap.Logger) *RelationInference {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.withDefaults()
	return &RelationInference{
		store:     store,
		relations: relations,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "relation_inference")),
	}
}

// SaveWithRelations persists the thought, then infers edges from recent
// session thoughts. Without an embedder the save succeeds and inference is
// a no-op (similarity is treated as 0). Edge direction is existing → new.
//
// For every recent thought the relation is created when cosine similarity
// exceeds the threshold, or unconditionally (type refines) when the new
// thought names it as parent. Strength equals the similarity, clamped to
// [0,1].
func (e *RelationInference) SaveWithRelations(ctx context.Context, sessionID string, t types.Thought) ([]types.Relation, error) {
	if err := e.store.SaveThought(ctx, sessionID, t); err != nil {
		return nil, err
	}
	if e.store.embedder == nil {
		return nil, nil
	}

	newVec, err := e.store.embedder.Embed(ctx, t.Content)
	if err != nil {
		return nil, err
	}

	// One extra slot because the window includes the just-saved thought.
	recent, vectors, err := e.store.recentWithVectors(ctx, sessionID, e.cfg.RecentWindow+1)
	if err != nil {
		return nil, err
	}

	var inferred []types.Relation
	for i, existing := range recent {
		if existing.ID == t.ID {
			continue
		}

		similarity := vectordb.CosineSimilarity(newVec, vectors[i])
		parentLink := t.ParentThoughtID != "" && t.ParentThoughtID == existing.ID
		if !parentLink && similarity <= e.cfg.SimilarityThreshold {
			continue
		}

		strength := similarity
		if strength < 0 {
			strength = 0
		}

		rel := types.Relation{
			ID:              uuid.NewString(),
			SessionID:       sessionID,
			SourceThoughtID: existing.ID,
			TargetThoughtID: t.ID,
			Type:            classifyRelation(existing, t),
			Strength:        strength,
			CreatedAt:       e.store.now(),
		}
		if err := e.relations.SaveRelation(ctx, sessionID, rel); err != nil {
			return inferred, err
		}
		e.store.metrics.relationsInferred.Inc()
		inferred = append(inferred, rel)

		e.logger.Debug("relation inferred",
			zap.String("session_id", sessionID),
			zap.String("source", existing.ID),
			zap.String("target", t.ID),
			zap.String("type", string(rel.Type)),
			zap.Float64("similarity", similarity))
	}
	return inferred, nil
}
