package types

import "time"

// RelationType is the closed vocabulary of edge types between thoughts.
type RelationType string

const (
	RelationCausedBy    RelationType = "caused_by"
	RelationLeadsTo     RelationType = "leads_to"
	RelationContradicts RelationType = "contradicts"
	RelationSupports    RelationType = "supports"
	RelationRefines     RelationType = "refines"
	RelationAbstracts   RelationType = "abstracts"
	RelationElaborates  RelationType = "elaborates"
	RelationSimilarTo   RelationType = "similar_to"
	RelationInstanceOf  RelationType = "instance_of"
	RelationPartOf      RelationType = "part_of"
	RelationTriggers    RelationType = "triggers"
	RelationResolves    RelationType = "resolves"
)

// Known reports whether the relation type is part of the closed vocabulary.
func (r RelationType) Known() bool {
	switch r {
	case RelationCausedBy, RelationLeadsTo, RelationContradicts,
		RelationSupports, RelationRefines, RelationAbstracts,
		RelationElaborates, RelationSimilarTo, RelationInstanceOf,
		RelationPartOf, RelationTriggers, RelationResolves:
		return true
	}
	return false
}

// Relation is a typed directed edge between two thoughts.
//
// Edges are many-to-many and cycles are permitted. Referential integrity to
// thought ids is best-effort, not transactional: a relation may outlive or
// precede the thoughts it references.
type Relation struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"session_id"`
	SourceThoughtID string         `json:"source_thought_id"`
	TargetThoughtID string         `json:"target_thought_id"`
	Type            RelationType   `json:"type"`
	Strength        float64        `json:"strength"` // [0,1]
	CreatedAt       time.Time      `json:"created_at"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}
