package types

import "time"

// ThoughtType tags the cognitive role of a thought. The constants below are
// the vocabulary the relation-inference heuristic understands; callers may
// store other values and they round-trip unchanged.
type ThoughtType string

const (
	ThoughtObservation    ThoughtType = "Observation"
	ThoughtAnalytical     ThoughtType = "Analytical"
	ThoughtDecision       ThoughtType = "Decision"
	ThoughtEmotional      ThoughtType = "Emotional"
	ThoughtSelfReflection ThoughtType = "SelfReflection"
	ThoughtMemoryRecall   ThoughtType = "MemoryRecall"
	ThoughtSynthesis      ThoughtType = "Synthesis"
	ThoughtQuestion       ThoughtType = "Question"
	ThoughtPlanning       ThoughtType = "Planning"
)

// Known reports whether the type is part of the built-in vocabulary.
func (t ThoughtType) Known() bool {
	switch t {
	case ThoughtObservation, ThoughtAnalytical, ThoughtDecision,
		ThoughtEmotional, ThoughtSelfReflection, ThoughtMemoryRecall,
		ThoughtSynthesis, ThoughtQuestion, ThoughtPlanning:
		return true
	}
	return false
}

// ThoughtOrigin records how a thought came to exist.
type ThoughtOrigin string

const (
	// OriginReactive marks thoughts produced in direct response to input.
	OriginReactive ThoughtOrigin = "Reactive"
	// OriginAutonomous marks thoughts produced by the agent's own loop.
	OriginAutonomous ThoughtOrigin = "Autonomous"
	// OriginChained marks thoughts derived from a parent thought.
	OriginChained ThoughtOrigin = "Chained"
)

// Known reports whether the origin is part of the built-in vocabulary.
func (o ThoughtOrigin) Known() bool {
	switch o {
	case OriginReactive, OriginAutonomous, OriginChained:
		return true
	}
	return false
}

// Thought is an atomic persisted unit of agent reasoning.
//
// Thoughts are immutable once written: there is no update API, corrections
// are new thoughts referencing the original via ParentThoughtID. The ID is
// a caller-assigned UUID used directly as the backend point identifier,
// which makes writes naturally idempotent (upsert-by-id, last write wins).
type Thought struct {
	ID              string         `json:"id"`
	SessionID       string         `json:"session_id"`
	Type            ThoughtType    `json:"type"`
	Origin          ThoughtOrigin  `json:"origin"`
	Content         string         `json:"content"`
	Confidence      float64        `json:"confidence"` // [0,1]
	Relevance       float64        `json:"relevance"`  // [0,1]
	Timestamp       time.Time      `json:"timestamp"`
	ParentThoughtID string         `json:"parent_thought_id,omitempty"`
	Topic           string         `json:"topic,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}
