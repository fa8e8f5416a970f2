package types

import "time"

// ResultType categorizes the outcome attached to a thought.
type ResultType string

const (
	ResultAction         ResultType = "action"
	ResultResponse       ResultType = "response"
	ResultInsight        ResultType = "insight"
	ResultDecision       ResultType = "decision"
	ResultSkillLearned   ResultType = "skill_learned"
	ResultFactDiscovered ResultType = "fact_discovered"
	ResultError          ResultType = "error"
	ResultDeferred       ResultType = "deferred"
)

// Known reports whether the result type is part of the built-in vocabulary.
func (r ResultType) Known() bool {
	switch r {
	case ResultAction, ResultResponse, ResultInsight, ResultDecision,
		ResultSkillLearned, ResultFactDiscovered, ResultError, ResultDeferred:
		return true
	}
	return false
}

// Result is an outcome record attached to a thought.
//
// Saving a result always creates an implicit relation from the thought:
// leads_to when the result succeeded, triggers when it failed.
type Result struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	ThoughtID     string         `json:"thought_id"`
	ResultType    ResultType     `json:"result_type"`
	Content       string         `json:"content"`
	Success       bool           `json:"success"`
	Confidence    float64        `json:"confidence"`
	CreatedAt     time.Time      `json:"created_at"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}
