package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/memflow/types"
)

// Payload field names. These are the wire/storage schema; changing them
// breaks compatibility with points written by earlier versions.
const (
	fieldID              = "id"
	fieldSessionID       = "session_id"
	fieldType            = "type"
	fieldOrigin          = "origin"
	fieldContent         = "content"
	fieldConfidence      = "confidence"
	fieldRelevance       = "relevance"
	fieldTimestamp       = "timestamp"
	fieldTopic           = "topic"
	fieldParentThought   = "parent_thought_id"
	fieldTags            = "tags"
	fieldMetadataJSON    = "metadata_json"
	fieldSourceThought   = "source_thought_id"
	fieldTargetThought   = "target_thought_id"
	fieldRelationType    = "relation_type"
	fieldStrength        = "strength"
	fieldCreatedAt       = "created_at"
	fieldThoughtID       = "thought_id"
	fieldResultType      = "result_type"
	fieldSuccess         = "success"
	fieldExecutionTimeMS = "execution_time_ms"
)

// Timestamps are stored as round-trippable UTC ISO-8601 strings.
const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func encodeThought(t types.Thought) (map[string]any, error) {
	payload := map[string]any{
		fieldID:         t.ID,
		fieldSessionID:  t.SessionID,
		fieldType:       string(t.Type),
		fieldOrigin:     string(t.Origin),
		fieldContent:    t.Content,
		fieldConfidence: t.Confidence,
		fieldRelevance:  t.Relevance,
		fieldTimestamp:  encodeTime(t.Timestamp),
	}
	if t.Topic != "" {
		payload[fieldTopic] = t.Topic
	}
	if t.ParentThoughtID != "" {
		payload[fieldParentThought] = t.ParentThoughtID
	}
	if len(t.Tags) > 0 {
		tags := make([]any, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = tag
		}
		payload[fieldTags] = tags
	}
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return nil, err
	}
	if meta != "" {
		payload[fieldMetadataJSON] = meta
	}
	return payload, nil
}

func encodeRelation(r types.Relation) (map[string]any, error) {
	payload := map[string]any{
		fieldID:            r.ID,
		fieldSessionID:     r.SessionID,
		fieldSourceThought: r.SourceThoughtID,
		fieldTargetThought: r.TargetThoughtID,
		fieldRelationType:  string(r.Type),
		fieldStrength:      r.Strength,
		fieldCreatedAt:     encodeTime(r.CreatedAt),
	}
	meta, err := encodeMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}
	if meta != "" {
		payload[fieldMetadataJSON] = meta
	}
	return payload, nil
}

func encodeResult(r types.Result) (map[string]any, error) {
	payload := map[string]any{
		fieldID:         r.ID,
		fieldSessionID:  r.SessionID,
		fieldThoughtID:  r.ThoughtID,
		fieldResultType: string(r.ResultType),
		fieldContent:    r.Content,
		fieldSuccess:    r.Success,
		fieldConfidence: r.Confidence,
		fieldCreatedAt:  encodeTime(r.CreatedAt),
	}
	if r.ExecutionTime > 0 {
		payload[fieldExecutionTimeMS] = float64(r.ExecutionTime.Milliseconds())
	}
	meta, err := encodeMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}
	if meta != "" {
		payload[fieldMetadataJSON] = meta
	}
	return payload, nil
}

// decodeErr wraps a field-level problem into the typed deserialization
// failure. Stores skip the offending point and count it; they never fail
// the whole query over one bad payload.
func decodeErr(kind, field string, cause error) error {
	e := types.NewErrorf(types.ErrDeserialization, "%s payload field %q", kind, field)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

func payloadString(p map[string]any, field string) (string, bool) {
	v, ok := p[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func payloadFloat(p map[string]any, field string) (float64, bool) {
	switch v := p[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func requireString(p map[string]any, kind, field string) (string, error) {
	s, ok := payloadString(p, field)
	if !ok || s == "" {
		return "", decodeErr(kind, field, fmt.Errorf("missing or not a string"))
	}
	return s, nil
}

func requireTime(p map[string]any, kind, field string) (time.Time, error) {
	s, ok := payloadString(p, field)
	if !ok {
		return time.Time{}, decodeErr(kind, field, fmt.Errorf("missing or not a string"))
	}
	ts, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, decodeErr(kind, field, err)
	}
	return ts, nil
}

func decodeMetadata(p map[string]any, kind string) (map[string]any, error) {
	raw, ok := payloadString(p, fieldMetadataJSON)
	if !ok || raw == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, decodeErr(kind, fieldMetadataJSON, err)
	}
	return meta, nil
}

func decodeThought(p map[string]any) (types.Thought, error) {
	const kind = "thought"
	var t types.Thought
	var err error

	if t.ID, err = requireString(p, kind, fieldID); err != nil {
		return types.Thought{}, err
	}
	if t.SessionID, err = requireString(p, kind, fieldSessionID); err != nil {
		return types.Thought{}, err
	}
	typ, err := requireString(p, kind, fieldType)
	if err != nil {
		return types.Thought{}, err
	}
	t.Type = types.ThoughtType(typ)

	origin, err := requireString(p, kind, fieldOrigin)
	if err != nil {
		return types.Thought{}, err
	}
	t.Origin = types.ThoughtOrigin(origin)

	content, ok := payloadString(p, fieldContent)
	if !ok {
		return types.Thought{}, decodeErr(kind, fieldContent, fmt.Errorf("missing or not a string"))
	}
	t.Content = content

	if t.Confidence, ok = payloadFloat(p, fieldConfidence); !ok {
		return types.Thought{}, decodeErr(kind, fieldConfidence, fmt.Errorf("missing or not a number"))
	}
	if t.Relevance, ok = payloadFloat(p, fieldRelevance); !ok {
		return types.Thought{}, decodeErr(kind, fieldRelevance, fmt.Errorf("missing or not a number"))
	}
	if t.Timestamp, err = requireTime(p, kind, fieldTimestamp); err != nil {
		return types.Thought{}, err
	}

	t.Topic, _ = payloadString(p, fieldTopic)
	t.ParentThoughtID, _ = payloadString(p, fieldParentThought)

	if raw, ok := p[fieldTags]; ok {
		list, ok := raw.([]any)
		if !ok {
			return types.Thought{}, decodeErr(kind, fieldTags, fmt.Errorf("not a list"))
		}
		tags := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return types.Thought{}, decodeErr(kind, fieldTags, fmt.Errorf("non-string tag"))
			}
			tags = append(tags, s)
		}
		t.Tags = tags
	}

	if t.Metadata, err = decodeMetadata(p, kind); err != nil {
		return types.Thought{}, err
	}
	return t, nil
}

func decodeRelation(p map[string]any) (types.Relation, error) {
	const kind = "relation"
	var r types.Relation
	var err error

	if r.ID, err = requireString(p, kind, fieldID); err != nil {
		return types.Relation{}, err
	}
	if r.SessionID, err = requireString(p, kind, fieldSessionID); err != nil {
		return types.Relation{}, err
	}
	if r.SourceThoughtID, err = requireString(p, kind, fieldSourceThought); err != nil {
		return types.Relation{}, err
	}
	if r.TargetThoughtID, err = requireString(p, kind, fieldTargetThought); err != nil {
		return types.Relation{}, err
	}
	typ, err := requireString(p, kind, fieldRelationType)
	if err != nil {
		return types.Relation{}, err
	}
	r.Type = types.RelationType(typ)

	var ok bool
	if r.Strength, ok = payloadFloat(p, fieldStrength); !ok {
		return types.Relation{}, decodeErr(kind, fieldStrength, fmt.Errorf("missing or not a number"))
	}
	if r.CreatedAt, err = requireTime(p, kind, fieldCreatedAt); err != nil {
		return types.Relation{}, err
	}
	if r.Metadata, err = decodeMetadata(p, kind); err != nil {
		return types.Relation{}, err
	}
	return r, nil
}

func decodeResult(p map[string]any) (types.Result, error) {
	const kind = "result"
	var r types.Result
	var err error

	if r.ID, err = requireString(p, kind, fieldID); err != nil {
		return types.Result{}, err
	}
	if r.SessionID, err = requireString(p, kind, fieldSessionID); err != nil {
		return types.Result{}, err
	}
	if r.ThoughtID, err = requireString(p, kind, fieldThoughtID); err != nil {
		return types.Result{}, err
	}
	typ, err := requireString(p, kind, fieldResultType)
	if err != nil {
		return types.Result{}, err
	}
	r.ResultType = types.ResultType(typ)

	content, ok := payloadString(p, fieldContent)
	if !ok {
		return types.Result{}, decodeErr(kind, fieldContent, fmt.Errorf("missing or not a string"))
	}
	r.Content = content

	success, ok := p[fieldSuccess].(bool)
	if !ok {
		return types.Result{}, decodeErr(kind, fieldSuccess, fmt.Errorf("missing or not a bool"))
	}
	r.Success = success

	if r.Confidence, ok = payloadFloat(p, fieldConfidence); !ok {
		return types.Result{}, decodeErr(kind, fieldConfidence, fmt.Errorf("missing or not a number"))
	}
	if r.CreatedAt, err = requireTime(p, kind, fieldCreatedAt); err != nil {
		return types.Result{}, err
	}

	if ms, ok := payloadFloat(p, fieldExecutionTimeMS); ok {
		r.ExecutionTime = time.Duration(ms) * time.Millisecond
	}

	if r.Metadata, err = decodeMetadata(p, kind); err != nil {
		return types.Result{}, err
	}
	return r, nil
}
