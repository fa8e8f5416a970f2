package vectordb

import (
	"context"
	"math"

	"github.com/BaSui01/memflow/types"
)

// Point is a single vector with its payload, addressed by a UUID string.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	Point
	Score float64 `json:"score"`
}

// Filter matches points whose payload fields equal the given values.
// A nil or empty filter matches everything.
type Filter struct {
	Match map[string]any `json:"match,omitempty"`
}

// MatchField builds a single-field equality filter.
func MatchField(key string, value any) *Filter {
	return &Filter{Match: map[string]any{key: value}}
}

// CollectionSpec declares the shape of a collection at creation time.
type CollectionSpec struct {
	VectorSize int    `json:"vector_size"`
	Distance   string `json:"distance"` // Cosine (default), Dot, Euclid
}

// CollectionDescription is the backend's view of an existing collection.
type CollectionDescription struct {
	Name        string                 `json:"name"`
	VectorSize  int                    `json:"vector_size"`
	PointsCount int                    `json:"points_count"`
	Distance    string                 `json:"distance"`
	Status      types.CollectionStatus `json:"status"`
}

// Client is the boundary to the remote vector-search backend.
//
// Cancellation is honored at each call boundary via ctx. Implementations
// must not retry internally.
type Client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, spec CollectionSpec) error
	DeleteCollection(ctx context.Context, name string) error
	GetCollectionInfo(ctx context.Context, name string) (*CollectionDescription, error)
	ListCollections(ctx context.Context) ([]string, error)

	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, filter *Filter, limit int, scoreThreshold float64) ([]ScoredPoint, error)
	// Scroll pages through points matching filter. offset is an opaque
	// cursor: pass "" for the first page; an empty returned cursor means
	// the listing is exhausted.
	Scroll(ctx context.Context, collection string, filter *Filter, limit int, offset string) ([]Point, string, error)
	DeletePoints(ctx context.Context, collection string, ids []string) error
	DeleteByFilter(ctx context.Context, collection string, filter *Filter) error
	Count(ctx context.Context, collection string, filter *Filter) (int, error)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or a zero-magnitude vector yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
