package types

import "time"

// CollectionStatus mirrors the backend's reported collection health.
type CollectionStatus string

const (
	StatusGreen  CollectionStatus = "green"
	StatusYellow CollectionStatus = "yellow"
	StatusRed    CollectionStatus = "red"
)

// CollectionInfo merges backend collection metadata with the static purpose
// registry and the declared link graph.
//
// Invariant: VectorSize must equal the embedding dimension used by every
// writer targeting the collection; a nonzero disagreement is the
// dimension-mismatch fault detected by HealthCheck.
type CollectionInfo struct {
	Name              string           `json:"name"`
	VectorSize        int              `json:"vector_size"`
	PointsCount       int              `json:"points_count"`
	DistanceMetric    string           `json:"distance_metric"`
	Status            CollectionStatus `json:"status"`
	Purpose           string           `json:"purpose,omitempty"`
	LinkedCollections []string         `json:"linked_collections,omitempty"`
}

// LinkType is the vocabulary for declared links between collections.
// This is a static graph over collections, distinct from the per-thought
// relation graph.
type LinkType string

const (
	LinkDependsOn  LinkType = "depends_on"
	LinkIndexes    LinkType = "indexes"
	LinkExtends    LinkType = "extends"
	LinkMirrors    LinkType = "mirrors"
	LinkAggregates LinkType = "aggregates"
	LinkPartOf     LinkType = "part_of"
	LinkRelatedTo  LinkType = "related_to"
)

// CollectionLink declares a relationship between two collections.
type CollectionLink struct {
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	RelationType LinkType `json:"relation_type"`
	Strength     float64  `json:"strength"`
	Description  string   `json:"description,omitempty"`
}

// MemoryLayer names a cognitive memory category.
type MemoryLayer string

const (
	LayerWorking          MemoryLayer = "working"
	LayerEpisodic         MemoryLayer = "episodic"
	LayerSemantic         MemoryLayer = "semantic"
	LayerProcedural       MemoryLayer = "procedural"
	LayerAutobiographical MemoryLayer = "autobiographical"
)

// Layers lists the five fixed cognitive layers in canonical order.
func Layers() []MemoryLayer {
	return []MemoryLayer{
		LayerWorking, LayerEpisodic, LayerSemantic,
		LayerProcedural, LayerAutobiographical,
	}
}

// LayerMapping maps a cognitive layer onto the collections that back it.
type LayerMapping struct {
	Layer             MemoryLayer `json:"layer"`
	Collections       []string    `json:"collections"`
	Description       string      `json:"description,omitempty"`
	RetentionPriority float64     `json:"retention_priority"` // [0,1]
}

// SystemStats aggregates collection-level statistics for a snapshot.
type SystemStats struct {
	CollectionCount      int         `json:"collection_count"`
	TotalVectors         int         `json:"total_vectors"`
	HealthyCollections   int         `json:"healthy_collections"`
	UnhealthyCollections int         `json:"unhealthy_collections"`
	LinkCount            int         `json:"link_count"`
	DimensionHistogram   map[int]int `json:"dimension_histogram"`
}

// MemorySnapshot is a point-in-time view of the whole memory system.
type MemorySnapshot struct {
	CreatedAt         time.Time           `json:"created_at"`
	Collections       []CollectionInfo    `json:"collections"`
	Links             []CollectionLink    `json:"links"`
	LayerVectorCounts map[MemoryLayer]int `json:"layer_vector_counts"`
	Stats             SystemStats         `json:"stats"`
}
