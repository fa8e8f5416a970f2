package admin

import (
	"sync"

	"github.com/BaSui01/memflow/types"
)

// linkRegistry is the in-memory declared link graph. It is metadata only;
// nothing here touches the backend.
type linkRegistry struct {
	mu    sync.RWMutex
	links []types.CollectionLink
}

func newLinkRegistry(seed []types.CollectionLink) *linkRegistry {
	return &linkRegistry{links: seed}
}

// defaultLinks seeds the graph with the relationships between the built-in
// collections.
func defaultLinks() []types.CollectionLink {
	return []types.CollectionLink{
		{
			Source:       "thought_relations",
			Target:       "agent_thoughts",
			RelationType: types.LinkIndexes,
			Strength:     1.0,
			Description:  "relation endpoints reference thought ids",
		},
		{
			Source:       "thought_results",
			Target:       "agent_thoughts",
			RelationType: types.LinkDependsOn,
			Strength:     1.0,
			Description:  "results attach to the thought that produced them",
		},
		{
			Source:       "episodic_events",
			Target:       "working_context",
			RelationType: types.LinkAggregates,
			Strength:     0.8,
			Description:  "episodes consolidate from working context",
		},
		{
			Source:       "semantic_facts",
			Target:       "episodic_events",
			RelationType: types.LinkExtends,
			Strength:     0.6,
			Description:  "facts distilled from repeated episodes",
		},
		{
			Source:       "life_narrative",
			Target:       "episodic_events",
			RelationType: types.LinkAggregates,
			Strength:     0.7,
			Description:  "narrative summarizes the episodic record",
		},
	}
}

func (r *linkRegistry) Add(link types.CollectionLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, link)
}

// For returns every link where the collection is source or target.
func (r *linkRegistry) For(name string) []types.CollectionLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.CollectionLink, 0, 2)
	for _, link := range r.links {
		if link.Source == name || link.Target == name {
			out = append(out, link)
		}
	}
	return out
}

// ByType filters For(name) by relation type.
func (r *linkRegistry) ByType(name string, typ types.LinkType) []types.CollectionLink {
	out := make([]types.CollectionLink, 0, 2)
	for _, link := range r.For(name) {
		if link.RelationType == typ {
			out = append(out, link)
		}
	}
	return out
}

func (r *linkRegistry) All() []types.CollectionLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.CollectionLink, len(r.links))
	copy(out, r.links)
	return out
}

func (r *linkRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}
