package memory

import (
	"context"

	"github.com/BaSui01/memflow/types"
	"go.uber.org/zap"
)

// CausalChain is one maximal path of relations starting at a thought,
// interpreted as a reasoning trace. RelationTypes holds the edge type of
// each hop, so len(RelationTypes) == len(ThoughtIDs)-1.
type CausalChain struct {
	ThoughtIDs    []string             `json:"thought_ids"`
	RelationTypes []types.RelationType `json:"relation_types"`
}

// Len returns the number of thoughts on the chain.
func (c CausalChain) Len() int { return len(c.ThoughtIDs) }

// CausalChainFinder reconstructs reasoning traces by walking outgoing
// relation edges.
//
// Complexity is exponential in branching factor times depth, so maxDepth
// must stay small (5-10). Any aggregate statistic over many start nodes
// must sample start thoughts rather than enumerate exhaustively.
type CausalChainFinder struct {
	relations *RelationStore
	logger    *zap.Logger
}

// NewCausalChainFinder creates a chain finder over the relation store.
func NewCausalChainFinder(relations *RelationStore, logger *zap.Logger) *CausalChainFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CausalChainFinder{
		relations: relations,
		logger:    logger.With(zap.String("component", "causal_chain_finder")),
	}
}

type chainEdge struct {
	target string
	typ    types.RelationType
}

// chainFrame is one branch of the traversal. The visited set is scoped to
// the branch (copied on fork), so a node blocked in one branch can still
// appear in a sibling branch.
type chainFrame struct {
	path    []string
	edges   []types.RelationType
	visited map[string]bool
}

// FindCausalChains returns all maximal chains reachable from startID over
// outgoing edges, each bounded by maxDepth hops. Chains of length 1 (no
// edges followed) are not recorded. Cycles terminate because a branch
// never revisits a node already on its own path.
//
// The traversal is an explicit stack, not recursion, so deep graphs cannot
// blow the call stack.
func (f *CausalChainFinder) FindCausalChains(ctx context.Context, sessionID, startID string, maxDepth int) ([]CausalChain, error) {
	if err := validateID(startID); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		return []CausalChain{}, nil
	}

	relations, err := f.relations.GetRelations(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	adjacency := make(map[string][]chainEdge)
	for _, rel := range relations {
		adjacency[rel.SourceThoughtID] = append(adjacency[rel.SourceThoughtID], chainEdge{
			target: rel.TargetThoughtID,
			typ:    rel.Type,
		})
	}

	chains := []CausalChain{}
	stack := []chainFrame{{
		path:    []string{startID},
		visited: map[string]bool{startID: true},
	}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		current := frame.path[len(frame.path)-1]

		atDepthLimit := len(frame.path)-1 >= maxDepth

		var nexts []chainEdge
		if !atDepthLimit {
			for _, edge := range adjacency[current] {
				if !frame.visited[edge.target] {
					nexts = append(nexts, edge)
				}
			}
		}

		// Branch terminates here: depth reached or no unvisited outgoing
		// edge. Record it as a maximal chain unless it is the bare start.
		if len(nexts) == 0 {
			if len(frame.path) > 1 {
				chains = append(chains, CausalChain{
					ThoughtIDs:    frame.path,
					RelationTypes: frame.edges,
				})
				f.relations.store.metrics.chainWalks.Observe(float64(len(frame.path)))
			}
			continue
		}

		for _, edge := range nexts {
			path := make([]string, len(frame.path), len(frame.path)+1)
			copy(path, frame.path)
			path = append(path, edge.target)

			edges := make([]types.RelationType, len(frame.edges), len(frame.edges)+1)
			copy(edges, frame.edges)
			edges = append(edges, edge.typ)

			visited := make(map[string]bool, len(frame.visited)+1)
			for id := range frame.visited {
				visited[id] = true
			}
			visited[edge.target] = true

			stack = append(stack, chainFrame{path: path, edges: edges, visited: visited})
		}
	}

	f.logger.Debug("causal chains found",
		zap.String("session_id", sessionID),
		zap.String("start", startID),
		zap.Int("count", len(chains)))
	return chains, nil
}
