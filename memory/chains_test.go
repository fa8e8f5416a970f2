package memory

import (
	"context"
	"testing"

	"github.com/BaSui01/memflow/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newChainFixture(t *testing.T) (*RelationStore, *CausalChainFinder) {
	t.Helper()
	_, relations := newTestRelationStore(t)
	return relations, NewCausalChainFinder(relations, zaptest.NewLogger(t))
}

func link(t *testing.T, relations *RelationStore, session, from, to string, typ types.RelationType) {
	t.Helper()
	require.NoError(t, relations.SaveRelation(context.Background(), session, types.Relation{
		SourceThoughtID: from,
		TargetThoughtID: to,
		Type:            typ,
		Strength:        1,
	}))
}

func TestFindCausalChains_LinearPath(t *testing.T) {
	t.Parallel()
	relations, finder := newChainFixture(t)

	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	link(t, relations, "s1", a, b, types.RelationLeadsTo)
	link(t, relations, "s1", b, c, types.RelationCausedBy)

	chains, err := finder.FindCausalChains(context.Background(), "s1", a, 5)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, []string{a, b, c}, chains[0].ThoughtIDs)
	assert.Equal(t, []types.RelationType{types.RelationLeadsTo, types.RelationCausedBy}, chains[0].RelationTypes)
}

func TestFindCausalChains_BranchingYieldsAllMaximalChains(t *testing.T) {
	t.Parallel()
	relations, finder := newChainFixture(t)

	a, b, c, d := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
	link(t, relations, "s1", a, b, types.RelationLeadsTo)
	link(t, relations, "s1", a, c, types.RelationTriggers)
	link(t, relations, "s1", c, d, types.RelationLeadsTo)

	chains, err := finder.FindCausalChains(context.Background(), "s1", a, 5)
	require.NoError(t, err)
	require.Len(t, chains, 2, "every maximal branch is reported, not only the longest")

	paths := make(map[int][]string)
	for _, ch := range chains {
		paths[ch.Len()] = ch.ThoughtIDs
	}
	assert.Equal(t, []string{a, b}, paths[2])
	assert.Equal(t, []string{a, c, d}, paths[3])
}

func TestFindCausalChains_CycleTerminates(t *testing.T) {
	t.Parallel()
	relations, finder := newChainFixture(t)

	a, b := uuid.NewString(), uuid.NewString()
	link(t, relations, "s1", a, b, types.RelationLeadsTo)
	link(t, relations, "s1", b, a, types.RelationCausedBy)

	chains, err := finder.FindCausalChains(context.Background(), "s1", a, 10)
	require.NoError(t, err)
	require.Len(t, chains, 1, "the cycle edge back to a visited node is not followed")
	assert.Equal(t, []string{a, b}, chains[0].ThoughtIDs)
}

func TestFindCausalChains_DepthBound(t *testing.T) {
	t.Parallel()
	relations, finder := newChainFixture(t)

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for i := 0; i < len(ids)-1; i++ {
		link(t, relations, "s1", ids[i], ids[i+1], types.RelationLeadsTo)
	}

	chains, err := finder.FindCausalChains(context.Background(), "s1", ids[0], 2)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, ids[:3], chains[0].ThoughtIDs, "two hops means three thoughts")
}

func TestFindCausalChains_NoOutgoingEdges(t *testing.T) {
	t.Parallel()
	_, finder := newChainFixture(t)

	chains, err := finder.FindCausalChains(context.Background(), "s1", uuid.NewString(), 5)
	require.NoError(t, err)
	assert.Empty(t, chains, "a length-1 path is not a chain")
}

func TestFindCausalChains_NodeReappearsAcrossBranches(t *testing.T) {
	t.Parallel()
	relations, finder := newChainFixture(t)

	// a forks to b and c; both converge on d. The visited set is
	// branch-scoped, so d shows up on both chains.
	a, b, c, d := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
	link(t, relations, "s1", a, b, types.RelationLeadsTo)
	link(t, relations, "s1", a, c, types.RelationLeadsTo)
	link(t, relations, "s1", b, d, types.RelationLeadsTo)
	link(t, relations, "s1", c, d, types.RelationLeadsTo)

	chains, err := finder.FindCausalChains(context.Background(), "s1", a, 5)
	require.NoError(t, err)
	require.Len(t, chains, 2)
	for _, ch := range chains {
		assert.Equal(t, d, ch.ThoughtIDs[len(ch.ThoughtIDs)-1])
	}
}

func TestFindCausalChains_InvalidStart(t *testing.T) {
	t.Parallel()
	_, finder := newChainFixture(t)

	_, err := finder.FindCausalChains(context.Background(), "s1", "bogus", 5)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidID, types.GetErrorCode(err))
}

func TestFindCausalChains_ZeroDepth(t *testing.T) {
	t.Parallel()
	_, finder := newChainFixture(t)

	chains, err := finder.FindCausalChains(context.Background(), "s1", uuid.NewString(), 0)
	require.NoError(t, err)
	assert.Empty(t, chains)
}
