package memory

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/memflow/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRelationStore(t *testing.T) (*ThoughtStore, *RelationStore) {
	t.Helper()
	store := newTestStore(t)
	return store, NewRelationStore(store, zaptest.NewLogger(t))
}

func TestSaveRelation_RoundTrip(t *testing.T) {
	t.Parallel()
	_, relations := newTestRelationStore(t)
	ctx := context.Background()

	rel := types.Relation{
		SourceThoughtID: uuid.NewString(),
		TargetThoughtID: uuid.NewString(),
		Type:            types.RelationCausedBy,
		Strength:        0.8,
	}
	require.NoError(t, relations.SaveRelation(ctx, "s1", rel))

	got, err := relations.GetRelations(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID, "missing id is generated")
	assert.Equal(t, rel.SourceThoughtID, got[0].SourceThoughtID)
	assert.Equal(t, rel.TargetThoughtID, got[0].TargetThoughtID)
	assert.Equal(t, types.RelationCausedBy, got[0].Type)
	assert.Equal(t, 0.8, got[0].Strength)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestSaveRelation_RejectsMalformedEndpoint(t *testing.T) {
	t.Parallel()
	_, relations := newTestRelationStore(t)

	rel := types.Relation{
		SourceThoughtID: "nope",
		TargetThoughtID: uuid.NewString(),
		Type:            types.RelationSupports,
	}
	err := relations.SaveRelation(context.Background(), "s1", rel)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidID, types.GetErrorCode(err))
}

func TestGetRelations_SortedByCreatedAt(t *testing.T) {
	t.Parallel()
	_, relations := newTestRelationStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	late := types.Relation{
		ID:              uuid.NewString(),
		SourceThoughtID: uuid.NewString(),
		TargetThoughtID: uuid.NewString(),
		Type:            types.RelationLeadsTo,
		CreatedAt:       base.Add(time.Minute),
	}
	early := types.Relation{
		ID:              uuid.NewString(),
		SourceThoughtID: uuid.NewString(),
		TargetThoughtID: uuid.NewString(),
		Type:            types.RelationSupports,
		CreatedAt:       base,
	}
	require.NoError(t, relations.SaveRelation(ctx, "s1", late))
	require.NoError(t, relations.SaveRelation(ctx, "s1", early))

	got, err := relations.GetRelations(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)
}

func TestGetRelationsForThoughtAndBetween(t *testing.T) {
	t.Parallel()
	_, relations := newTestRelationStore(t)
	ctx := context.Background()

	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	require.NoError(t, relations.SaveRelation(ctx, "s1", types.Relation{
		SourceThoughtID: a, TargetThoughtID: b, Type: types.RelationLeadsTo,
	}))
	require.NoError(t, relations.SaveRelation(ctx, "s1", types.Relation{
		SourceThoughtID: b, TargetThoughtID: c, Type: types.RelationLeadsTo,
	}))

	forB, err := relations.GetRelationsForThought(ctx, "s1", b)
	require.NoError(t, err)
	assert.Len(t, forB, 2, "b appears as target and as source")

	between, err := relations.GetRelationsBetween(ctx, "s1", a, b)
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, a, between[0].SourceThoughtID)

	reverse, err := relations.GetRelationsBetween(ctx, "s1", b, a)
	require.NoError(t, err)
	assert.Empty(t, reverse, "direction matters")
}

func TestGetRelations_UnknownSessionIsEmpty(t *testing.T) {
	t.Parallel()
	_, relations := newTestRelationStore(t)

	got, err := relations.GetRelations(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, got)
}
