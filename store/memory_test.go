package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verdict_errors "github.com/sentinelworks/verdict/errors"
	"github.com/sentinelworks/verdict/model"
)

func validSet(id string) model.PolicySet {
	value := model.StringValue("read")
	return model.PolicySet{
		ID:                 id,
		CombiningAlgorithm: model.DenyOverrides,
		Rules: []model.Rule{
			{
				ID:     "allow-reads",
				Effect: model.EffectAllow,
				Target: &model.Expression{
					Kind:     model.ExprCompare,
					Category: model.CategoryAction,
					Operator: model.OpEq,
					Value:    &value,
				},
			},
			{ID: "deny-all", Effect: model.EffectDeny},
		},
	}
}

func TestPutAssignsAscendingVersions(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	id, version, err := mem.Put(ctx, validSet("documents"))
	require.NoError(t, err)
	assert.Equal(t, "documents", id)
	assert.Equal(t, 1, version)

	_, version, err = mem.Put(ctx, validSet("documents"))
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestStoredVersionsAreImmutable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	original := validSet("documents")
	_, _, err := mem.Put(ctx, original)
	require.NoError(t, err)

	// Mutating the caller's copy after Put must not affect what was stored.
	original.Rules[0].ID = "mutated"

	edited := validSet("documents")
	edited.Rules = edited.Rules[:1]
	_, _, err = mem.Put(ctx, edited)
	require.NoError(t, err)

	v1, err := mem.Get(ctx, "documents", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Len(t, v1.Rules, 2)
	assert.Equal(t, "allow-reads", v1.Rules[0].ID)

	v2, err := mem.Get(ctx, "documents", 2)
	require.NoError(t, err)
	assert.Len(t, v2.Rules, 1)

	// Get hands out copies too.
	v1.Rules[0].ID = "scribbled"
	again, err := mem.Get(ctx, "documents", 1)
	require.NoError(t, err)
	assert.Equal(t, "allow-reads", again.Rules[0].ID)
}

func TestGetLatestByDefault(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	_, _, err := mem.Put(ctx, validSet("documents"))
	require.NoError(t, err)
	_, _, err = mem.Put(ctx, validSet("documents"))
	require.NoError(t, err)

	latest, err := mem.Get(ctx, "documents", LatestVersion)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
}

func TestGetUnknownIDOrVersion(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	_, err := mem.Get(ctx, "missing", LatestVersion)
	assert.ErrorIs(t, err, verdict_errors.ErrPolicySetNotFound)

	_, _, err = mem.Put(ctx, validSet("documents"))
	require.NoError(t, err)

	_, err = mem.Get(ctx, "documents", 5)
	assert.ErrorIs(t, err, verdict_errors.ErrPolicySetNotFound)

	var notFound *verdict_errors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "documents", notFound.ID)
	assert.Equal(t, 5, notFound.Version)
}

func TestValidationCollectsEveryViolation(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	bad := model.PolicySet{
		ID:                 "broken",
		CombiningAlgorithm: "majority-vote",
		Rules: []model.Rule{
			{ID: "r1", Effect: "maybe"},
			{ID: "r1", Effect: model.EffectDeny},
			{ID: "r2", Effect: model.EffectAllow, Target: &model.Expression{Kind: "regex"}},
		},
	}

	_, _, err := mem.Put(ctx, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, verdict_errors.ErrInvalidPolicySet)

	var validationErr *verdict_errors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Len(t, validationErr.Violations, 4)

	// Nothing was stored.
	_, err = mem.Get(ctx, "broken", LatestVersion)
	assert.ErrorIs(t, err, verdict_errors.ErrPolicySetNotFound)
}

func TestListVersionsAscendingAndRestartable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	for i := 0; i < 3; i++ {
		_, _, err := mem.Put(ctx, validSet("documents"))
		require.NoError(t, err)
	}

	versions, err := mem.ListVersions(ctx, "documents")
	require.NoError(t, err)
	assert.Equal(t, 3, versions.Len())
	assert.Equal(t, []int{1, 2, 3}, versions.Collect())

	versions.Reset()
	assert.Equal(t, []int{1, 2, 3}, versions.Collect())

	_, err = mem.ListVersions(ctx, "missing")
	assert.ErrorIs(t, err, verdict_errors.ErrPolicySetNotFound)
}

func TestListIDsPagination(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	for _, id := range []string{"billing", "audit", "documents"} {
		_, _, err := mem.Put(ctx, validSet(id))
		require.NoError(t, err)
	}

	ids, err := mem.ListIDs(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "billing"}, ids)

	ids, err = mem.ListIDs(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"documents"}, ids)

	ids, err = mem.ListIDs(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = mem.ListIDs(ctx, -1, 0)
	assert.ErrorIs(t, err, verdict_errors.ErrInvalidPagination)
}
