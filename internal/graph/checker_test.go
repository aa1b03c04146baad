package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/store/memory"
	"github.com/roach88/guardrail/internal/testutil"
)

var testRules = []Rule{
	{Type: testutil.TypeBOMComponent, From: []string{"product"}, To: []string{"product"}, Hierarchical: true},
	{Type: testutil.TypeHasStatus, From: []string{"*"}, To: []string{"status"}},
}

func product(id string) *ir.EntityRef {
	return &ir.EntityRef{ID: id, OrganizationID: testutil.OrgA, EntityType: "product"}
}

func candidate(rel ir.Relationship) Candidate {
	return Candidate{Relationship: rel, From: product(rel.FromEntityID), To: product(rel.ToEntityID)}
}

func newChecker(edges *memory.Lookups) *Checker {
	return NewChecker(edges, Options{Rules: testRules})
}

func bom(id, from, to string) ir.Relationship {
	return testutil.Relationship(id, from, to, testutil.TypeBOMComponent)
}

func TestCheck_BOMChainThenCycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLookups()
	c := newChecker(store)

	for _, rel := range []ir.Relationship{
		bom("r1", testutil.EntityTable, testutil.EntityTop),
		bom("r2", testutil.EntityTable, testutil.EntityLegs),
	} {
		vs, err := c.Check(ctx, candidate(rel))
		require.NoError(t, err)
		require.Empty(t, vs, "edge %s", rel.ID)
		store.PutRelationship(rel)
	}

	vs, err := c.Check(ctx, candidate(bom("r3", testutil.EntityTop, testutil.EntityTable)))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, ir.CodeRelationshipCycle, vs[0].Code)
	assert.Contains(t, vs[0].Message, "ent-top -> ent-table -> ent-top")
}

func TestCheck_LongerCyclePath(t *testing.T) {
	store := memory.NewLookups()
	store.PutRelationship(bom("r1", "a", "b"))
	store.PutRelationship(bom("r2", "b", "c"))

	vs, err := newChecker(store).Check(context.Background(), candidate(bom("r3", "c", "a")))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Contains(t, vs[0].Message, "c -> a -> b -> c")
}

func TestCheck_DiamondIsNotACycle(t *testing.T) {
	store := memory.NewLookups()
	store.PutRelationship(bom("r1", "a", "b"))
	store.PutRelationship(bom("r2", "a", "c"))
	store.PutRelationship(bom("r3", "b", "d"))

	vs, err := newChecker(store).Check(context.Background(), candidate(bom("r4", "c", "d")))
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCheck_SelfReference(t *testing.T) {
	vs, err := newChecker(memory.NewLookups()).Check(context.Background(),
		candidate(bom("r1", testutil.EntityTable, testutil.EntityTable)))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, ir.CodeRelationshipSelfReference, vs[0].Code)
}

func TestCheck_NonHierarchicalSkipsCycleDetection(t *testing.T) {
	store := memory.NewLookups()
	store.PutRelationship(testutil.Relationship("s1", "a", "b", testutil.TypeHasStatus))

	status := &ir.EntityRef{ID: "a", OrganizationID: testutil.OrgA, EntityType: "status"}
	rel := testutil.Relationship("s2", "b", "a", testutil.TypeHasStatus)
	vs, err := newChecker(store).Check(context.Background(), Candidate{Relationship: rel, From: product("b"), To: status})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCheck_InactiveEdgesAreIgnored(t *testing.T) {
	inactive := false
	store := memory.NewLookups()
	old := bom("r1", "a", "b")
	old.IsActive = &inactive
	store.PutRelationship(old)

	vs, err := newChecker(store).Check(context.Background(), candidate(bom("r2", "b", "a")))
	require.NoError(t, err)
	assert.Empty(t, vs, "inactive stored edge does not close a cycle")

	store.PutRelationship(bom("r1", "a", "b"))
	cand := bom("r2", "b", "a")
	cand.IsActive = &inactive
	vs, err = newChecker(store).Check(context.Background(), candidate(cand))
	require.NoError(t, err)
	assert.Empty(t, vs, "inactive candidate does not join the graph")
}

func TestCheck_OtherOrganizationsAndTypesAreIgnored(t *testing.T) {
	foreign := bom("r1", "a", "b")
	foreign.OrganizationID = testutil.OrgB
	other := testutil.Relationship("r2", "a", "b", "SUPPLIES")

	// A source that ignores the scope arguments; the checker re-filters.
	all := ir.EdgeSourceFunc(func(context.Context, string, string) ([]ir.Relationship, error) {
		return []ir.Relationship{foreign, other}, nil
	})

	vs, err := NewChecker(all, Options{Rules: testRules}).Check(context.Background(), candidate(bom("r3", "b", "a")))
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCheck_ReverseDirectionIsNormalised(t *testing.T) {
	store := memory.NewLookups()
	// Stored as child -> parent with direction reverse: the hierarchy edge is a -> b.
	rev := bom("r1", "b", "a")
	rev.Direction = ir.DirectionReverse
	store.PutRelationship(rev)

	vs, err := newChecker(store).Check(context.Background(), candidate(bom("r2", "b", "a")))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, ir.CodeRelationshipCycle, vs[0].Code)
}

func TestCheck_UpdateReplacesOwnEdge(t *testing.T) {
	store := memory.NewLookups()
	store.PutRelationship(bom("r1", "a", "b"))

	// Re-pointing r1 as b -> a only cycles if the old r1 stays in the graph.
	vs, err := newChecker(store).Check(context.Background(), candidate(bom("r1", "b", "a")))
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCheck_TypeCompatibility(t *testing.T) {
	c := newChecker(memory.NewLookups())
	account := &ir.EntityRef{ID: "acct", OrganizationID: testutil.OrgA, EntityType: "account"}

	rel := bom("r1", "acct", "p1")
	vs, err := c.Check(context.Background(), Candidate{Relationship: rel, From: account, To: product("p1")})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, ir.CodeRelationshipTypeMismatch, vs[0].Code)
	assert.Equal(t, "relationship.from_entity_id", vs[0].Field)

	status := testutil.Relationship("s1", "p1", "acct", testutil.TypeHasStatus)
	vs, err = c.Check(context.Background(), Candidate{Relationship: status, From: product("p1"), To: account})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "relationship.to_entity_id", vs[0].Field)
}

func TestCheck_GlobPatterns(t *testing.T) {
	rules := []Rule{{Type: "CONTAINS", From: []string{"product*"}, To: []string{"*"}}}
	c := NewChecker(memory.NewLookups(), Options{Rules: rules})

	rel := testutil.Relationship("c1", "kit", "part", "CONTAINS")
	kit := &ir.EntityRef{ID: "kit", EntityType: "product_kit"}
	part := &ir.EntityRef{ID: "part", EntityType: "anything"}

	vs, err := c.Check(context.Background(), Candidate{Relationship: rel, From: kit, To: part})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCheck_UnresolvedEndpointsSkipTypeCheck(t *testing.T) {
	vs, err := newChecker(memory.NewLookups()).Check(context.Background(),
		Candidate{Relationship: bom("r1", "ghost", "p1"), To: product("p1")})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCheck_UndeclaredTypes(t *testing.T) {
	rel := testutil.Relationship("x1", "a", "b", "SUPPLIES")

	vs, err := newChecker(memory.NewLookups()).Check(context.Background(), candidate(rel))
	require.NoError(t, err)
	assert.Empty(t, vs)

	strict := NewChecker(memory.NewLookups(), Options{Rules: testRules, Strict: true})
	vs, err = strict.Check(context.Background(), candidate(rel))
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, ir.CodeRelationshipTypeMismatch, vs[0].Code)
}

func TestCheck_EdgeSourceFailure(t *testing.T) {
	cause := errors.New("timeout")
	c := NewChecker(testutil.FailingLookups{Err: cause}, Options{Rules: testRules})

	_, err := c.Check(context.Background(), candidate(bom("r1", "a", "b")))
	assert.ErrorIs(t, err, cause)
}

func TestValidateRules(t *testing.T) {
	assert.NoError(t, ValidateRules(testRules))
	assert.Error(t, ValidateRules([]Rule{{From: []string{"x"}}}))
	assert.Error(t, ValidateRules([]Rule{{Type: "A"}, {Type: "A"}}))
	assert.Error(t, ValidateRules([]Rule{{Type: "A", From: []string{"[bad"}}}))
}

func TestHierarchicalTypes(t *testing.T) {
	assert.Equal(t, []string{testutil.TypeBOMComponent}, HierarchicalTypes(testRules))
}
