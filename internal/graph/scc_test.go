package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/testutil"
)

func TestFindCycles_DAG(t *testing.T) {
	edges := []ir.Relationship{bom("r1", "a", "b"), bom("r2", "a", "c"), bom("r3", "b", "c")}
	assert.Empty(t, FindCycles(edges, []string{testutil.TypeBOMComponent}))
}

func TestFindCycles_ReportsEachComponent(t *testing.T) {
	edges := []ir.Relationship{
		bom("r1", "a", "b"),
		bom("r2", "b", "a"),
		bom("r3", "x", "x"),
		bom("r4", "b", "c"),
	}

	cycles := FindCycles(edges, []string{testutil.TypeBOMComponent})
	require.Len(t, cycles, 2)

	paths := [][]string{cycles[0].Path, cycles[1].Path}
	assert.Contains(t, paths, []string{"a", "b", "a"})
	assert.Contains(t, paths, []string{"x", "x"})
	for _, c := range cycles {
		assert.Equal(t, testutil.OrgA, c.OrganizationID)
		assert.Equal(t, testutil.TypeBOMComponent, c.RelationshipType)
	}
}

func TestFindCycles_ScopedByOrganizationAndType(t *testing.T) {
	back := bom("r2", "b", "a")
	back.OrganizationID = testutil.OrgB
	status := testutil.Relationship("s1", "b", "a", testutil.TypeHasStatus)

	edges := []ir.Relationship{bom("r1", "a", "b"), back, status}
	assert.Empty(t, FindCycles(edges, []string{testutil.TypeBOMComponent}))
}

func TestFindCycles_ThreeNodePath(t *testing.T) {
	edges := []ir.Relationship{bom("r1", "a", "b"), bom("r2", "b", "c"), bom("r3", "c", "a")}

	cycles := FindCycles(edges, []string{testutil.TypeBOMComponent})
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Message, "a -> b -> c -> a")
}
