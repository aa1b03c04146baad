package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const (
	orgA = "6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a"
	orgB = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

// seedStore writes two organizations and a few OrgA products.
func seedStore(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.PutOrganization(ctx, ir.Organization{ID: orgA, Status: ir.OrgActive}))
	require.NoError(t, s.PutOrganization(ctx, ir.Organization{ID: orgB, Status: ir.OrgSuspended}))
	for _, id := range []string{"ent-table", "ent-top", "ent-legs"} {
		require.NoError(t, s.PutEntity(ctx, ir.EntityRef{ID: id, OrganizationID: orgA, EntityType: "product"}))
	}
}

func edge(id, from, to string) ir.Relationship {
	return ir.Relationship{
		ID:               id,
		OrganizationID:   orgA,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: "BOM_COMPONENT",
		TaxonomyCode:     "HERA.MFG.BOM.REL.COMPONENT.v1",
		Strength:         1,
	}
}
