package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/testutil"
)

const cyclicSnapshot = `
organizations:
  - id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    status: active
entities:
  - id: ent-a
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    entity_type: product
  - id: ent-b
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    entity_type: product
relationships:
  - id: rel-ab
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    from_entity_id: ent-a
    to_entity_id: ent-b
    relationship_type: BOM_COMPONENT
    taxonomy_code: HERA.MFG.BOM.REL.COMPONENT.v1
    strength: 1
  - id: rel-ba
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    from_entity_id: ent-b
    to_entity_id: ent-a
    relationship_type: BOM_COMPONENT
    taxonomy_code: HERA.MFG.BOM.REL.COMPONENT.v1
    strength: 1
`

func importSeed(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "snapshot.db")
	res := execute(t, "snapshot", "import", db, writeSnapshot(t, seedSnapshot))
	require.NoError(t, res.err, res.stdout)
	return db
}

func TestSnapshotImport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snapshot.db")
	snap := writeSnapshot(t, seedSnapshot)

	res := execute(t, "--format", "json", "snapshot", "import", db, snap)
	require.NoError(t, res.err)

	resp := decodeResponse(t, res.stdout)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{
		"database":      db,
		"organizations": float64(1),
		"entities":      float64(2),
		"relationships": float64(1),
	}, resp.Data)

	res = execute(t, "snapshot", "import", db, snap)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "relationships: 1", "re-import upserts by id")
}

func TestSnapshotImport_RefusesCycles(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snapshot.db")

	res := execute(t, "snapshot", "import", db, writeSnapshot(t, cyclicSnapshot))
	require.Error(t, res.err)
	assert.Equal(t, ExitRelationshipCycle, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "RELATIONSHIP_CYCLE")
	assert.NoFileExists(t, db, "nothing is written for a refused snapshot")
}

func TestSnapshotImport_InvalidSnapshot(t *testing.T) {
	db := filepath.Join(t.TempDir(), "snapshot.db")
	snap := writeSnapshot(t, "organizations:\n  - id: org-1\n    status: retired\n")

	res := execute(t, "--format", "json", "snapshot", "import", db, snap)
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Equal(t, ErrCodeMalformed, decodeResponse(t, res.stdout).Error.Code)
}

func TestCheck_AgainstDatabaseRecordsVerdicts(t *testing.T) {
	db := importSeed(t)

	admitted := writeOp(t, ir.CreateEntity{Entity: testutil.Entity("ent-legs")})
	res := execute(t, "--db", db, "check", "--record", admitted)
	require.NoError(t, res.err)

	cycle := writeOp(t, ir.CreateRelationship{Relationship: testutil.Relationship("rel-2", "ent-top", "ent-table", "BOM_COMPONENT")})
	res = execute(t, "--db", db, "check", "--record", cycle)
	require.Error(t, res.err)
	assert.Equal(t, ExitRelationshipCycle, GetExitCode(res.err), "edges are read from the database")

	res = execute(t, "snapshot", "verdicts", db)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "1 ✓ cli create_entity")
	assert.Contains(t, res.stdout, "2 ✗ cli create_relationship")

	res = execute(t, "--format", "json", "snapshot", "verdicts", db)
	require.NoError(t, res.err)
	entries, ok := decodeResponse(t, res.stdout).Data.([]any)
	require.True(t, ok)
	require.Len(t, entries, 2)
	second := entries[1].(map[string]any)
	assert.Equal(t, float64(2), second["seq"])
	assert.Equal(t, "cli", second["source"])
}

func TestSnapshotVerdicts_Empty(t *testing.T) {
	db := importSeed(t)

	res := execute(t, "snapshot", "verdicts", db)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No verdicts recorded")
}

func TestBatch_RecordsUnderBatchSource(t *testing.T) {
	db := importSeed(t)
	file := writeBatch(t, "legs", ir.CreateEntity{Entity: testutil.Entity("ent-legs")})

	res := execute(t, "--db", db, "batch", "--record", file)
	require.NoError(t, res.err)

	res = execute(t, "snapshot", "verdicts", db)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "batch:legs create_entity")
}
