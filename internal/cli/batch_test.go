package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/testutil"
)

func TestBatch_AllAdmitted(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	file := writeBatch(t, "legs",
		ir.CreateEntity{Entity: testutil.Entity("ent-legs")},
		ir.CreateRelationship{Relationship: testutil.Relationship("rel-2", "ent-table", "ent-legs", "BOM_COMPONENT")},
	)

	res := execute(t, "--snapshot", snap, "batch", file)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "#0 ✓ create_entity admitted")
	assert.Contains(t, res.stdout, "#1 ✓ create_relationship admitted", "entity created earlier in the batch is visible")
	assert.Contains(t, res.stdout, "batch legs: 2 admitted, 0 rejected of 2")
}

func TestBatch_StopsAtFirstRejection(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	file := writeBatch(t, "cycle",
		ir.CreateRelationship{Relationship: testutil.Relationship("rel-2", "ent-top", "ent-table", "BOM_COMPONENT")},
		ir.CreateEntity{Entity: testutil.Entity("ent-legs")},
	)

	res := execute(t, "--snapshot", snap, "batch", file)
	require.Error(t, res.err)
	assert.Equal(t, ExitRelationshipCycle, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "batch cycle: 0 admitted, 1 rejected of 2")
	assert.Contains(t, res.stdout, "aborted after 1 of 2 operation(s)")
	assert.NotContains(t, res.stdout, "#1")
}

func TestBatch_ReportOnlyJSON(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	file := writeBatch(t, "ledger",
		ir.CreateTransaction{Transaction: unbalancedJournal()},
		ir.CreateEntity{Entity: testutil.Entity("ent-legs")},
	)

	res := execute(t, "--snapshot", snap, "--format", "json", "batch", "--report-only", file)
	require.Error(t, res.err)
	assert.Equal(t, ExitGLUnbalanced, GetExitCode(res.err), "report-only still exits with the first rejection")

	resp := decodeResponse(t, res.stdout)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "GL_UNBALANCED", resp.Error.Code)
	assert.Equal(t, "batch ledger: 1 admitted, 1 rejected of 2", resp.Error.Message)

	report, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, report["aborted"])
	assert.Len(t, report["results"], 2)
}

func TestBatch_MalformedOperationAborts(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	file := writeFile(t, "batch.yaml", []byte(`
name: broken
operations:
  - kind: create_entity
    entity:
      id: ent-legs
      organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
      entity_type: product
      taxonomy_code: HERA.MFG.PROD.ITEM.FINISHED.v1
  - kind: create_relationship
`))

	res := execute(t, "--snapshot", snap, "batch", "--report-only", file)
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "#0 ✓ create_entity admitted")
	assert.Contains(t, res.stdout, "Error [E003]")
}

func TestBatch_InvalidFile(t *testing.T) {
	file := writeFile(t, "batch.yaml", []byte("name: empty\noperations: []\n"))

	res := execute(t, "--format", "json", "batch", file)
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Equal(t, ErrCodeMalformed, decodeResponse(t, res.stdout).Error.Code)
}
