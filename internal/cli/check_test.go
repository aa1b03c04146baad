package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/testutil"
)

func TestCheck_Admitted(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	op := writeOp(t, ir.CreateEntity{Entity: testutil.Entity("ent-new")})

	res := execute(t, "--snapshot", snap, "check", op)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "✓ create_entity admitted")
}

func TestCheck_AdmittedJSON(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	op := writeOp(t, ir.CreateEntity{Entity: testutil.Entity("ent-new")})

	res := execute(t, "--snapshot", snap, "--format", "json", "check", op)
	require.NoError(t, res.err)

	resp := decodeResponse(t, res.stdout)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["admitted"])
	assert.Equal(t, "create_entity", data["operation"])
}

func TestCheck_RejectedJSONGolden(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	txn := unbalancedJournal()
	txn.TaxonomyCode = "HERA.FIN.GL"
	op := writeOp(t, ir.CreateTransaction{Transaction: txn})

	res := execute(t, "--snapshot", snap, "--format", "json", "check", op)
	require.Error(t, res.err)
	assert.Equal(t, ExitTaxonomyCodeInvalid, GetExitCode(res.err), "exit code follows the first violation")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "check_rejected_transaction", []byte(res.stdout))
}

func TestCheck_RejectedText(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	op := writeOp(t, ir.CreateTransaction{Transaction: unbalancedJournal()})

	res := execute(t, "--snapshot", snap, "-v", "check", op)
	require.Error(t, res.err)
	assert.Equal(t, ExitGLUnbalanced, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "✗ create_transaction rejected (1 violation(s))")
	assert.Contains(t, res.stdout, "GL_UNBALANCED transaction.lines")
	assert.Contains(t, res.stdout, "digest ")
	assert.Contains(t, res.stderr, "Lookups: snapshot")
}

func TestCheck_WithoutLookupsEveryOrganizationIsUnknown(t *testing.T) {
	op := writeOp(t, ir.CreateEntity{Entity: testutil.Entity("ent-new")})

	res := execute(t, "check", op)
	require.Error(t, res.err)
	assert.Equal(t, ExitOrgNotFound, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "ORG_NOT_FOUND")
}

func TestCheck_Stdin(t *testing.T) {
	snap := writeSnapshot(t, seedSnapshot)
	op := `
kind: create_entity
entity:
  id: ent-new
  organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
  entity_type: product
  entity_code: SKU-NEW
  entity_name: New product
  taxonomy_code: HERA.MFG.PROD.ITEM.FINISHED.v1
`
	cmd := NewRootCommand()
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetErr(&strings.Builder{})
	cmd.SetIn(strings.NewReader(op))
	cmd.SetArgs([]string{"--snapshot", snap, "check", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "✓ create_entity admitted")
}

func TestCheck_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"unknown kind", `{"kind":"delete_entity"}`, ErrCodeMalformed},
		{"missing payload", `{"kind":"create_transaction"}`, ErrCodeMalformed},
		{"unknown field", `{"kind":"create_entity","entity":{"id":"x"},"extra":1}`, ErrCodeMalformed},
		{"future api version", `{"api_version":"2.0.0","kind":"create_entity","entity":{"id":"x"}}`, ErrCodeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := writeFile(t, "op.json", []byte(tt.content))

			res := execute(t, "--format", "json", "check", op)
			require.Error(t, res.err)
			assert.Equal(t, ExitCommandError, GetExitCode(res.err))
			resp := decodeResponse(t, res.stdout)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCheck_MissingFile(t *testing.T) {
	res := execute(t, "--format", "json", "check", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Equal(t, ErrCodeReadFailed, decodeResponse(t, res.stdout).Error.Code)
}

func TestCheck_RecordRequiresDatabase(t *testing.T) {
	op := writeOp(t, ir.CreateEntity{Entity: testutil.Entity("ent-new")})

	res := execute(t, "check", "--record", op)
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.err.Error(), "--record requires --db")
}

func TestCheck_BadPolicy(t *testing.T) {
	policyFile := writeFile(t, "policy.cue", []byte(`taxonomy: prefix: 42`))
	op := writeOp(t, ir.CreateEntity{Entity: testutil.Entity("ent-new")})

	res := execute(t, "--policy", policyFile, "check", op)
	require.Error(t, res.err)
	assert.Equal(t, ExitPolicyError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E004]")
}
