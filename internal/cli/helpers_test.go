package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guardrail/internal/batch"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/testutil"
)

// seedSnapshot activates OrgA and gives it a small bill of materials.
const seedSnapshot = `
api_version: "1.0.0"
organizations:
  - id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    status: active
entities:
  - id: ent-table
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    entity_type: product
  - id: ent-top
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    entity_type: product
relationships:
  - id: rel-1
    organization_id: 6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a
    from_entity_id: ent-table
    to_entity_id: ent-top
    relationship_type: BOM_COMPONENT
    taxonomy_code: HERA.MFG.BOM.REL.COMPONENT.v1
    strength: 1
`

// result captures one command execution.
type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with args.
func execute(t *testing.T, args ...string) result {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// writeFile writes content under a fresh temp dir and returns its path.
func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	return writeFile(t, "snapshot.yaml", []byte(content))
}

// writeOp writes op as a JSON operation envelope.
func writeOp(t *testing.T, op ir.Op) string {
	t.Helper()
	data, err := json.Marshal(ir.Envelope(op))
	require.NoError(t, err)
	return writeFile(t, "op.json", data)
}

// writeBatch writes a batch file of ops.
func writeBatch(t *testing.T, name string, ops ...ir.Op) string {
	t.Helper()
	f := batch.File{APIVersion: ir.APIVersion, Name: name}
	for _, op := range ops {
		f.Operations = append(f.Operations, ir.Envelope(op))
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	return writeFile(t, "batch.json", data)
}

// unbalancedJournal has a well-formed code and debits exceeding credits by 5.
func unbalancedJournal() ir.Transaction {
	return testutil.Journal("USD", testutil.Line(1, "GL", "105.00"), testutil.Line(2, "GL", "-100.00"))
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}
