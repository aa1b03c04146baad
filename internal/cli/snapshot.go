package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardrail/internal/graph"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/store"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the SQLite lookup snapshot",
		Long: `Manage the SQLite snapshot that answers organization, entity and
relationship lookups for check, batch and serve.`,
	}

	cmd.AddCommand(newSnapshotImportCommand(rootOpts))
	cmd.AddCommand(newSnapshotVerdictsCommand(rootOpts))

	return cmd
}

// SnapshotImportResult is the JSON payload of snapshot import.
type SnapshotImportResult struct {
	Database      string `json:"database"`
	Organizations int    `json:"organizations"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
}

func newSnapshotImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <db> <snapshot.yaml>",
		Short: "Load organizations, entities and relationships into a snapshot",
		Long: `Load a YAML snapshot into a SQLite database, creating it if needed.
Records are upserted by id in one transaction.

Relationships of hierarchical types are checked for cycles first; a
snapshot that already contains a cycle is refused.

Example:
  guardrail snapshot import ./snapshot.db ./seed.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotImport(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runSnapshotImport(opts *RootOptions, dbPath, snapPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := opts.commandContext(cmd)

	p, err := opts.loadPolicy()
	if err != nil {
		_ = formatter.Error(ErrCodePolicy, err.Error(), nil)
		return err
	}

	snap, err := store.LoadSnapshot(snapPath)
	if err != nil {
		_ = formatter.Error(ErrCodeMalformed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}

	if cycles := snap.Cycles(graph.HierarchicalTypes(p.Relationships)); len(cycles) > 0 {
		if formatter.Format == "json" {
			_ = formatter.Rejected(string(ir.CodeRelationshipCycle), cycles[0].Message, cycles)
		} else {
			for _, c := range cycles {
				fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", ir.CodeRelationshipCycle, c.Message)
			}
		}
		return NewExitError(ExitRelationshipCycle, fmt.Sprintf("snapshot contains %d cycle(s)", len(cycles)))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitStoreError, "failed to open snapshot database", err)
	}
	defer st.Close()

	if err := st.ApplySnapshot(ctx, snap); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitStoreError, "failed to import snapshot", err)
	}

	orgs, entities, rels, err := st.Counts(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitStoreError, "failed to read snapshot", err)
	}

	result := SnapshotImportResult{Database: dbPath, Organizations: orgs, Entities: entities, Relationships: rels}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %s into %s\n", snapPath, dbPath)
	fmt.Fprintf(formatter.Writer, "  organizations: %d\n  entities: %d\n  relationships: %d\n", orgs, entities, rels)
	return nil
}

func newSnapshotVerdictsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verdicts <db>",
		Short: "List the recorded verdict log",
		Long: `List verdicts recorded by check, batch and serve with --record,
in the order they were recorded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotVerdicts(rootOpts, args[0], cmd)
		},
	}
}

// verdictEntry is one verdict log line in JSON output.
type verdictEntry struct {
	Seq     int64      `json:"seq"`
	Source  string     `json:"source"`
	Verdict ir.Verdict `json:"verdict"`
}

func runSnapshotVerdicts(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := opts.commandContext(cmd)

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitStoreError, "failed to open snapshot database", err)
	}
	defer st.Close()

	records, err := st.ReadVerdicts(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitStoreError, "failed to read verdicts", err)
	}

	if formatter.Format == "json" {
		entries := make([]verdictEntry, len(records))
		for i, r := range records {
			entries[i] = verdictEntry{Seq: r.Seq, Source: r.Source, Verdict: r.Verdict}
		}
		return formatter.Success(entries)
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No verdicts recorded")
		return nil
	}
	for _, r := range records {
		mark := "✓"
		if !r.Verdict.Admitted {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%d %s %s %s %s\n", r.Seq, mark, r.Source, r.Verdict.Operation, r.Verdict.Digest[:12])
	}
	return nil
}
