package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardrail/internal/batch"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	ReportOnly bool
	Record     bool
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <batch-file>",
		Short: "Validate a batch of operations in order",
		Long: `Run a batch file of operations through the guardrails in order.

Admitted operations are visible to later operations in the same batch.
The batch stops at the first rejection unless --report-only is set.
Lookup failures and malformed operations always stop it.

Example:
  guardrail batch --db ./snapshot.db ./seed/bom.yaml
  guardrail batch --snapshot ./seed.yaml --report-only ./import.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ReportOnly, "report-only", false, "run every operation and report instead of stopping at the first rejection")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "append every verdict to the --db verdict log")

	return cmd
}

func runBatch(opts *BatchOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := opts.commandContext(cmd)

	if opts.Record && opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "--record requires --db", nil)
		return NewExitError(ExitCommandError, "--record requires --db")
	}

	file, err := batch.Load(path)
	if err != nil {
		return faultError(formatter, err)
	}
	formatter.VerboseLog("Batch %q: %d operation(s)", file.Name, len(file.Operations))

	env, err := opts.loadEnvironment(formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	runOpts := batch.Options{ReportOnly: opts.ReportOnly}
	if opts.Record {
		runOpts.Recorder = env.store
	}

	report, err := batch.Run(ctx, env.policy, env.lookups, file, runOpts)
	if err != nil {
		if formatter.Format == "json" {
			return faultError(formatter, err)
		}
		writeReportText(formatter, report)
		return faultError(formatter, err)
	}

	rejected := report.FirstRejection()
	if formatter.Format == "json" {
		if rejected == nil {
			return formatter.Success(report)
		}
		_ = formatter.Rejected(string(rejected.Violations[0].Code), batchMessage(report), report)
	} else {
		writeReportText(formatter, report)
	}

	if rejected != nil {
		return NewExitError(ExitCodeFor(rejected.Violations[0].Code), batchMessage(report))
	}
	return nil
}

func batchMessage(r *batch.Report) string {
	return fmt.Sprintf("batch %s: %d admitted, %d rejected of %d", r.Name, r.Admitted, r.Rejected, r.Total)
}

func writeReportText(formatter *OutputFormatter, r *batch.Report) {
	for _, res := range r.Results {
		fmt.Fprintf(formatter.Writer, "#%d ", res.Index)
		if res.Verdict == nil {
			fmt.Fprintf(formatter.Writer, "✗ %s failed: %s\n", res.Kind, res.Error)
			continue
		}
		writeVerdictText(formatter.Writer, *res.Verdict, formatter.Verbose)
	}
	fmt.Fprintln(formatter.Writer, batchMessage(r))
	if r.Aborted {
		fmt.Fprintf(formatter.Writer, "aborted after %d of %d operation(s)\n", len(r.Results), r.Total)
	}
}
