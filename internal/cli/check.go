package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/guardrail/internal/guardrail"
	"github.com/roach88/guardrail/internal/ir"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Record bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <op-file>",
		Short: "Validate one operation",
		Long: `Validate one operation envelope (YAML or JSON) and print the verdict.
Use "-" to read the operation from stdin.

A rejected operation exits with the code of its first violation.

Example:
  guardrail check --db ./snapshot.db ./ops/new-bom-edge.yaml
  guardrail check --snapshot ./seed.yaml --format json - < op.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "append the verdict to the --db verdict log")

	return cmd
}

func runCheck(opts *CheckOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := opts.commandContext(cmd)

	if opts.Record && opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "--record requires --db", nil)
		return NewExitError(ExitCommandError, "--record requires --db")
	}

	data, err := readInput(cmd, path)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read operation", err)
	}

	envelope, err := ir.ParseEnvelope(data)
	if err != nil {
		return faultError(formatter, err)
	}
	op, err := envelope.Op()
	if err != nil {
		return faultError(formatter, err)
	}

	env, err := opts.loadEnvironment(formatter)
	if err != nil {
		return err
	}
	defer env.Close()

	verdict, err := guardrail.New(env.policy, env.lookups).Validate(ctx, op)
	if err != nil {
		return faultError(formatter, err)
	}

	if opts.Record {
		seq, err := env.store.RecordVerdict(ctx, "cli", verdict)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("verdict not recorded")
		} else {
			formatter.VerboseLog("Recorded verdict #%d", seq)
		}
	}

	return outputVerdict(formatter, verdict)
}

// outputVerdict prints a verdict and returns the matching exit error.
func outputVerdict(formatter *OutputFormatter, verdict ir.Verdict) error {
	if formatter.Format == "json" {
		body, err := canonicalVerdict(verdict)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode verdict", err)
		}
		if verdict.Admitted {
			return formatter.Success(body)
		}
		_ = formatter.Rejected(string(verdict.Violations[0].Code), rejectionMessage(verdict), body)
	} else {
		writeVerdictText(formatter.Writer, verdict, formatter.Verbose)
	}

	if verdict.Admitted {
		return nil
	}
	return NewExitError(ExitCodeFor(verdict.Violations[0].Code), rejectionMessage(verdict))
}

func rejectionMessage(v ir.Verdict) string {
	return fmt.Sprintf("%s rejected with %d violation(s)", v.Operation, len(v.Violations))
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
