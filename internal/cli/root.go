package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Policy   string // CUE policy file or directory; empty means built-in
	Database string // SQLite snapshot used as lookup source
	Snapshot string // YAML snapshot loaded into memory when no database is given
	Debug    bool   // debug-level console logging on stderr
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the guardrail CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Guardrail - invariant validation for the universal schema",
		Long: `Validate writes against the universal schema before they happen.

Checks taxonomy code grammar, tenant isolation, ledger balance and
relationship graph consistency, and reports every violation at once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Database != "" && opts.Snapshot != "" {
				return NewExitError(ExitCommandError, "--db and --snapshot are mutually exclusive")
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Policy, "policy", "", "CUE policy file or directory (default: built-in policy)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite snapshot to answer lookups from")
	cmd.PersistentFlags().StringVar(&opts.Snapshot, "snapshot", "", "YAML snapshot to answer lookups from")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "debug logging on stderr")

	// Add subcommands
	cmd.AddCommand(NewCodeCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
