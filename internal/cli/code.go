package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/taxonomy"
)

// NewCodeCommand creates the code command.
func NewCodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code <code>...",
		Short: "Validate taxonomy codes",
		Long: `Validate taxonomy codes against the grammar and, when the policy
declares them, the industry and module dictionaries.

Example:
  guardrail code HERA.RESTAURANT.POS.TXN.SALE.v1
  guardrail code --format json HERA.SALON.SVC.APPT.BOOKING.v0 hera.bad.code`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCode(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runCode(opts *RootOptions, codes []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	p, err := opts.loadPolicy()
	if err != nil {
		_ = formatter.Error(ErrCodePolicy, err.Error(), nil)
		return err
	}
	validator := taxonomy.NewValidator(p.TaxonomyPrefix, p.Dictionary())

	results := make([]taxonomy.Checked, 0, len(codes))
	invalid := 0
	for _, code := range codes {
		checked := validator.Check(code)
		if !checked.Valid {
			invalid++
		}
		results = append(results, checked)
	}

	if formatter.Format == "json" {
		if invalid == 0 {
			return formatter.Success(results)
		}
		_ = formatter.Rejected(string(ir.CodeTaxonomyCodeInvalid), fmt.Sprintf("%d of %d codes invalid", invalid, len(codes)), results)
		return NewExitError(ExitTaxonomyCodeInvalid, fmt.Sprintf("%d of %d codes invalid", invalid, len(codes)))
	}

	for _, res := range results {
		if res.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", res.Code)
			if formatter.Verbose {
				fmt.Fprintf(formatter.Writer, "  industry=%s module=%s version=%d\n", res.Parsed.Industry, res.Parsed.Module, res.Parsed.Version)
			}
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", res.Code)
		}
		for _, v := range res.Violations {
			fmt.Fprintf(formatter.Writer, "  %s\n", describe(v.Code, v.Field, v.SegmentIndex, v.Message))
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(formatter.Writer, "  warning %s\n", describe(w.Code, w.Field, w.SegmentIndex, w.Message))
		}
	}

	if invalid > 0 {
		return NewExitError(ExitTaxonomyCodeInvalid, fmt.Sprintf("%d of %d codes invalid", invalid, len(codes)))
	}
	return nil
}
