package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/guardrail/internal/guardrail"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/policy"
)

// Recorder persists verdicts. *store.Store implements it.
type Recorder interface {
	RecordVerdict(ctx context.Context, source string, v ir.Verdict) (int64, error)
}

// Options controls a batch run.
type Options struct {
	// ReportOnly runs every operation instead of stopping at the first
	// rejection.
	ReportOnly bool

	// Recorder, when set, receives every verdict under the source
	// "batch:<name>".
	Recorder Recorder
}

// OpResult is the outcome of one operation.
type OpResult struct {
	Index   int         `json:"index"`
	Kind    ir.OpKind   `json:"kind"`
	Verdict *ir.Verdict `json:"verdict,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Report summarises a batch run.
type Report struct {
	Name     string     `json:"name"`
	Total    int        `json:"total"`
	Admitted int        `json:"admitted"`
	Rejected int        `json:"rejected"`
	Aborted  bool       `json:"aborted"`
	Results  []OpResult `json:"results"`
}

// FirstRejection returns the first rejected verdict, or nil.
func (r *Report) FirstRejection() *ir.Verdict {
	for _, res := range r.Results {
		if res.Verdict != nil && !res.Verdict.Admitted {
			return res.Verdict
		}
	}
	return nil
}

// Run validates the batch's operations in order against p and lookups.
//
// The returned error is non-nil only for faults; the report then has
// Aborted set and its results up to the failing operation. A rejection
// outside report-only mode also aborts but is not an error.
func Run(ctx context.Context, p *policy.Policy, lookups guardrail.Lookups, f *File, opts Options) (*Report, error) {
	log := zerolog.Ctx(ctx).With().Str("batch", f.Name).Logger()
	started := time.Now()

	view := newOverlay(lookups)
	engine := guardrail.New(p, view)

	report := &Report{Name: f.Name, Total: len(f.Operations), Results: []OpResult{}}

	for i, env := range f.Operations {
		res := OpResult{Index: i, Kind: env.Kind}

		op, err := env.Op()
		if err == nil {
			var verdict ir.Verdict
			verdict, err = engine.Validate(ctx, op)
			if err == nil {
				res.Verdict = &verdict
			}
		}
		if err != nil {
			res.Error = err.Error()
			report.Results = append(report.Results, res)
			report.Aborted = true
			log.Error().Err(err).Int("index", i).Str("op", string(env.Kind)).Msg("batch aborted")
			return report, fmt.Errorf("operation %d (%s): %w", i, env.Kind, err)
		}

		report.Results = append(report.Results, res)

		if opts.Recorder != nil {
			if _, err := opts.Recorder.RecordVerdict(ctx, "batch:"+f.Name, *res.Verdict); err != nil {
				report.Aborted = true
				return report, fmt.Errorf("record verdict %d: %w", i, err)
			}
		}

		log.Debug().
			Int("index", i).
			Str("op", string(env.Kind)).
			Bool("admitted", res.Verdict.Admitted).
			Strs("codes", codeStrings(res.Verdict.Codes())).
			Msg("batch operation")

		if res.Verdict.Admitted {
			report.Admitted++
			view.apply(op)
			continue
		}

		report.Rejected++
		if !opts.ReportOnly {
			report.Aborted = i < len(f.Operations)-1
			break
		}
	}

	log.Info().
		Int("total", report.Total).
		Int("admitted", report.Admitted).
		Int("rejected", report.Rejected).
		Bool("aborted", report.Aborted).
		Dur("duration", time.Since(started)).
		Msg("batch finished")

	return report, nil
}

func codeStrings(codes []ir.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
