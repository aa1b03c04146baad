package guardrail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/guardrail/internal/graph"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/isolation"
	"github.com/roach88/guardrail/internal/ledger"
	"github.com/roach88/guardrail/internal/policy"
	"github.com/roach88/guardrail/internal/taxonomy"
)

// Engine validates operations against a policy. Safe for concurrent use.
type Engine struct {
	policy  *policy.Policy
	lookups Lookups
	codes   *taxonomy.Validator
	ledger  *ledger.Checker
	graph   *graph.Checker
}

// New creates an engine. A nil policy means policy.Default().
func New(p *policy.Policy, lookups Lookups) *Engine {
	if p == nil {
		p = policy.Default()
	}
	return &Engine{
		policy:  p,
		lookups: lookups,
		codes:   taxonomy.NewValidator(p.TaxonomyPrefix, p.Dictionary()),
		ledger:  ledger.NewChecker(p.Ledger),
		graph: graph.NewChecker(lookups, graph.Options{
			Rules:  p.Relationships,
			Strict: p.StrictRelationshipTypes,
		}),
	}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() *policy.Policy {
	return e.policy
}

// Codes returns the taxonomy validator configured by the policy.
func (e *Engine) Codes() *taxonomy.Validator {
	return e.codes
}

// Validate runs every applicable check on op and returns the verdict.
func (e *Engine) Validate(ctx context.Context, op ir.Op) (ir.Verdict, error) {
	if op == nil {
		return ir.Verdict{}, fmt.Errorf("%w: operation is nil", ErrMalformedOperation)
	}

	lookups := newCallLookups(e.lookups)
	run := &validation{
		engine:  e,
		lookups: lookups,
		guard:   isolation.NewGuard(lookups, isolation.Options{AllowOpaqueIDs: e.policy.AllowOpaqueOrgIDs}),
		acting:  op.Acting(),
	}

	var err error
	switch o := op.(type) {
	case ir.CreateEntity:
		err = run.entity(ctx, o.Entity, o.DynamicFields, false)
	case ir.UpdateEntity:
		err = run.entity(ctx, o.Entity, o.DynamicFields, true)
	case ir.CreateDynamicField:
		err = run.dynamicField(ctx, o.Field)
	case ir.CreateRelationship:
		err = run.relationship(ctx, o.Relationship)
	case ir.UpdateRelationship:
		err = run.relationship(ctx, o.Relationship)
	case ir.CreateTransaction:
		err = run.transaction(ctx, o.Transaction)
	case ir.UpdateTransaction:
		err = run.transaction(ctx, o.Transaction)
	default:
		err = fmt.Errorf("%w: unsupported operation %T", ErrMalformedOperation, op)
	}
	if errors.Is(err, ErrMalformedOperation) {
		return ir.Verdict{}, err
	}
	if err != nil {
		return ir.Verdict{}, lookupFault(op.Kind(), err)
	}

	verdict := ir.NewVerdict(op.Kind(), run.violations(), run.warnings)

	zerolog.Ctx(ctx).Debug().
		Str("op", string(verdict.Operation)).
		Bool("admitted", verdict.Admitted).
		Int("violations", len(verdict.Violations)).
		Int("warnings", len(verdict.Warnings)).
		Str("digest", verdict.Digest).
		Msg("guardrail verdict")

	return verdict, nil
}
