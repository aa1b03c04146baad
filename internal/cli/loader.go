package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/guardrail/internal/guardrail"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/logger"
	"github.com/roach88/guardrail/internal/policy"
	"github.com/roach88/guardrail/internal/store"
	"github.com/roach88/guardrail/internal/store/memory"
)

// CLI error codes for failures that are not violations.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Input file unreadable
	ErrCodeMalformed   = "E003" // Malformed operation, batch or snapshot
	ErrCodePolicy      = "E004" // Policy failed to load
	ErrCodeStore       = "E005" // Snapshot store failure
	ErrCodeUnavailable = string(ir.CodeLookupUnavailable)
)

// environment is what a command needs to validate: policy, lookups, and
// the store when lookups come from SQLite.
type environment struct {
	policy  *policy.Policy
	lookups guardrail.Lookups
	store   *store.Store // nil unless --db was given
}

func (e *environment) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// commandContext returns the command's context with the CLI logger
// attached.
func (o *RootOptions) commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if zerolog.Ctx(ctx).GetLevel() != zerolog.Disabled {
		return ctx
	}
	log := logger.New(cmd.ErrOrStderr(), o.Debug)
	if !o.Debug {
		log = log.Level(zerolog.WarnLevel)
	}
	return log.WithContext(ctx)
}

// loadPolicy loads --policy, or the built-in policy.
func (o *RootOptions) loadPolicy() (*policy.Policy, error) {
	p, err := policy.Load(o.Policy)
	if err != nil {
		return nil, WrapExitError(ExitPolicyError, "failed to load policy", err)
	}
	return p, nil
}

// loadEnvironment loads the policy and opens the lookup source selected by
// --db or --snapshot. Without either, lookups are empty and every
// organization is unknown.
func (o *RootOptions) loadEnvironment(f *OutputFormatter) (*environment, error) {
	p, err := o.loadPolicy()
	if err != nil {
		_ = f.Error(ErrCodePolicy, err.Error(), nil)
		return nil, err
	}
	f.VerboseLog("Policy: %s", p.Source)

	env := &environment{policy: p}
	switch {
	case o.Database != "":
		st, err := store.Open(o.Database)
		if err != nil {
			_ = f.Error(ErrCodeStore, err.Error(), nil)
			return nil, WrapExitError(ExitStoreError, "failed to open snapshot database", err)
		}
		env.store, env.lookups = st, st
		f.VerboseLog("Lookups: sqlite %s", o.Database)
	case o.Snapshot != "":
		snap, err := store.LoadSnapshot(o.Snapshot)
		if err != nil {
			_ = f.Error(ErrCodeMalformed, err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "failed to load snapshot", err)
		}
		env.lookups = snapshotLookups(snap)
		f.VerboseLog("Lookups: snapshot %s", o.Snapshot)
	default:
		env.lookups = memory.NewLookups()
		f.VerboseLog("Lookups: empty")
	}
	return env, nil
}

func snapshotLookups(snap *store.Snapshot) *memory.Lookups {
	l := memory.NewLookups()
	for _, org := range snap.Organizations {
		l.PutOrganization(org)
	}
	for _, ref := range snap.Entities {
		l.PutEntity(ref)
	}
	for _, rel := range snap.Relationships {
		l.PutRelationship(rel)
	}
	return l
}

// faultError reports an error returned by the engine or the batch runner
// and maps it to an exit code.
func faultError(f *OutputFormatter, err error) error {
	if fault, ok := guardrail.AsFault(err); ok {
		_ = f.Error(ErrCodeUnavailable, err.Error(), nil)
		return WrapExitError(ExitCodeFor(fault.Code), "lookup unavailable", err)
	}
	if errors.Is(err, guardrail.ErrMalformedOperation) {
		_ = f.Error(ErrCodeMalformed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "malformed input", err)
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitFailure, "validation failed", err)
}
