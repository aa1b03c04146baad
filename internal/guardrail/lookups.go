package guardrail

import (
	"context"

	"github.com/roach88/guardrail/internal/ir"
)

// Lookups is everything the engine asks its caller.
type Lookups interface {
	ir.OrgLookup
	ir.EntityLookup
	ir.EdgeSource
}

type orgAnswer struct {
	status ir.OrgStatus
	found  bool
}

// callLookups memoizes organization and entity lookups for one Validate
// call, so each distinct id is asked once. It is discarded afterwards.
type callLookups struct {
	Lookups
	orgs     map[string]orgAnswer
	entities map[string]*ir.EntityRef
}

func newCallLookups(l Lookups) *callLookups {
	return &callLookups{
		Lookups:  l,
		orgs:     make(map[string]orgAnswer),
		entities: make(map[string]*ir.EntityRef),
	}
}

// OrganizationStatus implements ir.OrgLookup.
func (c *callLookups) OrganizationStatus(ctx context.Context, orgID string) (ir.OrgStatus, bool, error) {
	if a, ok := c.orgs[orgID]; ok {
		return a.status, a.found, nil
	}
	status, found, err := c.Lookups.OrganizationStatus(ctx, orgID)
	if err != nil {
		return "", false, err
	}
	c.orgs[orgID] = orgAnswer{status: status, found: found}
	return status, found, nil
}

// resolve returns the stored entity, or nil when it does not exist or id
// is empty.
func (c *callLookups) resolve(ctx context.Context, id string) (*ir.EntityRef, error) {
	if id == "" {
		return nil, nil
	}
	if ref, ok := c.entities[id]; ok {
		return ref, nil
	}
	ref, found, err := c.Lookups.Entity(ctx, id)
	if err != nil {
		return nil, err
	}
	var out *ir.EntityRef
	if found {
		out = &ref
	}
	c.entities[id] = out
	return out, nil
}
