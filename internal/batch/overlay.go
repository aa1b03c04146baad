package batch

import (
	"context"
	"sort"

	"github.com/roach88/guardrail/internal/guardrail"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/store/memory"
)

var _ guardrail.Lookups = (*overlay)(nil)

// overlay answers lookups from admitted batch operations first and falls
// back to the base lookups. Organizations are never created by a batch and
// always come from the base.
type overlay struct {
	base    guardrail.Lookups
	applied *memory.Lookups
}

func newOverlay(base guardrail.Lookups) *overlay {
	return &overlay{base: base, applied: memory.NewLookups()}
}

// apply records the effect of an admitted operation.
func (o *overlay) apply(op ir.Op) {
	switch v := op.(type) {
	case ir.CreateEntity:
		o.applied.PutEntity(v.Entity.Ref())
	case ir.UpdateEntity:
		o.applied.PutEntity(v.Entity.Ref())
	case ir.CreateRelationship:
		o.applied.PutRelationship(v.Relationship)
	case ir.UpdateRelationship:
		o.applied.PutRelationship(v.Relationship)
	}
}

func (o *overlay) OrganizationStatus(ctx context.Context, orgID string) (ir.OrgStatus, bool, error) {
	return o.base.OrganizationStatus(ctx, orgID)
}

func (o *overlay) Entity(ctx context.Context, entityID string) (ir.EntityRef, bool, error) {
	if ref, ok, _ := o.applied.Entity(ctx, entityID); ok {
		return ref, true, nil
	}
	return o.base.Entity(ctx, entityID)
}

// Edges merges both edge sets. A base edge whose id was applied in the
// batch is dropped whatever its type or organization, since the applied
// version replaces it; applied edges of the requested scope are added.
func (o *overlay) Edges(ctx context.Context, orgID, relationshipType string) ([]ir.Relationship, error) {
	base, err := o.base.Edges(ctx, orgID, relationshipType)
	if err != nil {
		return nil, err
	}
	applied, _ := o.applied.Edges(ctx, orgID, relationshipType)

	edges := make([]ir.Relationship, 0, len(base)+len(applied))
	for _, rel := range base {
		if _, replaced := o.applied.Relationship(rel.ID); replaced {
			continue
		}
		edges = append(edges, rel)
	}
	edges = append(edges, applied...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}
