// Package isolation enforces tenant isolation: every record names an
// active organization, writes stay inside the acting organization, and no
// record references an entity owned by another organization.
package isolation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/guardrail/internal/ir"
)

// opaqueIDPattern is the accepted shape of organization ids when UUIDs are
// not enforced.
var opaqueIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Reference is an entity id named by a record, with the lookup result
// already attached. Entity is nil when the lookup found nothing.
type Reference struct {
	Field    string
	EntityID string
	Entity   *ir.EntityRef
}

// Record is the isolation-relevant view of any record.
type Record struct {
	// Field prefixes violation field paths, e.g. "relationship".
	Field          string
	OrganizationID string
	References     []Reference
}

// Options configure a Guard.
type Options struct {
	// AllowOpaqueIDs accepts non-UUID organization ids of [A-Za-z0-9_-]{1,64}.
	AllowOpaqueIDs bool
}

// Guard checks records against the organization lookup. It keeps no state
// between calls.
type Guard struct {
	orgs ir.OrgLookup
	opts Options
}

// NewGuard creates a guard backed by the caller's organization lookup.
func NewGuard(orgs ir.OrgLookup, opts Options) *Guard {
	return &Guard{orgs: orgs, opts: opts}
}

// WellFormed reports whether id is an acceptable organization identifier.
func (g *Guard) WellFormed(id string) bool {
	if g.opts.AllowOpaqueIDs {
		return opaqueIDPattern.MatchString(id)
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Check returns every isolation violation for rec written on behalf of
// acting ("" when the caller asserts no acting organization). The only
// error is a failed organization lookup.
func (g *Guard) Check(ctx context.Context, rec Record, acting string) ([]ir.Violation, error) {
	var violations []ir.Violation
	field := path(rec.Field, "organization_id")

	orgKnown := false
	switch {
	case strings.TrimSpace(rec.OrganizationID) == "":
		violations = append(violations, ir.Violation{
			Code:    ir.CodeOrgIDMissing,
			Message: "organization_id is required",
			Field:   field,
		})
	case !g.WellFormed(rec.OrganizationID):
		violations = append(violations, ir.Violation{
			Code:    ir.CodeOrgIDMissing,
			Message: fmt.Sprintf("organization_id %q is not a well-formed identifier", rec.OrganizationID),
			Field:   field,
		})
	default:
		orgKnown = true
		status, found, err := g.orgs.OrganizationStatus(ctx, rec.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("organization lookup %q: %w", rec.OrganizationID, err)
		}
		switch {
		case !found:
			violations = append(violations, ir.Violation{
				Code:    ir.CodeOrgNotFound,
				Message: fmt.Sprintf("organization %q does not exist", rec.OrganizationID),
				Field:   field,
			})
		case status != ir.OrgActive:
			violations = append(violations, ir.Violation{
				Code:    ir.CodeOrgNotFound,
				Message: fmt.Sprintf("organization %q is %s", rec.OrganizationID, status),
				Field:   field,
			})
		}
	}

	if orgKnown && acting != "" && acting != rec.OrganizationID {
		violations = append(violations, ir.Violation{
			Code:    ir.CodeCrossTenantViolation,
			Message: fmt.Sprintf("organization %q cannot write records of organization %q", acting, rec.OrganizationID),
			Field:   field,
		})
	}

	// Without a usable organization id the references are compared with
	// the first one that resolved.
	anchor := ""
	for _, ref := range rec.References {
		refField := path(rec.Field, ref.Field)
		if ref.Entity == nil {
			violations = append(violations, ir.Violation{
				Code:    ir.CodeEntityNotFound,
				Message: fmt.Sprintf("entity %q does not exist", ref.EntityID),
				Field:   refField,
			})
			continue
		}
		if orgKnown {
			if ref.Entity.OrganizationID != rec.OrganizationID {
				violations = append(violations, ir.Violation{
					Code: ir.CodeCrossTenantViolation,
					Message: fmt.Sprintf("entity %q belongs to organization %q, not %q",
						ref.EntityID, ref.Entity.OrganizationID, rec.OrganizationID),
					Field: refField,
				})
			}
			continue
		}
		if anchor == "" {
			anchor = ref.Entity.OrganizationID
			continue
		}
		if ref.Entity.OrganizationID != anchor {
			violations = append(violations, ir.Violation{
				Code: ir.CodeCrossTenantViolation,
				Message: fmt.Sprintf("entity %q belongs to organization %q, other references belong to %q",
					ref.EntityID, ref.Entity.OrganizationID, anchor),
				Field: refField,
			})
		}
	}

	return violations, nil
}

func path(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}
