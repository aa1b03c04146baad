package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/guardrail/internal/ir"
)

// Options configures a Checker.
type Options struct {
	Rules []Rule
	// Strict rejects relationship types that have no rule.
	Strict bool
}

// Candidate is a relationship about to be written, with its endpoints
// resolved. A nil endpoint was not found; the isolation guard reports that,
// so the type check skips it here.
type Candidate struct {
	Relationship ir.Relationship
	From         *ir.EntityRef
	To           *ir.EntityRef
}

// Checker validates candidate edges against the rule table and the stored
// graph. Safe for concurrent use.
type Checker struct {
	rules  map[string]Rule
	strict bool
	edges  ir.EdgeSource
}

// NewChecker creates a checker reading existing edges from edges.
func NewChecker(edges ir.EdgeSource, opts Options) *Checker {
	rules := make(map[string]Rule, len(opts.Rules))
	for _, r := range opts.Rules {
		rules[r.Type] = r
	}
	return &Checker{rules: rules, strict: opts.Strict, edges: edges}
}

// Rule returns the rule for a relationship type.
func (c *Checker) Rule(relType string) (Rule, bool) {
	r, ok := c.rules[relType]
	return r, ok
}

// Check returns every graph violation of the candidate. The only error is a
// failing edge source.
func (c *Checker) Check(ctx context.Context, cand Candidate) ([]ir.Violation, error) {
	rel := cand.Relationship
	violations := []ir.Violation{}

	rule, declared := c.rules[rel.RelationshipType]
	if !declared {
		if c.strict {
			violations = append(violations, ir.Violation{
				Code:    ir.CodeRelationshipTypeMismatch,
				Message: fmt.Sprintf("relationship type %q is not declared", rel.RelationshipType),
				Field:   "relationship.relationship_type",
			})
		}
		return violations, nil
	}

	violations = append(violations, checkTypes(rule, cand)...)

	if !rule.Hierarchical {
		return violations, nil
	}

	parent, child := rel.Oriented()
	if parent == child {
		violations = append(violations, ir.Violation{
			Code:    ir.CodeRelationshipSelfReference,
			Message: fmt.Sprintf("%s edge from %q to itself", rel.RelationshipType, parent),
			Field:   "relationship.to_entity_id",
		})
		return violations, nil
	}

	// Inactive edges never join the graph, so they cannot close a cycle.
	if !rel.Active() || parent == "" || child == "" {
		return violations, nil
	}

	existing, err := c.edges.Edges(ctx, rel.OrganizationID, rel.RelationshipType)
	if err != nil {
		return nil, fmt.Errorf("list %s edges for organization %s: %w", rel.RelationshipType, rel.OrganizationID, err)
	}

	idx := buildIndex(existing, rel.OrganizationID, rel.RelationshipType, rel.ID)
	if back := idx.path(child, parent); back != nil {
		cycle := append([]string{parent}, back...)
		violations = append(violations, ir.Violation{
			Code: ir.CodeRelationshipCycle,
			Message: fmt.Sprintf("%s edge %s -> %s closes the cycle %s",
				rel.RelationshipType, parent, child, strings.Join(cycle, " -> ")),
			Field: "relationship.to_entity_id",
		})
	}

	return violations, nil
}

// checkTypes applies the rule's patterns to the oriented endpoints.
func checkTypes(rule Rule, cand Candidate) []ir.Violation {
	parent, child := cand.From, cand.To
	parentField, childField := "relationship.from_entity_id", "relationship.to_entity_id"
	if cand.Relationship.Direction == ir.DirectionReverse {
		parent, child = child, parent
		parentField, childField = childField, parentField
	}

	var violations []ir.Violation
	if parent != nil && !rule.AllowsFrom(parent.EntityType) {
		violations = append(violations, ir.Violation{
			Code: ir.CodeRelationshipTypeMismatch,
			Message: fmt.Sprintf("%s cannot start at entity type %q, allowed: %s",
				rule.Type, parent.EntityType, strings.Join(rule.From, ", ")),
			Field: parentField,
		})
	}
	if child != nil && !rule.AllowsTo(child.EntityType) {
		violations = append(violations, ir.Violation{
			Code: ir.CodeRelationshipTypeMismatch,
			Message: fmt.Sprintf("%s cannot end at entity type %q, allowed: %s",
				rule.Type, child.EntityType, strings.Join(rule.To, ", ")),
			Field: childField,
		})
	}
	return violations
}
