package graph

import (
	"fmt"
	"path"
	"sort"
)

// Rule declares what a relationship type may connect.
//
// From and To hold entity_type glob patterns (path.Match syntax, so
// "product*" and "*" work). An empty list allows any entity type.
type Rule struct {
	Type         string   `json:"type"`
	From         []string `json:"from,omitempty"`
	To           []string `json:"to,omitempty"`
	Hierarchical bool     `json:"hierarchical"`
}

// AllowsFrom reports whether entityType may be the parent end.
func (r Rule) AllowsFrom(entityType string) bool {
	return matchAny(r.From, entityType)
}

// AllowsTo reports whether entityType may be the child end.
func (r Rule) AllowsTo(entityType string) bool {
	return matchAny(r.To, entityType)
}

func matchAny(patterns []string, entityType string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, entityType); ok {
			return true
		}
	}
	return false
}

// ValidateRules reports malformed patterns and duplicate types.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Type == "" {
			return fmt.Errorf("relationship rule has no type")
		}
		if seen[r.Type] {
			return fmt.Errorf("relationship type %q is declared twice", r.Type)
		}
		seen[r.Type] = true

		for _, p := range append(append([]string{}, r.From...), r.To...) {
			if _, err := path.Match(p, ""); err != nil {
				return fmt.Errorf("relationship type %q: bad pattern %q: %w", r.Type, p, err)
			}
		}
	}
	return nil
}

// HierarchicalTypes returns the sorted names of the hierarchical rules.
func HierarchicalTypes(rules []Rule) []string {
	var types []string
	for _, r := range rules {
		if r.Hierarchical {
			types = append(types, r.Type)
		}
	}
	sort.Strings(types)
	return types
}
