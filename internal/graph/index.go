package graph

import (
	"sort"

	"github.com/roach88/guardrail/internal/ir"
)

// index is an adjacency list keyed by entity id, parent to children.
// Child lists are sorted so traversal order, and therefore the reported
// cycle path, does not depend on edge source order.
type index map[string][]string

// buildIndex adds every active edge of orgID and relType, skipping the edge
// whose id is exclude. Reverse edges are stored parent to child.
func buildIndex(edges []ir.Relationship, orgID, relType, exclude string) index {
	idx := make(index)
	for _, e := range edges {
		if e.OrganizationID != orgID || e.RelationshipType != relType || !e.Active() {
			continue
		}
		if exclude != "" && e.ID == exclude {
			continue
		}
		parent, child := e.Oriented()
		idx[parent] = append(idx[parent], child)
	}
	for node := range idx {
		sort.Strings(idx[node])
	}
	return idx
}

// path returns a path from start to target, or nil when target is not
// reachable. Iterative DFS, O(V+E).
func (idx index) path(start, target string) []string {
	if start == target {
		return []string{start}
	}

	parent := map[string]string{start: ""}
	stack := []string{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := idx[node]
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			if _, seen := parent[child]; seen {
				continue
			}
			parent[child] = node
			if child == target {
				return unwind(parent, start, target)
			}
			stack = append(stack, child)
		}
	}
	return nil
}

func unwind(parent map[string]string, start, target string) []string {
	var rev []string
	for node := target; node != start; node = parent[node] {
		rev = append(rev, node)
	}
	rev = append(rev, start)

	out := make([]string, len(rev))
	for i, node := range rev {
		out[len(rev)-1-i] = node
	}
	return out
}
