package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/guardrail/internal/ir"
)

// Cycle is a cycle already present in a stored edge set.
type Cycle struct {
	OrganizationID   string   `json:"organization_id"`
	RelationshipType string   `json:"relationship_type"`
	Path             []string `json:"path"` // closes on itself: [a, b, a]
	Message          string   `json:"message"`
}

// FindCycles reports every cycle among the active edges of the given
// hierarchical types, per organization. It is used to vet a snapshot
// before it is trusted as the edge source for candidate checks, since the
// incremental check assumes the stored graph is already a DAG.
//
// Strongly connected components are found with Tarjan's algorithm; every
// component with more than one node, or with a self loop, is a cycle.
func FindCycles(edges []ir.Relationship, hierarchical []string) []Cycle {
	wanted := make(map[string]bool, len(hierarchical))
	for _, t := range hierarchical {
		wanted[t] = true
	}

	type scope struct{ org, relType string }
	scopes := make(map[scope]bool)
	for _, e := range edges {
		if wanted[e.RelationshipType] && e.Active() {
			scopes[scope{e.OrganizationID, e.RelationshipType}] = true
		}
	}

	keys := make([]scope, 0, len(scopes))
	for s := range scopes {
		keys = append(keys, s)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].org != keys[j].org {
			return keys[i].org < keys[j].org
		}
		return keys[i].relType < keys[j].relType
	})

	cycles := []Cycle{}
	for _, s := range keys {
		idx := buildIndex(edges, s.org, s.relType, "")
		for _, scc := range tarjanSCC(idx) {
			if len(scc) == 1 && !idx.hasEdge(scc[0], scc[0]) {
				continue
			}
			path := cyclePath(scc, idx)
			cycles = append(cycles, Cycle{
				OrganizationID:   s.org,
				RelationshipType: s.relType,
				Path:             path,
				Message:          fmt.Sprintf("%s cycle in organization %s: %s", s.relType, s.org, strings.Join(path, " -> ")),
			})
		}
	}
	return cycles
}

func (idx index) hasEdge(from, to string) bool {
	for _, n := range idx[from] {
		if n == to {
			return true
		}
	}
	return false
}

// nodes returns every node of the index in sorted order.
func (idx index) nodes() []string {
	set := make(map[string]bool)
	for from, tos := range idx {
		set[from] = true
		for _, to := range tos {
			set[to] = true
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func tarjanSCC(idx index) [][]string {
	var (
		counter int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range idx[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range idx.nodes() {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cyclePath walks from the smallest member of the component back to itself.
func cyclePath(scc []string, idx index) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	// Any successor inside the component reaches start again.
	for _, next := range idx[start] {
		if !members[next] {
			continue
		}
		sub := make(index, len(idx))
		for from, tos := range idx {
			if !members[from] {
				continue
			}
			for _, to := range tos {
				if members[to] {
					sub[from] = append(sub[from], to)
				}
			}
		}
		if back := sub.path(next, start); back != nil {
			return append([]string{start}, back...)
		}
	}
	return append(scc, start)
}
