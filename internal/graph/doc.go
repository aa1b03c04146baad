// Package graph checks relationship edges before they are admitted.
//
// Three properties are enforced:
//   - type compatibility: endpoint entity types must match the patterns
//     declared for the relationship type
//   - no self reference on hierarchical types
//   - acyclicity: the active edges of one hierarchical type within one
//     organization must stay a DAG once the candidate edge is added
//
// Existing edges come from a caller-supplied ir.EdgeSource. Each check loads
// them into a throwaway adjacency index, answers one reachability question
// and discards it. Nothing is cached between calls.
package graph
