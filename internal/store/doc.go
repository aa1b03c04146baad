// Package store provides a SQLite-backed reference snapshot for guardrail
// collaborators.
//
// The engine never stores anything. The CLI, the HTTP server and the batch
// importer still need somewhere to answer its lookup callbacks from, so
// this package keeps a snapshot of the universal schema's identity data:
//   - organizations: id and lifecycle status
//   - entities: id, owning organization, entity type
//   - relationships: the edge set the graph checker reads
//
// plus an append-only verdict log that collaborators may write to.
//
// *Store implements ir.OrgLookup, ir.EntityLookup and ir.EdgeSource. Edge
// queries are pre-scoped by organization and relationship type and ordered
// by id, so the graph checker sees a deterministic edge list.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
