// Package batch runs a file of operations through the guardrail engine in
// order, the way a seeding or import job would.
//
// Each admitted operation is applied to an in-memory overlay on top of the
// caller's lookups, so later operations see entities and edges created by
// earlier ones. A batch that builds a BOM chain and then closes it has its
// cycle caught even though nothing was persisted.
//
// By default a batch stops at the first rejected operation. In report-only
// mode it runs to the end and reports every verdict. A fault (lookup
// failure or malformed operation) aborts the batch in both modes.
package batch
