// Package guardrail is the aggregator in front of every write to the
// universal schema.
//
// Engine.Validate takes one ir.Op and runs every applicable check in a fixed
// order: isolation, taxonomy grammar, record shape, ledger balance, then the
// relationship graph. Violations from all checks are accumulated into a
// single ir.Verdict; no check short-circuits another, so an operation with
// two independent problems reports both.
//
// Only two conditions are returned as errors instead of violations:
//   - ErrMalformedOperation: the operation has the wrong shape (nil op, a
//     transaction without a lines array)
//   - *Fault with code LOOKUP_UNAVAILABLE: a caller-supplied lookup failed,
//     so no verdict can be rendered
//
// The engine performs no I/O of its own and keeps no state between calls.
// One Engine can serve any number of concurrent callers.
package guardrail
