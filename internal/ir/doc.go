// Package ir provides the record and verdict types shared by every guardrail
// component and collaborator.
//
// This package contains type definitions, the versioned operation envelope
// and the canonical verdict digest. All other internal packages import ir;
// ir imports nothing internal.
//
// Key design constraints:
//   - Monetary amounts are decimal.Decimal, never floats
//   - All JSON tags use snake_case and match the universal schema column names
//   - Verdict slices are never nil so JSON output is stable ([] not null)
//   - Violations are data; only malformed operations surface as errors
package ir
