// Package taxonomy validates taxonomy codes (smart codes), the structured
// classification strings carried by every record in the universal schema.
//
// Grammar:
//
//	PREFIX '.' INDUSTRY ('.' SEGMENT){3,8} '.' 'v' DIGITS
//
// For example HERA.RESTAURANT.POS.TXN.SALE.v1. Structural checks are hard
// violations; dictionary misses for the industry and module tokens are
// warnings, so new industries can be onboarded without a code change.
//
// Validate never panics and never returns an error: every outcome is a
// Result value.
package taxonomy
