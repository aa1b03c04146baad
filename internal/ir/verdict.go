package ir

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Code identifies a violation or warning kind. Codes are part of the
// versioned contract and never change meaning.
type Code string

// Violation codes.
const (
	CodeOrgIDMissing              Code = "ORG_ID_MISSING"
	CodeOrgNotFound               Code = "ORG_NOT_FOUND"
	CodeCrossTenantViolation      Code = "CROSS_TENANT_VIOLATION"
	CodeTaxonomyCodeInvalid       Code = "TAXONOMY_CODE_INVALID"
	CodeGLUnbalanced              Code = "GL_UNBALANCED"
	CodeLineNumberInvalid         Code = "LINE_NUMBER_INVALID"
	CodeRelationshipTypeMismatch  Code = "RELATIONSHIP_TYPE_MISMATCH"
	CodeRelationshipCycle         Code = "RELATIONSHIP_CYCLE"
	CodeRelationshipSelfReference Code = "RELATIONSHIP_SELF_REFERENCE"
	CodeEntityNotFound            Code = "ENTITY_NOT_FOUND"
	CodeDynamicFieldInvalid       Code = "DYNAMIC_FIELD_INVALID"
	CodeFieldInvalid              Code = "FIELD_INVALID"

	// CodeLookupUnavailable is never a violation. It tags the fault
	// returned when a caller-supplied lookup fails.
	CodeLookupUnavailable Code = "LOOKUP_UNAVAILABLE"
)

// Warning codes.
const (
	CodeTaxonomyTokenUnknown Code = "TAXONOMY_TOKEN_UNKNOWN"
)

// Violation is a single reason an operation cannot be admitted.
type Violation struct {
	Code         Code             `json:"code"`
	Message      string           `json:"message"`
	Field        string           `json:"field,omitempty"`
	SegmentIndex *int             `json:"segment_index,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	Residual     *decimal.Decimal `json:"residual,omitempty"`
}

// Error implements the error interface so a violation can be logged or
// wrapped like the rest of the error values in the codebase.
func (v Violation) Error() string {
	if v.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Code, v.Field, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Code, v.Message)
}

// Warning is advisory and never blocks admission.
type Warning struct {
	Code         Code   `json:"code"`
	Message      string `json:"message"`
	Field        string `json:"field,omitempty"`
	SegmentIndex *int   `json:"segment_index,omitempty"`
}

// Index returns a pointer to i, for SegmentIndex fields.
func Index(i int) *int {
	return &i
}

// Verdict is the complete result of validating one operation.
type Verdict struct {
	APIVersion string      `json:"api_version"`
	Operation  OpKind      `json:"operation"`
	Admitted   bool        `json:"admitted"`
	Violations []Violation `json:"violations"`
	Warnings   []Warning   `json:"warnings"`
	Digest     string      `json:"digest"`
}

// NewVerdict assembles a verdict from collected violations and warnings.
// Admitted is derived, never set by callers.
func NewVerdict(kind OpKind, violations []Violation, warnings []Warning) Verdict {
	if violations == nil {
		violations = []Violation{}
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	v := Verdict{
		APIVersion: APIVersion,
		Operation:  kind,
		Admitted:   len(violations) == 0,
		Violations: violations,
		Warnings:   warnings,
	}
	v.Digest = VerdictDigest(v)
	return v
}

// Codes returns the violation codes in verdict order.
func (v Verdict) Codes() []Code {
	codes := make([]Code, len(v.Violations))
	for i, violation := range v.Violations {
		codes[i] = violation.Code
	}
	return codes
}

// Has reports whether the verdict contains a violation with the given code.
func (v Verdict) Has(code Code) bool {
	for _, violation := range v.Violations {
		if violation.Code == code {
			return true
		}
	}
	return false
}
