package taxonomy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/guardrail/internal/ir"
)

// DefaultPrefix is the tenant-independent root token.
const DefaultPrefix = "HERA"

// Segment count bounds, excluding prefix and version.
const (
	MinSegments = 4
	MaxSegments = 9
)

var (
	// industryPattern matches the first segment: 3-15 upper-case alphanumerics.
	industryPattern = regexp.MustCompile(`^[A-Z0-9]{3,15}$`)

	// segmentPattern matches later segments: 2-30 upper-case alphanumerics or underscores.
	segmentPattern = regexp.MustCompile(`^[A-Z0-9_]{2,30}$`)

	// versionPattern matches v0 or v followed by digits without a leading zero.
	versionPattern = regexp.MustCompile(`^v(0|[1-9][0-9]*)$`)

	// versionCandidate decides whether the last token was meant as a version.
	versionCandidate = regexp.MustCompile(`^(v|V[0-9])`)
)

// Result is the outcome of validating one code.
type Result struct {
	Valid      bool           `json:"valid"`
	Violations []ir.Violation `json:"violations"`
	Warnings   []ir.Warning   `json:"warnings"`
}

func (r *Result) fail(index int, format string, args ...any) {
	r.Valid = false
	r.Violations = append(r.Violations, ir.Violation{
		Code:         ir.CodeTaxonomyCodeInvalid,
		Message:      fmt.Sprintf(format, args...),
		SegmentIndex: ir.Index(index),
	})
}

func (r *Result) warn(index int, format string, args ...any) {
	r.Warnings = append(r.Warnings, ir.Warning{
		Code:         ir.CodeTaxonomyTokenUnknown,
		Message:      fmt.Sprintf(format, args...),
		SegmentIndex: ir.Index(index),
	})
}

// Code is the parsed form of a valid taxonomy code.
type Code struct {
	Raw      string   `json:"raw"`
	Prefix   string   `json:"prefix"`
	Industry string   `json:"industry"`
	Module   string   `json:"module"`
	Segments []string `json:"segments"` // all segments between prefix and version, industry first
	// Version is the number after "v". Versions that do not fit in an int
	// (more than 9223372036854775807 on 64-bit platforms) are rejected as
	// out of range rather than truncated.
	Version int `json:"version"`
}

// Checked is a code together with its validation result, the form in
// which the CLI and the HTTP API report codes.
type Checked struct {
	Code string `json:"code"`
	Result
	Parsed *Code `json:"parsed,omitempty"`
}

// Validator checks codes against the grammar and an optional dictionary.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	prefix string
	dict   Dictionary
}

// NewValidator creates a validator. An empty prefix means DefaultPrefix;
// a nil dictionary disables the semantic layer.
func NewValidator(prefix string, dict Dictionary) *Validator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Validator{prefix: prefix, dict: dict}
}

// Validate checks a code and reports every problem found.
func (v *Validator) Validate(code string) Result {
	_, result := v.Parse(code)
	return result
}

// Check validates a code and attaches its structure when it is valid.
func (v *Validator) Check(code string) Checked {
	parsed, result := v.Parse(code)
	checked := Checked{Code: code, Result: result}
	if result.Valid {
		checked.Parsed = &parsed
	}
	return checked
}

// Parse validates a code and, when it is valid, returns its structure.
// Violations carry the index of the offending token (0 is the prefix);
// -1 marks problems that belong to the code as a whole.
func (v *Validator) Parse(code string) (Code, Result) {
	result := Result{Valid: true, Violations: []ir.Violation{}, Warnings: []ir.Warning{}}
	parsed := Code{Raw: code}

	if strings.TrimSpace(code) == "" {
		result.fail(-1, "taxonomy code is required")
		return parsed, result
	}

	tokens := strings.Split(code, ".")

	// Split off the version token when the last token looks like one.
	segments := tokens[1:]
	versionIndex := len(tokens)
	hasVersion := len(tokens) > 1 && versionCandidate.MatchString(tokens[len(tokens)-1])
	if hasVersion {
		versionIndex = len(tokens) - 1
		segments = tokens[1:versionIndex]
	}

	v.checkPrefix(tokens[0], &result)
	parsed.Prefix = tokens[0]

	switch n := len(segments); {
	case n < MinSegments:
		result.fail(-1, "code has %d segments, at least %d are required", n, MinSegments)
	case n > MaxSegments:
		result.fail(-1, "code has %d segments, at most %d are allowed", n, MaxSegments)
	}

	for i, seg := range segments {
		checkSegment(i+1, seg, &result)
	}

	if !hasVersion {
		result.fail(versionIndex, "version segment is missing, expected v<digits> as last segment")
	} else {
		n, ok := checkVersion(versionIndex, tokens[versionIndex], &result)
		if ok {
			parsed.Version = n
		}
	}

	parsed.Segments = segments
	if len(segments) > 0 {
		parsed.Industry = segments[0]
	}
	if len(segments) > 1 {
		parsed.Module = segments[1]
	}

	// Semantic layer: only consulted for structurally valid tokens.
	if v.dict != nil && len(segments) > 0 && industryPattern.MatchString(segments[0]) && !v.dict.KnownIndustry(segments[0]) {
		result.warn(1, "industry %q is not in the dictionary", segments[0])
	}
	if v.dict != nil && len(segments) > 1 && segmentPattern.MatchString(segments[1]) && !v.dict.KnownModule(segments[1]) {
		result.warn(2, "module %q is not in the dictionary", segments[1])
	}

	if !result.Valid {
		return Code{Raw: code}, result
	}
	return parsed, result
}

func (v *Validator) checkPrefix(token string, result *Result) {
	if token == v.prefix {
		return
	}
	if strings.EqualFold(token, v.prefix) {
		result.fail(0, "prefix %q must be upper-case %q", token, v.prefix)
		return
	}
	result.fail(0, "prefix %q is not %q", token, v.prefix)
}

func checkSegment(index int, seg string, result *Result) {
	pattern, rule := segmentPattern, "2-30 characters of A-Z, 0-9 or _"
	if index == 1 {
		pattern, rule = industryPattern, "3-15 characters of A-Z or 0-9"
	}

	if pattern.MatchString(seg) {
		return
	}
	if seg == "" {
		result.fail(index, "segment %d is empty", index)
		return
	}
	if upper := strings.ToUpper(seg); upper != seg && pattern.MatchString(upper) {
		result.fail(index, "segment %q must be upper-case", seg)
		return
	}
	result.fail(index, "segment %q must be %s", seg, rule)
}

func checkVersion(index int, token string, result *Result) (int, bool) {
	if !versionPattern.MatchString(token) {
		if strings.HasPrefix(token, "V") {
			result.fail(index, "version %q must start with lower-case v", token)
		} else {
			result.fail(index, "version %q must be v followed by digits without a leading zero", token)
		}
		return 0, false
	}
	n, err := strconv.Atoi(token[1:])
	if err != nil {
		result.fail(index, "version %q is out of range, at most v%d is supported", token, math.MaxInt)
		return 0, false
	}
	return n, true
}
