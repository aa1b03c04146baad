package ir

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version constants for the verdict contract and engine.
const (
	// APIVersion is the version of the Op/Verdict wire contract.
	APIVersion = "1.0.0"

	// EngineVersion is the guardrail engine version.
	EngineVersion = "0.1.0"
)

// apiConstraint accepts any contract version with the same major version.
var apiConstraint = mustConstraint("^" + APIVersion)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(fmt.Sprintf("ir: invalid api constraint %q: %v", c, err))
	}
	return constraint
}

// CheckAPIVersion reports whether a caller-declared contract version can be
// served by this engine. An empty version is treated as the current one.
func CheckAPIVersion(v string) error {
	if v == "" {
		return nil
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: api_version %q: %v", ErrMalformedOperation, v, err)
	}
	if !apiConstraint.Check(parsed) {
		return fmt.Errorf("%w: api_version %q is not compatible with %s", ErrMalformedOperation, v, APIVersion)
	}
	return nil
}
