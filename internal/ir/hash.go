package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainVerdict separates verdict digests from any other hash in the system.
// The version suffix allows a future change of digest input.
const DomainVerdict = "guardrail/verdict/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// VerdictDigest fingerprints a verdict's outcome: operation kind, violations
// and warnings in order. Identical inputs under identical lookup state give
// identical digests, which lets batch reports and audit logs compare
// verdicts across engine instances.
func VerdictDigest(v Verdict) string {
	canonical, err := MarshalCanonical(verdictBody(v))
	if err != nil {
		// Only strings, ints and nested containers are fed in.
		panic("ir: verdict digest: " + err.Error())
	}
	return hashWithDomain(DomainVerdict, canonical)
}

// MarshalCanonicalVerdict renders the whole verdict, digest included, as
// canonical JSON. Used for golden files and audit output.
func MarshalCanonicalVerdict(v Verdict) ([]byte, error) {
	body := verdictBody(v)
	body["admitted"] = v.Admitted
	body["digest"] = v.Digest
	return MarshalCanonical(body)
}

func verdictBody(v Verdict) map[string]any {
	violations := make([]any, len(v.Violations))
	for i, violation := range v.Violations {
		m := map[string]any{
			"code":    string(violation.Code),
			"message": violation.Message,
		}
		if violation.Field != "" {
			m["field"] = violation.Field
		}
		if violation.SegmentIndex != nil {
			m["segment_index"] = *violation.SegmentIndex
		}
		if violation.Currency != "" {
			m["currency"] = violation.Currency
		}
		if violation.Residual != nil {
			m["residual"] = violation.Residual.String()
		}
		violations[i] = m
	}

	warnings := make([]any, len(v.Warnings))
	for i, warning := range v.Warnings {
		m := map[string]any{
			"code":    string(warning.Code),
			"message": warning.Message,
		}
		if warning.Field != "" {
			m["field"] = warning.Field
		}
		if warning.SegmentIndex != nil {
			m["segment_index"] = *warning.SegmentIndex
		}
		warnings[i] = m
	}

	return map[string]any{
		"api_version": v.APIVersion,
		"operation":   string(v.Operation),
		"violations":  violations,
		"warnings":    warnings,
	}
}
