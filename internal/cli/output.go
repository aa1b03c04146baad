package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/guardrail/internal/ir"
)

// Exit codes for CLI commands.
//
// 10s are infrastructure failures, 20s grammar, 30s tenancy and ledger,
// 40s graph and record shape. A rejected verdict exits with the code of
// its first violation.
const (
	ExitSuccess      = 0 // Admitted / all codes valid
	ExitFailure      = 1 // Unclassified failure
	ExitCommandError = 2 // Command error (bad args, unreadable or malformed file)

	ExitLookupUnavailable = 10
	ExitPolicyError       = 11
	ExitStoreError        = 12

	ExitTaxonomyCodeInvalid = 20

	ExitOrgIDMissing         = 30
	ExitOrgNotFound          = 31
	ExitCrossTenantViolation = 32
	ExitGLUnbalanced         = 33
	ExitLineNumberInvalid    = 34

	ExitRelationshipTypeMismatch  = 40
	ExitRelationshipCycle         = 41
	ExitRelationshipSelfReference = 42
	ExitEntityNotFound            = 43
	ExitDynamicFieldInvalid       = 44
	ExitFieldInvalid              = 45
)

var exitCodes = map[ir.Code]int{
	ir.CodeLookupUnavailable:         ExitLookupUnavailable,
	ir.CodeTaxonomyCodeInvalid:       ExitTaxonomyCodeInvalid,
	ir.CodeOrgIDMissing:              ExitOrgIDMissing,
	ir.CodeOrgNotFound:               ExitOrgNotFound,
	ir.CodeCrossTenantViolation:      ExitCrossTenantViolation,
	ir.CodeGLUnbalanced:              ExitGLUnbalanced,
	ir.CodeLineNumberInvalid:         ExitLineNumberInvalid,
	ir.CodeRelationshipTypeMismatch:  ExitRelationshipTypeMismatch,
	ir.CodeRelationshipCycle:         ExitRelationshipCycle,
	ir.CodeRelationshipSelfReference: ExitRelationshipSelfReference,
	ir.CodeEntityNotFound:            ExitEntityNotFound,
	ir.CodeDynamicFieldInvalid:       ExitDynamicFieldInvalid,
	ir.CodeFieldInvalid:              ExitFieldInvalid,
}

// ExitCodeFor maps a violation or fault code to its process exit code.
func ExitCodeFor(code ir.Code) int {
	if c, ok := exitCodes[code]; ok {
		return c
	}
	return ExitFailure
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Process exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // payload, present on rejections too
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // violation code or CLI error code
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Rejected outputs a result that carries violations. In JSON the payload
// travels alongside the error so callers see every violation.
func (f *OutputFormatter) Rejected(code, message string, data any) error {
	return f.encode(CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	})
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// encode writes one JSON line. HTML escaping is off so cycle paths keep
// their arrows.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// canonicalVerdict returns the verdict as canonical JSON for embedding in
// a CLIResponse.
func canonicalVerdict(v ir.Verdict) (json.RawMessage, error) {
	data, err := ir.MarshalCanonicalVerdict(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// writeVerdictText prints a verdict for humans.
func writeVerdictText(w io.Writer, v ir.Verdict, verbose bool) {
	if v.Admitted {
		fmt.Fprintf(w, "✓ %s admitted\n", v.Operation)
	} else {
		fmt.Fprintf(w, "✗ %s rejected (%d violation(s))\n", v.Operation, len(v.Violations))
	}
	for _, violation := range v.Violations {
		fmt.Fprintf(w, "  %s\n", describe(violation.Code, violation.Field, violation.SegmentIndex, violation.Message))
	}
	for _, warning := range v.Warnings {
		fmt.Fprintf(w, "  warning %s\n", describe(warning.Code, warning.Field, warning.SegmentIndex, warning.Message))
	}
	if verbose {
		fmt.Fprintf(w, "  digest %s\n", v.Digest)
	}
}

func describe(code ir.Code, field string, segment *int, message string) string {
	var buf bytes.Buffer
	buf.WriteString(string(code))
	if field != "" {
		buf.WriteString(" " + field)
	}
	if segment != nil {
		fmt.Fprintf(&buf, " [segment %d]", *segment)
	}
	buf.WriteString(": " + message)
	return buf.String()
}
