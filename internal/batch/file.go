package batch

import (
	"fmt"
	"os"

	"github.com/roach88/guardrail/internal/ir"
)

// File is a batch of operations.
type File struct {
	APIVersion string          `json:"api_version,omitempty"`
	Name       string          `json:"name"`
	Operations []ir.OpEnvelope `json:"operations"`
}

// Load reads and parses a batch YAML or JSON file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return Parse(data)
}

// Parse parses a batch document. Errors wrap ir.ErrMalformedOperation.
func Parse(data []byte) (*File, error) {
	jsonData, err := ir.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}

	var f File
	if err := ir.DecodeJSONStrict(jsonData, &f); err != nil {
		return nil, err
	}

	if err := ir.CheckAPIVersion(f.APIVersion); err != nil {
		return nil, err
	}
	if err := validateFile(&f); err != nil {
		return nil, fmt.Errorf("%w: invalid batch: %v", ir.ErrMalformedOperation, err)
	}
	return &f, nil
}

func validateFile(f *File) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(f.Operations) == 0 {
		return fmt.Errorf("operations list is required and must be non-empty")
	}
	return nil
}
