package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guardrail/internal/graph"
	"github.com/roach88/guardrail/internal/ir"
)

// Snapshot is the seed file format for a reference snapshot.
type Snapshot struct {
	// APIVersion is the contract version the file was written against.
	APIVersion string `yaml:"api_version,omitempty"`

	Organizations []ir.Organization `yaml:"organizations"`
	Entities      []ir.EntityRef    `yaml:"entities"`
	Relationships []ir.Relationship `yaml:"relationships"`
}

// LoadSnapshot reads and parses a snapshot YAML (or JSON) file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or fails validation.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot parses and validates a snapshot document.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&snap); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if err := ir.CheckAPIVersion(snap.APIVersion); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if err := validateSnapshot(&snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &snap, nil
}

// validateSnapshot checks required fields and id uniqueness. Referential
// integrity against organizations is left to the database.
func validateSnapshot(s *Snapshot) error {
	orgs := make(map[string]bool, len(s.Organizations))
	for i, org := range s.Organizations {
		if org.ID == "" {
			return fmt.Errorf("organizations[%d]: id is required", i)
		}
		if org.Status != ir.OrgActive && org.Status != ir.OrgSuspended {
			return fmt.Errorf("organizations[%d]: status %q must be %q or %q", i, org.Status, ir.OrgActive, ir.OrgSuspended)
		}
		if orgs[org.ID] {
			return fmt.Errorf("organizations[%d]: duplicate id %q", i, org.ID)
		}
		orgs[org.ID] = true
	}

	entities := make(map[string]bool, len(s.Entities))
	for i, ref := range s.Entities {
		switch {
		case ref.ID == "":
			return fmt.Errorf("entities[%d]: id is required", i)
		case ref.OrganizationID == "":
			return fmt.Errorf("entities[%d]: organization_id is required", i)
		case ref.EntityType == "":
			return fmt.Errorf("entities[%d]: entity_type is required", i)
		case entities[ref.ID]:
			return fmt.Errorf("entities[%d]: duplicate id %q", i, ref.ID)
		}
		entities[ref.ID] = true
	}

	rels := make(map[string]bool, len(s.Relationships))
	for i, rel := range s.Relationships {
		switch {
		case rel.ID == "":
			return fmt.Errorf("relationships[%d]: id is required", i)
		case rel.OrganizationID == "":
			return fmt.Errorf("relationships[%d]: organization_id is required", i)
		case rel.RelationshipType == "":
			return fmt.Errorf("relationships[%d]: relationship_type is required", i)
		case rel.FromEntityID == "" || rel.ToEntityID == "":
			return fmt.Errorf("relationships[%d]: from_entity_id and to_entity_id are required", i)
		case rel.Direction != "" && rel.Direction != ir.DirectionForward && rel.Direction != ir.DirectionReverse:
			return fmt.Errorf("relationships[%d]: direction %q must be %q or %q", i, rel.Direction, ir.DirectionForward, ir.DirectionReverse)
		case rels[rel.ID]:
			return fmt.Errorf("relationships[%d]: duplicate id %q", i, rel.ID)
		}
		rels[rel.ID] = true
	}

	return nil
}

// Cycles reports cycles among the snapshot's active edges of the given
// hierarchical relationship types. A snapshot with cycles would make every
// later cycle check on the affected scope meaningless.
func (s *Snapshot) Cycles(hierarchical []string) []graph.Cycle {
	return graph.FindCycles(s.Relationships, hierarchical)
}
