// Package policy loads guardrail configuration from CUE.
//
// A policy file sets the taxonomy prefix and dictionary, the isolation
// options, the ledger constants and the relationship rule table. Files are
// unified with an embedded schema (#Policy in schema.cue) that supplies the
// defaults, so an empty file is a valid policy. Default() returns the
// built-in policy compiled from default.cue.
package policy

import (
	"github.com/roach88/guardrail/internal/graph"
	"github.com/roach88/guardrail/internal/ledger"
	"github.com/roach88/guardrail/internal/taxonomy"
)

// Policy is the compiled guardrail configuration.
type Policy struct {
	// Source names the file or directory the policy came from.
	Source string `json:"source"`

	TaxonomyPrefix string   `json:"taxonomy_prefix"`
	Industries     []string `json:"industries"`
	Modules        []string `json:"modules"`

	AllowOpaqueOrgIDs bool `json:"allow_opaque_org_ids"`

	Ledger ledger.Config `json:"ledger"`

	Relationships           []graph.Rule `json:"relationships"` // sorted by type
	StrictRelationshipTypes bool         `json:"strict_relationship_types"`
}

// Dictionary returns the taxonomy dictionary, or nil when both token sets
// are empty.
func (p *Policy) Dictionary() taxonomy.Dictionary {
	if len(p.Industries) == 0 && len(p.Modules) == 0 {
		return nil
	}
	return taxonomy.NewStaticDictionary(p.Industries, p.Modules)
}
