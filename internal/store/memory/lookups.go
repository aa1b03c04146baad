// Package memory provides an in-memory implementation of the guardrail
// lookup callbacks, for development, batch overlays and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/guardrail/internal/ir"
)

var (
	_ ir.OrgLookup    = (*Lookups)(nil)
	_ ir.EntityLookup = (*Lookups)(nil)
	_ ir.EdgeSource   = (*Lookups)(nil)
)

// Lookups is an in-memory snapshot of organizations, entities and
// relationships. Safe for concurrent use.
type Lookups struct {
	mu            sync.RWMutex
	orgs          map[string]ir.OrgStatus
	entities      map[string]ir.EntityRef
	relationships map[string]ir.Relationship // indexed by relationship id
}

// NewLookups creates an empty snapshot.
func NewLookups() *Lookups {
	return &Lookups{
		orgs:          make(map[string]ir.OrgStatus),
		entities:      make(map[string]ir.EntityRef),
		relationships: make(map[string]ir.Relationship),
	}
}

// PutOrganization inserts or replaces an organization.
func (l *Lookups) PutOrganization(org ir.Organization) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orgs[org.ID] = org.Status
}

// PutEntity inserts or replaces an entity.
func (l *Lookups) PutEntity(ref ir.EntityRef) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entities[ref.ID] = ref
}

// PutRelationship inserts or replaces a relationship by id.
func (l *Lookups) PutRelationship(rel ir.Relationship) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.relationships[rel.ID] = rel
}

// OrganizationStatus implements ir.OrgLookup.
func (l *Lookups) OrganizationStatus(_ context.Context, orgID string) (ir.OrgStatus, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	status, ok := l.orgs[orgID]
	return status, ok, nil
}

// Entity implements ir.EntityLookup.
func (l *Lookups) Entity(_ context.Context, entityID string) (ir.EntityRef, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ref, ok := l.entities[entityID]
	return ref, ok, nil
}

// Relationship returns the relationship with the given id, whatever its
// organization or type.
func (l *Lookups) Relationship(id string) (ir.Relationship, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rel, ok := l.relationships[id]
	return rel, ok
}

// Edges implements ir.EdgeSource. Results are ordered by relationship id.
func (l *Lookups) Edges(_ context.Context, orgID, relationshipType string) ([]ir.Relationship, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	edges := []ir.Relationship{}
	for _, rel := range l.relationships {
		if rel.OrganizationID == orgID && rel.RelationshipType == relationshipType {
			edges = append(edges, rel)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}
