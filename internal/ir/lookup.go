package ir

import "context"

// Lookup callbacks are supplied by collaborators. The engine never performs
// its own I/O; an error from any of these aborts validation with a
// LOOKUP_UNAVAILABLE fault, while a clean "not found" is an ordinary
// violation.

// OrgLookup resolves an organization's status.
type OrgLookup interface {
	OrganizationStatus(ctx context.Context, orgID string) (status OrgStatus, found bool, err error)
}

// EntityLookup resolves a stored entity by id.
type EntityLookup interface {
	Entity(ctx context.Context, entityID string) (ref EntityRef, found bool, err error)
}

// EdgeSource lists existing relationships of one type within one
// organization. Implementations should pre-scope the list; the graph checker
// filters again regardless.
type EdgeSource interface {
	Edges(ctx context.Context, orgID, relationshipType string) ([]Relationship, error)
}

// OrgLookupFunc adapts a function to OrgLookup.
type OrgLookupFunc func(ctx context.Context, orgID string) (OrgStatus, bool, error)

// OrganizationStatus implements OrgLookup.
func (f OrgLookupFunc) OrganizationStatus(ctx context.Context, orgID string) (OrgStatus, bool, error) {
	return f(ctx, orgID)
}

// EntityLookupFunc adapts a function to EntityLookup.
type EntityLookupFunc func(ctx context.Context, entityID string) (EntityRef, bool, error)

// Entity implements EntityLookup.
func (f EntityLookupFunc) Entity(ctx context.Context, entityID string) (EntityRef, bool, error) {
	return f(ctx, entityID)
}

// EdgeSourceFunc adapts a function to EdgeSource.
type EdgeSourceFunc func(ctx context.Context, orgID, relationshipType string) ([]Relationship, error)

// Edges implements EdgeSource.
func (f EdgeSourceFunc) Edges(ctx context.Context, orgID, relationshipType string) ([]Relationship, error) {
	return f(ctx, orgID, relationshipType)
}
