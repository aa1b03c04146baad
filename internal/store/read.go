package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/guardrail/internal/ir"
)

// OrganizationStatus implements ir.OrgLookup.
func (s *Store) OrganizationStatus(ctx context.Context, orgID string) (ir.OrgStatus, bool, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM organizations WHERE id = ?`, orgID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query organization %s: %w", orgID, err)
	}
	return ir.OrgStatus(status), true, nil
}

// Entity implements ir.EntityLookup.
func (s *Store) Entity(ctx context.Context, entityID string) (ir.EntityRef, bool, error) {
	ref := ir.EntityRef{ID: entityID}
	err := s.db.QueryRowContext(ctx, `
		SELECT organization_id, entity_type FROM entities WHERE id = ?
	`, entityID).Scan(&ref.OrganizationID, &ref.EntityType)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.EntityRef{}, false, nil
	}
	if err != nil {
		return ir.EntityRef{}, false, fmt.Errorf("query entity %s: %w", entityID, err)
	}
	return ref, true, nil
}

// Edges implements ir.EdgeSource. Inactive edges are returned as stored;
// the graph checker filters them. Ordered by id for determinism.
func (s *Store) Edges(ctx context.Context, orgID, relationshipType string) ([]ir.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, from_entity_id, to_entity_id, relationship_type,
			taxonomy_code, direction, strength, is_active, relationship_data
		FROM relationships
		WHERE organization_id = ? AND relationship_type = ?
		ORDER BY id COLLATE BINARY ASC
	`, orgID, relationshipType)
	if err != nil {
		return nil, fmt.Errorf("query edges %s/%s: %w", orgID, relationshipType, err)
	}
	defer rows.Close()

	edges := []ir.Relationship{}
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

// Counts returns the number of stored organizations, entities and
// relationships.
func (s *Store) Counts(ctx context.Context) (orgs, entities, relationships int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM organizations),
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM relationships)
	`).Scan(&orgs, &entities, &relationships)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count snapshot: %w", err)
	}
	return orgs, entities, relationships, nil
}

func scanRelationship(rows *sql.Rows) (ir.Relationship, error) {
	var (
		rel       ir.Relationship
		direction string
		active    int
		data      sql.NullString
	)
	if err := rows.Scan(&rel.ID, &rel.OrganizationID, &rel.FromEntityID, &rel.ToEntityID,
		&rel.RelationshipType, &rel.TaxonomyCode, &direction, &rel.Strength, &active, &data); err != nil {
		return ir.Relationship{}, fmt.Errorf("scan relationship: %w", err)
	}

	rel.Direction = ir.Direction(direction)
	isActive := active != 0
	rel.IsActive = &isActive

	decoded, err := unmarshalData(data)
	if err != nil {
		return ir.Relationship{}, fmt.Errorf("relationship %s: %w", rel.ID, err)
	}
	rel.RelationshipData = decoded
	return rel, nil
}
