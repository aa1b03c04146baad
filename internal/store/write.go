package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/guardrail/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutOrganization inserts or replaces an organization's status.
func (s *Store) PutOrganization(ctx context.Context, org ir.Organization) error {
	return putOrganization(ctx, s.db, org)
}

// PutEntity inserts or replaces an entity. The owning organization must
// already exist.
func (s *Store) PutEntity(ctx context.Context, ref ir.EntityRef) error {
	return putEntity(ctx, s.db, ref)
}

// PutRelationship inserts or replaces a relationship by id. The owning
// organization must already exist.
func (s *Store) PutRelationship(ctx context.Context, rel ir.Relationship) error {
	return putRelationship(ctx, s.db, rel)
}

func putOrganization(ctx context.Context, db execer, org ir.Organization) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO organizations (id, status) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status
	`, org.ID, string(org.Status))
	if err != nil {
		return fmt.Errorf("put organization %s: %w", org.ID, err)
	}
	return nil
}

func putEntity(ctx context.Context, db execer, ref ir.EntityRef) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entities (id, organization_id, entity_type) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			entity_type = excluded.entity_type
	`, ref.ID, ref.OrganizationID, ref.EntityType)
	if err != nil {
		return fmt.Errorf("put entity %s: %w", ref.ID, err)
	}
	return nil
}

func putRelationship(ctx context.Context, db execer, rel ir.Relationship) error {
	data, err := marshalData(rel.RelationshipData)
	if err != nil {
		return fmt.Errorf("put relationship %s: %w", rel.ID, err)
	}

	direction := rel.Direction
	if direction == "" {
		direction = ir.DirectionForward
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO relationships (
			id, organization_id, from_entity_id, to_entity_id, relationship_type,
			taxonomy_code, direction, strength, is_active, relationship_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			from_entity_id = excluded.from_entity_id,
			to_entity_id = excluded.to_entity_id,
			relationship_type = excluded.relationship_type,
			taxonomy_code = excluded.taxonomy_code,
			direction = excluded.direction,
			strength = excluded.strength,
			is_active = excluded.is_active,
			relationship_data = excluded.relationship_data
	`, rel.ID, rel.OrganizationID, rel.FromEntityID, rel.ToEntityID, rel.RelationshipType,
		rel.TaxonomyCode, string(direction), rel.Strength, boolToInt(rel.Active()), data)
	if err != nil {
		return fmt.Errorf("put relationship %s: %w", rel.ID, err)
	}
	return nil
}

// ApplySnapshot writes every record of the snapshot in one transaction,
// organizations first. Either all records land or none do.
func (s *Store) ApplySnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, org := range snap.Organizations {
		if err := putOrganization(ctx, tx, org); err != nil {
			return err
		}
	}
	for _, ref := range snap.Entities {
		if err := putEntity(ctx, tx, ref); err != nil {
			return err
		}
	}
	for _, rel := range snap.Relationships {
		if err := putRelationship(ctx, tx, rel); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
