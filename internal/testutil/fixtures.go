// Package testutil holds shared fixtures for guardrail tests: fixed
// organization ids, a seeded lookup snapshot and record builders.
package testutil

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/store/memory"
)

// Organization ids. OrgUnknown is well formed but absent from Lookups.
const (
	OrgA         = "6f1c1c2e-0a57-4c8e-9d0f-3b2a1e4d5c6a"
	OrgB         = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	OrgSuspended = "0d1e2f3a-4b5c-4d6e-8f7a-8b9c0d1e2f3a"
	OrgUnknown   = "12345678-1234-4234-8234-123456789abc"
)

// Entity ids seeded by Lookups. EntityForeign belongs to OrgB, all others
// to OrgA.
const (
	EntityTable   = "ent-table"
	EntityTop     = "ent-top"
	EntityLegs    = "ent-legs"
	EntityScrew   = "ent-screw"
	EntityCash    = "ent-cash"
	EntityRevenue = "ent-revenue"
	EntityActive  = "ent-status-active"
	EntityForeign = "ent-foreign"
)

// Taxonomy codes that satisfy the default grammar.
const (
	CodeEntity       = "HERA.MFG.PROD.ITEM.FINISHED.v1"
	CodeField        = "HERA.MFG.PROD.FIELD.COLOR.v1"
	CodeRelationship = "HERA.MFG.BOM.REL.COMPONENT.v1"
	CodeTransaction  = "HERA.FIN.GL.TXN.JOURNAL.v1"
	CodeLine         = "HERA.FIN.GL.LINE.POSTING.v1"
)

// Relationship types used by the default policy.
const (
	TypeBOMComponent = "BOM_COMPONENT"
	TypeHasStatus    = "HAS_STATUS"
)

// Lookups returns a snapshot seeded with the fixture organizations and
// entities and no relationships.
func Lookups() *memory.Lookups {
	l := memory.NewLookups()
	l.PutOrganization(ir.Organization{ID: OrgA, Status: ir.OrgActive})
	l.PutOrganization(ir.Organization{ID: OrgB, Status: ir.OrgActive})
	l.PutOrganization(ir.Organization{ID: OrgSuspended, Status: ir.OrgSuspended})

	for _, id := range []string{EntityTable, EntityTop, EntityLegs, EntityScrew} {
		l.PutEntity(ir.EntityRef{ID: id, OrganizationID: OrgA, EntityType: "product"})
	}
	l.PutEntity(ir.EntityRef{ID: EntityCash, OrganizationID: OrgA, EntityType: "account"})
	l.PutEntity(ir.EntityRef{ID: EntityRevenue, OrganizationID: OrgA, EntityType: "account"})
	l.PutEntity(ir.EntityRef{ID: EntityActive, OrganizationID: OrgA, EntityType: "status"})
	l.PutEntity(ir.EntityRef{ID: EntityForeign, OrganizationID: OrgB, EntityType: "product"})
	return l
}

// Amount parses a decimal literal and panics on malformed input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Entity builds a valid OrgA product entity.
func Entity(id string) ir.Entity {
	return ir.Entity{
		ID:             id,
		OrganizationID: OrgA,
		EntityType:     "product",
		EntityCode:     "SKU-" + id,
		EntityName:     "Product " + id,
		TaxonomyCode:   CodeEntity,
		Status:         "active",
	}
}

// Relationship builds an active forward OrgA edge.
func Relationship(id, from, to, relType string) ir.Relationship {
	return ir.Relationship{
		ID:               id,
		OrganizationID:   OrgA,
		FromEntityID:     from,
		ToEntityID:       to,
		RelationshipType: relType,
		TaxonomyCode:     CodeRelationship,
		Direction:        ir.DirectionForward,
		Strength:         1,
	}
}

// Line builds a line in the transaction's default currency.
func Line(n int, lineType, amount string) ir.TransactionLine {
	return ir.TransactionLine{
		LineNumber:   n,
		LineType:     lineType,
		Quantity:     decimal.NewFromInt(1),
		UnitAmount:   Amount(amount),
		LineAmount:   Amount(amount),
		TaxonomyCode: CodeLine,
	}
}

// LineIn builds a line with a currency override.
func LineIn(n int, lineType, amount, currency string) ir.TransactionLine {
	line := Line(n, lineType, amount)
	line.CurrencyCode = currency
	return line
}

// Journal builds an OrgA transaction. Lines is never nil.
func Journal(currency string, lines ...ir.TransactionLine) ir.Transaction {
	if lines == nil {
		lines = []ir.TransactionLine{}
	}
	return ir.Transaction{
		ID:              "txn-1",
		OrganizationID:  OrgA,
		TransactionType: "journal_entry",
		TaxonomyCode:    CodeTransaction,
		CurrencyCode:    currency,
		Status:          "posted",
		Lines:           lines,
	}
}

// FailingLookups fails every lookup with Err.
type FailingLookups struct {
	Err error
}

// OrganizationStatus implements ir.OrgLookup.
func (f FailingLookups) OrganizationStatus(context.Context, string) (ir.OrgStatus, bool, error) {
	return "", false, f.Err
}

// Entity implements ir.EntityLookup.
func (f FailingLookups) Entity(context.Context, string) (ir.EntityRef, bool, error) {
	return ir.EntityRef{}, false, f.Err
}

// Edges implements ir.EdgeSource.
func (f FailingLookups) Edges(context.Context, string, string) ([]ir.Relationship, error) {
	return nil, f.Err
}
