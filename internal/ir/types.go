package ir

import (
	"github.com/shopspring/decimal"
)

// OrgStatus is the lifecycle state of an organization.
type OrgStatus string

const (
	OrgActive    OrgStatus = "active"
	OrgSuspended OrgStatus = "suspended"
)

// Organization is the root of tenant isolation.
type Organization struct {
	ID     string    `json:"id" yaml:"id"`
	Status OrgStatus `json:"status" yaml:"status"`
}

// Entity is a row of the universal entities table.
type Entity struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	EntityType     string `json:"entity_type"`
	EntityCode     string `json:"entity_code,omitempty"`
	EntityName     string `json:"entity_name,omitempty"`
	TaxonomyCode   string `json:"taxonomy_code"`
	Status         string `json:"status,omitempty"`
}

// Ref returns the identity subset of the entity that lookups deal in.
func (e Entity) Ref() EntityRef {
	return EntityRef{ID: e.ID, OrganizationID: e.OrganizationID, EntityType: e.EntityType}
}

// EntityRef is everything the engine needs to know about a stored entity.
type EntityRef struct {
	ID             string `json:"id" yaml:"id"`
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
	EntityType     string `json:"entity_type" yaml:"entity_type"`
}

// DynamicField is a typed attribute attached to exactly one entity.
// Exactly one of the value slots may be set.
type DynamicField struct {
	EntityID       string           `json:"entity_id"`
	OrganizationID string           `json:"organization_id,omitempty"` // inherited from the entity when empty
	FieldName      string           `json:"field_name"`
	TextValue      *string          `json:"field_value_text,omitempty"`
	NumberValue    *decimal.Decimal `json:"field_value_number,omitempty"`
	BooleanValue   *bool            `json:"field_value_boolean,omitempty"`
	DateValue      *string          `json:"field_value_date,omitempty"` // ISO 8601 date or RFC 3339 timestamp
	JSONValue      any              `json:"field_value_json,omitempty"`
	TaxonomyCode   string           `json:"taxonomy_code"`
}

// ValueKinds lists the populated value slots in declaration order.
func (f DynamicField) ValueKinds() []string {
	var kinds []string
	if f.TextValue != nil {
		kinds = append(kinds, "text")
	}
	if f.NumberValue != nil {
		kinds = append(kinds, "number")
	}
	if f.BooleanValue != nil {
		kinds = append(kinds, "boolean")
	}
	if f.DateValue != nil {
		kinds = append(kinds, "date")
	}
	if f.JSONValue != nil {
		kinds = append(kinds, "json")
	}
	return kinds
}

// Direction is the reading direction of a relationship edge.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// Relationship is a typed edge between two entities of one organization.
type Relationship struct {
	ID               string         `json:"id" yaml:"id"`
	OrganizationID   string         `json:"organization_id" yaml:"organization_id"`
	FromEntityID     string         `json:"from_entity_id" yaml:"from_entity_id"`
	ToEntityID       string         `json:"to_entity_id" yaml:"to_entity_id"`
	RelationshipType string         `json:"relationship_type" yaml:"relationship_type"`
	RelationshipData map[string]any `json:"relationship_data,omitempty" yaml:"relationship_data,omitempty"`
	TaxonomyCode     string         `json:"taxonomy_code" yaml:"taxonomy_code"`
	Direction        Direction      `json:"direction,omitempty" yaml:"direction,omitempty"` // empty reads as forward
	Strength         float64        `json:"strength" yaml:"strength"`
	IsActive         *bool          `json:"is_active,omitempty" yaml:"is_active,omitempty"` // nil reads as active
}

// Active reports whether the edge participates in graph checks.
func (r Relationship) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// Oriented returns the (parent, child) pair with reverse edges flipped.
func (r Relationship) Oriented() (string, string) {
	if r.Direction == DirectionReverse {
		return r.ToEntityID, r.FromEntityID
	}
	return r.FromEntityID, r.ToEntityID
}

// Transaction is a header row of the universal transactions table.
// Lines is nil when the payload carried no lines array at all.
type Transaction struct {
	ID              string            `json:"id"`
	OrganizationID  string            `json:"organization_id"`
	TransactionType string            `json:"transaction_type"`
	TaxonomyCode    string            `json:"taxonomy_code"`
	CurrencyCode    string            `json:"transaction_currency_code"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Status          string            `json:"status,omitempty"`
	Lines           []TransactionLine `json:"lines"`
}

// EffectiveCurrency returns the line's currency override, else the
// transaction default.
func (t Transaction) EffectiveCurrency(line TransactionLine) string {
	if line.CurrencyCode != "" {
		return line.CurrencyCode
	}
	return t.CurrencyCode
}

// TransactionLine is one line of a transaction.
type TransactionLine struct {
	LineNumber   int             `json:"line_number"`
	LineType     string          `json:"line_type"`
	EntityID     string          `json:"entity_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitAmount   decimal.Decimal `json:"unit_amount"`
	LineAmount   decimal.Decimal `json:"line_amount"`
	TaxonomyCode string          `json:"taxonomy_code,omitempty"`
	CurrencyCode string          `json:"currency_code,omitempty"`
}
