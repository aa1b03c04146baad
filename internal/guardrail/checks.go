package guardrail

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/roach88/guardrail/internal/graph"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/isolation"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// validation accumulates the results of one Validate call. Violations are
// kept per check so the verdict lists them in check order regardless of
// the order the checks ran in.
type validation struct {
	engine  *Engine
	lookups *callLookups
	guard   *isolation.Guard
	acting  string

	isolation []ir.Violation
	grammar   []ir.Violation
	shape     []ir.Violation
	balance   []ir.Violation
	graph     []ir.Violation
	warnings  []ir.Warning
}

func (v *validation) violations() []ir.Violation {
	out := make([]ir.Violation, 0,
		len(v.isolation)+len(v.grammar)+len(v.shape)+len(v.balance)+len(v.graph))
	out = append(out, v.isolation...)
	out = append(out, v.grammar...)
	out = append(out, v.shape...)
	out = append(out, v.balance...)
	out = append(out, v.graph...)
	return out
}

func (v *validation) isolate(ctx context.Context, rec isolation.Record) error {
	vs, err := v.guard.Check(ctx, rec, v.acting)
	if err != nil {
		return err
	}
	v.isolation = append(v.isolation, vs...)
	return nil
}

// code validates a taxonomy code and files its violations under field.
func (v *validation) code(field, code string, required bool) {
	if code == "" && !required {
		return
	}
	result := v.engine.codes.Validate(code)
	for _, violation := range result.Violations {
		violation.Field = field
		v.grammar = append(v.grammar, violation)
	}
	for _, warning := range result.Warnings {
		warning.Field = field
		v.warnings = append(v.warnings, warning)
	}
}

func (v *validation) invalid(code ir.Code, field, format string, args ...any) {
	v.shape = append(v.shape, ir.Violation{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	})
}

func (v *validation) required(field, value string) {
	if value == "" {
		v.invalid(ir.CodeFieldInvalid, field, "%s is required", field)
	}
}

func (v *validation) entity(ctx context.Context, ent ir.Entity, fields []ir.DynamicField, update bool) error {
	rec := isolation.Record{Field: "entity", OrganizationID: ent.OrganizationID}
	if update && ent.ID != "" {
		stored, err := v.lookups.resolve(ctx, ent.ID)
		if err != nil {
			return err
		}
		rec.References = append(rec.References, isolation.Reference{Field: "id", EntityID: ent.ID, Entity: stored})
	}
	if err := v.isolate(ctx, rec); err != nil {
		return err
	}
	for i, f := range fields {
		if f.OrganizationID != "" && f.OrganizationID != ent.OrganizationID {
			v.isolation = append(v.isolation, ir.Violation{
				Code: ir.CodeCrossTenantViolation,
				Message: fmt.Sprintf("dynamic field %q names organization %q, its entity belongs to %q",
					f.FieldName, f.OrganizationID, ent.OrganizationID),
				Field: fmt.Sprintf("dynamic_fields[%d].organization_id", i),
			})
		}
	}

	v.code("entity.taxonomy_code", ent.TaxonomyCode, true)
	for i, f := range fields {
		v.code(fmt.Sprintf("dynamic_fields[%d].taxonomy_code", i), f.TaxonomyCode, true)
	}

	v.required("entity.id", ent.ID)
	v.required("entity.entity_type", ent.EntityType)

	names := make(map[string]int, len(fields))
	for i, f := range fields {
		prefix := fmt.Sprintf("dynamic_fields[%d]", i)
		if f.EntityID != "" && ent.ID != "" && f.EntityID != ent.ID {
			v.invalid(ir.CodeDynamicFieldInvalid, prefix+".entity_id",
				"dynamic field %q is attached to entity %q, not %q", f.FieldName, f.EntityID, ent.ID)
		}
		if first, dup := names[f.FieldName]; dup && f.FieldName != "" {
			v.invalid(ir.CodeDynamicFieldInvalid, prefix+".field_name",
				"field name %q is already used by dynamic_fields[%d]", f.FieldName, first)
		} else {
			names[f.FieldName] = i
		}
		v.fieldShape(prefix, f)
	}
	return nil
}

func (v *validation) dynamicField(ctx context.Context, f ir.DynamicField) error {
	stored, err := v.lookups.resolve(ctx, f.EntityID)
	if err != nil {
		return err
	}

	org := f.OrganizationID
	if org == "" && stored != nil {
		org = stored.OrganizationID
	}
	rec := isolation.Record{Field: "field", OrganizationID: org}
	if f.EntityID != "" {
		rec.References = []isolation.Reference{{Field: "entity_id", EntityID: f.EntityID, Entity: stored}}
	}
	if err := v.isolate(ctx, rec); err != nil {
		return err
	}

	v.code("field.taxonomy_code", f.TaxonomyCode, true)

	v.required("field.entity_id", f.EntityID)
	v.fieldShape("field", f)
	return nil
}

// fieldShape checks the name and the single populated value slot.
func (v *validation) fieldShape(prefix string, f ir.DynamicField) {
	if f.FieldName == "" {
		v.invalid(ir.CodeDynamicFieldInvalid, prefix+".field_name", "field_name is required")
	}

	switch kinds := f.ValueKinds(); len(kinds) {
	case 0:
		v.invalid(ir.CodeDynamicFieldInvalid, prefix, "dynamic field %q has no value", f.FieldName)
	case 1:
	default:
		v.invalid(ir.CodeDynamicFieldInvalid, prefix, "dynamic field %q has %d values (%v), exactly one is allowed",
			f.FieldName, len(kinds), kinds)
	}

	if f.DateValue != nil && !validDate(*f.DateValue) {
		v.invalid(ir.CodeDynamicFieldInvalid, prefix+".field_value_date",
			"%q is not an ISO 8601 date or RFC 3339 timestamp", *f.DateValue)
	}
}

func validDate(s string) bool {
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

func (v *validation) relationship(ctx context.Context, rel ir.Relationship) error {
	from, err := v.lookups.resolve(ctx, rel.FromEntityID)
	if err != nil {
		return err
	}
	to, err := v.lookups.resolve(ctx, rel.ToEntityID)
	if err != nil {
		return err
	}

	rec := isolation.Record{Field: "relationship", OrganizationID: rel.OrganizationID}
	if rel.FromEntityID != "" {
		rec.References = append(rec.References, isolation.Reference{Field: "from_entity_id", EntityID: rel.FromEntityID, Entity: from})
	}
	if rel.ToEntityID != "" {
		rec.References = append(rec.References, isolation.Reference{Field: "to_entity_id", EntityID: rel.ToEntityID, Entity: to})
	}
	if err := v.isolate(ctx, rec); err != nil {
		return err
	}

	v.code("relationship.taxonomy_code", rel.TaxonomyCode, true)

	v.required("relationship.id", rel.ID)
	v.required("relationship.relationship_type", rel.RelationshipType)
	v.required("relationship.from_entity_id", rel.FromEntityID)
	v.required("relationship.to_entity_id", rel.ToEntityID)
	switch rel.Direction {
	case "", ir.DirectionForward, ir.DirectionReverse:
	default:
		v.invalid(ir.CodeFieldInvalid, "relationship.direction",
			"direction %q must be %q or %q", rel.Direction, ir.DirectionForward, ir.DirectionReverse)
	}
	if math.IsNaN(rel.Strength) || rel.Strength < 0 || rel.Strength > 1 {
		v.invalid(ir.CodeFieldInvalid, "relationship.strength", "strength %v is outside 0..1", rel.Strength)
	}

	if rel.RelationshipType == "" || rel.FromEntityID == "" || rel.ToEntityID == "" {
		return nil
	}
	vs, err := v.engine.graph.Check(ctx, graph.Candidate{Relationship: rel, From: from, To: to})
	if err != nil {
		return err
	}
	v.graph = append(v.graph, vs...)
	return nil
}

func (v *validation) transaction(ctx context.Context, txn ir.Transaction) error {
	if txn.Lines == nil {
		return fmt.Errorf("%w: transaction %q has no lines array", ErrMalformedOperation, txn.ID)
	}

	rec := isolation.Record{Field: "transaction", OrganizationID: txn.OrganizationID}
	for i, line := range txn.Lines {
		if line.EntityID == "" {
			continue
		}
		ref, err := v.lookups.resolve(ctx, line.EntityID)
		if err != nil {
			return err
		}
		rec.References = append(rec.References, isolation.Reference{
			Field:    fmt.Sprintf("lines[%d].entity_id", i),
			EntityID: line.EntityID,
			Entity:   ref,
		})
	}
	if err := v.isolate(ctx, rec); err != nil {
		return err
	}

	v.code("transaction.taxonomy_code", txn.TaxonomyCode, true)
	for i, line := range txn.Lines {
		v.code(fmt.Sprintf("transaction.lines[%d].taxonomy_code", i), line.TaxonomyCode, false)
	}

	v.required("transaction.id", txn.ID)
	v.required("transaction.transaction_type", txn.TransactionType)
	if txn.CurrencyCode != "" && !currencyPattern.MatchString(txn.CurrencyCode) {
		v.invalid(ir.CodeFieldInvalid, "transaction.transaction_currency_code",
			"currency %q is not an ISO 4217 code", txn.CurrencyCode)
	}
	for i, line := range txn.Lines {
		if line.CurrencyCode != "" && !currencyPattern.MatchString(line.CurrencyCode) {
			v.invalid(ir.CodeFieldInvalid, fmt.Sprintf("transaction.lines[%d].currency_code", i),
				"currency %q is not an ISO 4217 code", line.CurrencyCode)
		}
	}

	v.balance = append(v.balance, v.engine.ledger.Check(txn).Violations...)
	return nil
}
