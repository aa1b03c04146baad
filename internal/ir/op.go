package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedOperation marks input whose shape is wrong, as opposed to
// input that is well formed but violates an invariant.
var ErrMalformedOperation = errors.New("malformed operation")

// OpKind names an operation variant on the wire.
type OpKind string

const (
	KindCreateEntity       OpKind = "create_entity"
	KindUpdateEntity       OpKind = "update_entity"
	KindCreateDynamicField OpKind = "create_dynamic_field"
	KindCreateRelationship OpKind = "create_relationship"
	KindUpdateRelationship OpKind = "update_relationship"
	KindCreateTransaction  OpKind = "create_transaction"
	KindUpdateTransaction  OpKind = "update_transaction"
)

// Op is a mutating request against the universal schema. The set of
// implementations is closed; the aggregator switches over all of them.
type Op interface {
	Kind() OpKind
	// Acting returns the organization on whose behalf the write is made,
	// or "" when the caller does not assert one.
	Acting() string
	op()
}

// CreateEntity admits a new entity together with its initial dynamic fields.
type CreateEntity struct {
	ActingOrganization string
	Entity             Entity
	DynamicFields      []DynamicField
}

// UpdateEntity admits an in-place change of an entity.
type UpdateEntity struct {
	ActingOrganization string
	Entity             Entity
	DynamicFields      []DynamicField
}

// CreateDynamicField admits a single dynamic field on an existing entity.
type CreateDynamicField struct {
	ActingOrganization string
	Field              DynamicField
}

// CreateRelationship admits a new edge.
type CreateRelationship struct {
	ActingOrganization string
	Relationship       Relationship
}

// UpdateRelationship admits a change to an existing edge. The stored edge
// with the same id is replaced, not added to.
type UpdateRelationship struct {
	ActingOrganization string
	Relationship       Relationship
}

// CreateTransaction admits a transaction with its lines.
type CreateTransaction struct {
	ActingOrganization string
	Transaction        Transaction
}

// UpdateTransaction admits a replacement of a transaction and its lines.
type UpdateTransaction struct {
	ActingOrganization string
	Transaction        Transaction
}

func (CreateEntity) Kind() OpKind       { return KindCreateEntity }
func (UpdateEntity) Kind() OpKind       { return KindUpdateEntity }
func (CreateDynamicField) Kind() OpKind { return KindCreateDynamicField }
func (CreateRelationship) Kind() OpKind { return KindCreateRelationship }
func (UpdateRelationship) Kind() OpKind { return KindUpdateRelationship }
func (CreateTransaction) Kind() OpKind  { return KindCreateTransaction }
func (UpdateTransaction) Kind() OpKind  { return KindUpdateTransaction }

func (o CreateEntity) Acting() string       { return o.ActingOrganization }
func (o UpdateEntity) Acting() string       { return o.ActingOrganization }
func (o CreateDynamicField) Acting() string { return o.ActingOrganization }
func (o CreateRelationship) Acting() string { return o.ActingOrganization }
func (o UpdateRelationship) Acting() string { return o.ActingOrganization }
func (o CreateTransaction) Acting() string  { return o.ActingOrganization }
func (o UpdateTransaction) Acting() string  { return o.ActingOrganization }

func (CreateEntity) op()       {}
func (UpdateEntity) op()       {}
func (CreateDynamicField) op() {}
func (CreateRelationship) op() {}
func (UpdateRelationship) op() {}
func (CreateTransaction) op()  {}
func (UpdateTransaction) op()  {}

// OpEnvelope is the versioned wire form of an Op, shared by the CLI, the
// HTTP API and batch files. Exactly the payload field matching Kind is read.
type OpEnvelope struct {
	APIVersion           string         `json:"api_version,omitempty"`
	Kind                 OpKind         `json:"kind"`
	ActingOrganizationID string         `json:"acting_organization_id,omitempty"`
	Entity               *Entity        `json:"entity,omitempty"`
	DynamicFields        []DynamicField `json:"dynamic_fields,omitempty"`
	Field                *DynamicField  `json:"field,omitempty"`
	Relationship         *Relationship  `json:"relationship,omitempty"`
	Transaction          *Transaction   `json:"transaction,omitempty"`
}

// Op converts the envelope into its typed variant.
func (e OpEnvelope) Op() (Op, error) {
	if err := CheckAPIVersion(e.APIVersion); err != nil {
		return nil, err
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %q", ErrMalformedOperation, e.Kind, field)
	}

	switch e.Kind {
	case KindCreateEntity, KindUpdateEntity:
		if e.Entity == nil {
			return nil, missing("entity")
		}
		if e.Kind == KindCreateEntity {
			return CreateEntity{ActingOrganization: e.ActingOrganizationID, Entity: *e.Entity, DynamicFields: e.DynamicFields}, nil
		}
		return UpdateEntity{ActingOrganization: e.ActingOrganizationID, Entity: *e.Entity, DynamicFields: e.DynamicFields}, nil
	case KindCreateDynamicField:
		if e.Field == nil {
			return nil, missing("field")
		}
		return CreateDynamicField{ActingOrganization: e.ActingOrganizationID, Field: *e.Field}, nil
	case KindCreateRelationship, KindUpdateRelationship:
		if e.Relationship == nil {
			return nil, missing("relationship")
		}
		if e.Kind == KindCreateRelationship {
			return CreateRelationship{ActingOrganization: e.ActingOrganizationID, Relationship: *e.Relationship}, nil
		}
		return UpdateRelationship{ActingOrganization: e.ActingOrganizationID, Relationship: *e.Relationship}, nil
	case KindCreateTransaction, KindUpdateTransaction:
		if e.Transaction == nil {
			return nil, missing("transaction")
		}
		if e.Kind == KindCreateTransaction {
			return CreateTransaction{ActingOrganization: e.ActingOrganizationID, Transaction: *e.Transaction}, nil
		}
		return UpdateTransaction{ActingOrganization: e.ActingOrganizationID, Transaction: *e.Transaction}, nil
	case "":
		return nil, fmt.Errorf("%w: kind is required", ErrMalformedOperation)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedOperation, e.Kind)
	}
}

// Envelope is the inverse of OpEnvelope.Op.
func Envelope(op Op) OpEnvelope {
	env := OpEnvelope{APIVersion: APIVersion, Kind: op.Kind(), ActingOrganizationID: op.Acting()}
	switch o := op.(type) {
	case CreateEntity:
		env.Entity, env.DynamicFields = &o.Entity, o.DynamicFields
	case UpdateEntity:
		env.Entity, env.DynamicFields = &o.Entity, o.DynamicFields
	case CreateDynamicField:
		env.Field = &o.Field
	case CreateRelationship:
		env.Relationship = &o.Relationship
	case UpdateRelationship:
		env.Relationship = &o.Relationship
	case CreateTransaction:
		env.Transaction = &o.Transaction
	case UpdateTransaction:
		env.Transaction = &o.Transaction
	}
	return env
}

// DecodeJSONStrict decodes JSON into v, rejecting unknown fields so typos in
// hand-written operation files surface instead of being ignored.
func DecodeJSONStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOperation, err)
	}
	return nil
}

// YAMLToJSON converts a YAML (or JSON) document into JSON so that one set
// of json tags and decimal decoders serves both file formats.
func YAMLToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrMalformedOperation, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedOperation)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: convert yaml: %v", ErrMalformedOperation, err)
	}
	return out, nil
}

// ParseEnvelope reads an operation envelope from a JSON or YAML document.
func ParseEnvelope(data []byte) (OpEnvelope, error) {
	var env OpEnvelope
	jsonData, err := YAMLToJSON(data)
	if err != nil {
		return env, err
	}
	if err := DecodeJSONStrict(jsonData, &env); err != nil {
		return env, err
	}
	return env, nil
}
