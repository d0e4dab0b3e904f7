package mixin

import (
	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/schema/field"
)

// Schema is the default implementation for the dbgraph.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []dbgraph.Field { return nil }

var _ dbgraph.Mixin = (*Schema)(nil)

// ID adds an auto-incremented int64 primary key named id.
type ID struct {
	Schema
}

// Fields returns the id field.
func (ID) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("id").PrimaryKey().AutoIncrement(),
	}
}

// Time adds created_at and updated_at timestamp fields to a schema.
type Time struct {
	Schema
}

// Fields returns the time tracking fields.
func (Time) Fields() []dbgraph.Field {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// CreateTime adds only the created_at timestamp field to a schema.
type CreateTime struct {
	Schema
}

// Fields returns the created_at field.
func (CreateTime) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Time("created_at").Comment("Timestamp when the row was created"),
	}
}

// UpdateTime adds only the updated_at timestamp field to a schema.
type UpdateTime struct {
	Schema
}

// Fields returns the updated_at field.
func (UpdateTime) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Time("updated_at").Comment("Timestamp when the row was last updated"),
	}
}

// SoftDelete adds a nullable deleted_at field. Rows with a deleted_at value
// are considered deleted but remain in the database; select them out with
//
//	inst.Where("deleted_at", operator.IsNull())
type SoftDelete struct {
	Schema
}

// Fields returns the soft delete field.
func (SoftDelete) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Time("deleted_at").
			Nillable().
			Comment("Timestamp when the row was soft deleted (NULL means not deleted)"),
	}
}

// TimeSoftDelete combines Time and SoftDelete.
type TimeSoftDelete struct {
	Schema
}

// Fields returns all timestamp and soft delete fields.
func (TimeSoftDelete) Fields() []dbgraph.Field {
	return append(Time{}.Fields(), SoftDelete{}.Fields()...)
}

// TenantID adds the tenant_id column checked by privacy.TenantRule.
type TenantID struct {
	Schema
}

// Fields returns the tenant_id field.
func (TenantID) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.String("tenant_id").Size(64),
	}
}

// Nillable wraps a mixin and marks all its fields as nullable. It is
// useful for adding a mixin to a table that already holds rows.
//
//	mixin.Nillable(mixin.Time{})
func Nillable(m dbgraph.Mixin) dbgraph.Mixin {
	return nillable{Mixin: m}
}

type nillable struct {
	dbgraph.Mixin
}

func (n nillable) Fields() []dbgraph.Field {
	fields := n.Mixin.Fields()
	for i := range fields {
		fields[i].Descriptor().Nillable = true
	}
	return fields
}
