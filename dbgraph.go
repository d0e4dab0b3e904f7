// Package dbgraph declares table-shaped entities and the errors shared by the
// query-graph engine.
//
// An entity is a Go type that embeds Schema and lists its columns:
//
//	type Marque struct {
//	    dbgraph.Schema
//	}
//
//	func (Marque) Fields() []dbgraph.Field {
//	    return []dbgraph.Field{
//	        field.Int64("uid_marque").PrimaryKey(),
//	        field.String("name"),
//	        field.Int64("fk_carcompany").References(CarCompany{}),
//	    }
//	}
//
// Declarations are compiled into descriptors by the entity package and
// combined into queries by the query package.
package dbgraph

import "github.com/syssam/dbgraph/schema/field"

type (
	// Interface is the interface implemented by every entity declaration.
	Interface interface {
		// Type is a marker method that keeps arbitrary types from being
		// passed where a declaration is expected.
		Type()
		// Fields returns the columns of the entity in declaration order.
		Fields() []Field
		// Mixin returns the mixins whose columns precede the columns of
		// the entity.
		Mixin() []Mixin
		// Config returns optional table configuration.
		Config() Config
	}

	// Mixin is a reusable set of columns shared by entity declarations.
	Mixin interface {
		Fields() []Field
	}

	// Field is implemented by the column builders of the field package.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Config holds the table options of an entity.
	Config struct {
		// Table overrides the default snake_case table name.
		Table string
	}

	// Schema is the default implementation of Interface and is meant to
	// be embedded by entity declarations.
	Schema struct{}
)

// Type implements Interface.
func (Schema) Type() {}

// Fields of the schema.
func (Schema) Fields() []Field { return nil }

// Mixin of the schema.
func (Schema) Mixin() []Mixin { return nil }

// Config of the schema.
func (Schema) Config() Config { return Config{} }

var _ Interface = (*Schema)(nil)
