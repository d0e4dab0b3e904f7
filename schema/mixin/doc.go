// Package mixin provides reusable sets of columns for entity declarations.
//
// Mixins are applied to declarations via the Mixin() method. Their columns
// precede the columns of the entity, in the order of the mixins:
//
//	type Note struct{ dbgraph.Schema }
//
//	func (Note) Mixin() []dbgraph.Mixin {
//	    return []dbgraph.Mixin{
//	        mixin.ID{},
//	        mixin.TenantID{},
//	        mixin.Time{},
//	    }
//	}
//
//	func (Note) Fields() []dbgraph.Field {
//	    return []dbgraph.Field{
//	        field.Text("body"),
//	    }
//	}
//
// The note table then has the columns id, tenant_id, created_at,
// updated_at and body.
//
// Custom mixins embed Schema and override Fields:
//
//	type Audit struct{ mixin.Schema }
//
//	func (Audit) Fields() []dbgraph.Field {
//	    return []dbgraph.Field{
//	        field.String("created_by"),
//	    }
//	}
package mixin
