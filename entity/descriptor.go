// Package entity compiles entity declarations into descriptors and holds
// the instances that queries are built from.
//
// A Descriptor is the static metadata of a declared type: its table, its
// columns, its primary key and its foreign keys. Descriptors are computed
// once per type and shared. An Instance is a query template owned by the
// caller: criteria and values per column, ignored foreign keys, ad-hoc
// relationships and computed columns.
package entity

import (
	"fmt"
	"reflect"

	"github.com/go-openapi/inflect"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/schema/field"
)

// Descriptor is the immutable metadata of an entity type.
type Descriptor struct {
	typ        reflect.Type
	name       string
	table      string
	columns    []*Column
	byName     map[string]*Column
	pk         *Column
	fks        []*ForeignKey
	referenced []reflect.Type
	lobs       []*Column
}

// Column is a column of an entity.
type Column struct {
	Name  string
	Desc  *field.Descriptor
	index int
	owner *Descriptor
}

// ForeignKey is a column referencing the primary key of another entity.
type ForeignKey struct {
	Column     *Column
	References reflect.Type
}

// Type returns the Go type of the declaration.
func (d *Descriptor) Type() reflect.Type { return d.typ }

// Name returns the canonical type name, "pkgpath.Name".
func (d *Descriptor) Name() string { return d.name }

// Table returns the table name.
func (d *Descriptor) Table() string { return d.table }

// Columns returns the columns in declaration order.
func (d *Descriptor) Columns() []*Column { return d.columns }

// Column returns the column named name, or nil.
func (d *Descriptor) Column(name string) *Column { return d.byName[name] }

// PrimaryKey returns the primary key column, or nil if none is declared.
func (d *Descriptor) PrimaryKey() *Column { return d.pk }

// ForeignKeys returns the foreign keys in declaration order.
func (d *Descriptor) ForeignKeys() []*ForeignKey { return d.fks }

// ReferencedTypes returns the types referenced by foreign keys, sorted by
// canonical name. Types without a primary key are included.
func (d *Descriptor) ReferencedTypes() []reflect.Type { return d.referenced }

// LargeObjects returns the columns holding large objects.
func (d *Descriptor) LargeObjects() []*Column { return d.lobs }

// IsPrimaryKey reports if the column is the primary key.
func (c *Column) IsPrimaryKey() bool { return c.Desc.PrimaryKey }

// IsAutoIncrement reports if the column value is assigned by the database.
func (c *Column) IsAutoIncrement() bool { return c.Desc.AutoIncrement }

// IsForeignKey reports if the column references another entity.
func (c *Column) IsForeignKey() bool { return c.Desc.IsForeignKey() }

// Type returns the column type.
func (c *Column) Type() field.Type { return c.Desc.Info.Type }

// Info returns the type information of the column.
func (c *Column) Info() *field.TypeInfo { return c.Desc.Info }

// GoType returns the Go type of the column values.
func (c *Column) GoType() reflect.Type { return c.Desc.GoType() }

// Kind returns the expression kind of the column.
func (c *Column) Kind() expr.Kind { return expr.KindOf(c.Type()) }

// Index returns the position of the column in its entity.
func (c *Column) Index() int { return c.index }

// Owner returns the descriptor of the entity declaring the column.
func (c *Column) Owner() *Descriptor { return c.owner }

// TypeName returns the canonical name of t, "pkgpath.Name".
func TypeName(t reflect.Type) string {
	t = indirect(t)
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// describe compiles a declaration.
func describe(schema dbgraph.Interface) (*Descriptor, error) {
	t := indirect(reflect.TypeOf(schema))
	d := &Descriptor{
		typ:    t,
		name:   TypeName(t),
		table:  schema.Config().Table,
		byName: make(map[string]*Column),
	}
	if d.table == "" {
		d.table = inflect.Underscore(t.Name())
	}
	var fields []dbgraph.Field
	for _, m := range schema.Mixin() {
		mf, err := safeFields(m)
		if err != nil {
			return nil, &dbgraph.InvalidEntityDefinitionError{Type: d.name, Err: err}
		}
		fields = append(fields, mf...)
	}
	own, err := safeFields(schema)
	if err != nil {
		return nil, &dbgraph.InvalidEntityDefinitionError{Type: d.name, Err: err}
	}
	fields = append(fields, own...)
	refs := make(map[reflect.Type]struct{})
	for i, f := range fields {
		fd := f.Descriptor()
		invalid := func(reason string, err error) error {
			return &dbgraph.InvalidEntityDefinitionError{Type: d.name, Column: fd.Name, Reason: reason, Err: err}
		}
		switch {
		case fd.Err != nil:
			return nil, invalid("", fd.Err)
		case fd.Name == "":
			return nil, invalid(fmt.Sprintf("column %d has no name", i), nil)
		case fd.Info == nil || !fd.Info.Type.Valid():
			return nil, invalid("missing type info", nil)
		case d.byName[fd.Name] != nil:
			return nil, invalid("duplicate column name", nil)
		case fd.PrimaryKey && d.pk != nil:
			return nil, invalid(fmt.Sprintf("multiple primary keys (%s and %s)", d.pk.Name, fd.Name), nil)
		case fd.AutoIncrement && !fd.Info.Type.Integer():
			return nil, invalid(fmt.Sprintf("auto-increment column has type %s", fd.Info), dbgraph.ErrAutoIncrementTypeMismatch)
		}
		c := &Column{Name: fd.Name, Desc: fd, index: i, owner: d}
		d.columns = append(d.columns, c)
		d.byName[c.Name] = c
		if fd.PrimaryKey {
			d.pk = c
		}
		if fd.References != nil {
			d.fks = append(d.fks, &ForeignKey{Column: c, References: fd.References})
			refs[fd.References] = struct{}{}
		}
		if fd.Info.Type.LOB() {
			d.lobs = append(d.lobs, c)
		}
	}
	for rt := range refs {
		d.referenced = append(d.referenced, rt)
	}
	sortTypes(d.referenced)
	return d, nil
}

// safeFields wraps the Fields method with recover to ensure no panics in
// describing.
func safeFields(fd interface{ Fields() []dbgraph.Field }) (fields []dbgraph.Field, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%T.Fields panics: %v", fd, v)
			fields = nil
		}
	}()
	return fd.Fields(), nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
