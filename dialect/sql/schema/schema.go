// Package schema holds the table model of the registered entities, plans the
// statements creating their tables and validates them against a database.
package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/schema/field"
)

type (
	// Table is the table of an entity.
	Table struct {
		Name        string
		Columns     []*Column
		columns     map[string]*Column
		PrimaryKey  []*Column
		ForeignKeys []*ForeignKey
		Indexes     []*Index
	}

	// Column is a table column.
	Column struct {
		Name       string
		Type       field.Type
		Size       int
		Nullable   bool
		Unique     bool
		Increment  bool
		Default    any
		SchemaType map[string]string
		Comment    string
	}

	// ForeignKey is a foreign key constraint.
	ForeignKey struct {
		Symbol     string
		Columns    []*Column
		RefTable   *Table
		RefColumns []*Column
	}

	// Index is a table index.
	Index struct {
		Name    string
		Unique  bool
		Columns []*Column
	}
)

// NewTable returns an empty table.
func NewTable(name string) *Table {
	return &Table{Name: name, columns: make(map[string]*Column)}
}

// AddColumns appends columns to the table.
func (t *Table) AddColumns(cs ...*Column) *Table {
	for _, c := range cs {
		t.Columns = append(t.Columns, c)
		if t.columns == nil {
			t.columns = make(map[string]*Column)
		}
		t.columns[c.Name] = c
	}
	return t
}

// AddPrimary sets c as the primary key of the table.
func (t *Table) AddPrimary(c *Column) *Table {
	if _, ok := t.columns[c.Name]; !ok {
		t.AddColumns(c)
	}
	t.PrimaryKey = append(t.PrimaryKey, c)
	return t
}

// AddForeignKey adds a foreign key constraint.
func (t *Table) AddForeignKey(fk *ForeignKey) *Table {
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return t
}

// AddIndex adds an index on the named columns.
func (t *Table) AddIndex(name string, unique bool, columns []string) *Table {
	idx := &Index{Name: name, Unique: unique}
	for _, c := range columns {
		idx.Columns = append(idx.Columns, t.columns[c])
	}
	t.Indexes = append(t.Indexes, idx)
	return t
}

// Column returns the column named name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// TypeFor returns the database type of the column in d. The override of
// the declaration for the dialect wins over the type mapping of d.
func (c *Column) TypeFor(d dialect.Definition) string {
	if typ, ok := c.SchemaType[d.Name()]; ok {
		return typ
	}
	return d.ColumnType(c.Type, c.Size)
}

// Tables returns the tables of descs. The foreign keys reference the table
// of the referenced entity when it is part of descs, and a table holding
// only its primary key otherwise. Foreign keys to entities without primary
// key are left out, they cannot be declared in the database.
func Tables(descs ...*entity.Descriptor) ([]*Table, error) {
	var (
		tables = make([]*Table, 0, len(descs))
		byType = make(map[reflect.Type]*Table, len(descs))
	)
	for _, d := range descs {
		t := table(d)
		tables = append(tables, t)
		byType[d.Type()] = t
	}
	for i, d := range descs {
		t := tables[i]
		for _, fk := range d.ForeignKeys() {
			ref, ok := byType[fk.References]
			if !ok {
				rd, err := entity.Default.Lookup(fk.References)
				if err != nil {
					return nil, fmt.Errorf("dbgraph: table %s: foreign key %s: %w", t.Name, fk.Column.Name, err)
				}
				ref = NewTable(rd.Table())
				if pk := rd.PrimaryKey(); pk != nil {
					ref.AddPrimary(column(pk))
				}
			}
			if len(ref.PrimaryKey) == 0 {
				continue
			}
			c, _ := t.Column(fk.Column.Name)
			t.AddForeignKey(&ForeignKey{
				Symbol:     t.Name + "_" + fk.Column.Name,
				Columns:    []*Column{c},
				RefTable:   ref,
				RefColumns: ref.PrimaryKey[:1],
			})
		}
	}
	return tables, nil
}

func table(d *entity.Descriptor) *Table {
	t := NewTable(d.Table())
	for _, c := range d.Columns() {
		col := column(c)
		if c.IsPrimaryKey() {
			t.AddPrimary(col)
			continue
		}
		t.AddColumns(col)
	}
	return t
}

func column(c *entity.Column) *Column {
	return &Column{
		Name:       c.Name,
		Type:       c.Type(),
		Size:       c.Desc.Size,
		Nullable:   c.Desc.Nillable,
		Increment:  c.IsAutoIncrement(),
		SchemaType: c.Desc.SchemaType,
		Comment:    c.Desc.Comment,
	}
}
