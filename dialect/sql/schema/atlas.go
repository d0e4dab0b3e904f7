package schema

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	aschema "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/schema/field"
)

// planners holds the atlas planners of the dialects atlas supports. The
// other dialects render their statements from the type mapping of their
// definition.
var planners = map[string]migrate.PlanApplier{
	dialect.SQLite:   sqlite.DefaultPlan,
	dialect.Postgres: postgres.DefaultPlan,
	dialect.MySQL:    mysql.DefaultPlan,
}

// Plan returns the statements creating tables in d, in the order of
// tables. Referenced tables must precede the tables referencing them.
func Plan(ctx context.Context, d dialect.Definition, tables ...*Table) ([]string, error) {
	pl, ok := planners[d.Name()]
	if !ok {
		stmts := make([]string, 0, len(tables))
		for _, t := range tables {
			stmt, err := createSQL(d, t)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
		return stmts, nil
	}
	at, err := toAtlas(d, tables)
	if err != nil {
		return nil, err
	}
	changes := make([]aschema.Change, len(at))
	for i, t := range at {
		changes[i] = &aschema.AddTable{T: t}
	}
	plan, err := pl.PlanChanges(ctx, "create", changes)
	if err != nil {
		return nil, fmt.Errorf("dbgraph: planning tables: %w", err)
	}
	stmts := make([]string, len(plan.Changes))
	for i, c := range plan.Changes {
		stmts[i] = c.Cmd
	}
	return stmts, nil
}

// toAtlas converts tables to their atlas representation. Tables outside
// the list that are referenced by foreign keys are converted as well, but
// are not returned.
func toAtlas(d dialect.Definition, tables []*Table) ([]*aschema.Table, error) {
	var (
		out    = make([]*aschema.Table, 0, len(tables))
		byName = make(map[string]*aschema.Table)
	)
	convert := func(t *Table) (*aschema.Table, error) {
		if at, ok := byName[t.Name]; ok {
			return at, nil
		}
		at := aschema.NewTable(t.Name)
		for _, c := range t.Columns {
			ac, err := atlasColumn(d, t, c)
			if err != nil {
				return nil, err
			}
			at.AddColumns(ac)
		}
		if len(t.PrimaryKey) > 0 {
			at.SetPrimaryKey(aschema.NewPrimaryKey(atlasColumns(at, t.PrimaryKey)...))
		}
		byName[t.Name] = at
		return at, nil
	}
	for _, t := range tables {
		at, err := convert(t)
		if err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	for i, t := range tables {
		for _, fk := range t.ForeignKeys {
			ref, err := convert(fk.RefTable)
			if err != nil {
				return nil, err
			}
			out[i].AddForeignKeys(aschema.NewForeignKey(fk.Symbol).
				AddColumns(atlasColumns(out[i], fk.Columns)...).
				SetRefTable(ref).
				AddRefColumns(atlasColumns(ref, fk.RefColumns)...))
		}
	}
	return out, nil
}

func atlasColumns(t *aschema.Table, cs []*Column) []*aschema.Column {
	out := make([]*aschema.Column, 0, len(cs))
	for _, c := range cs {
		if ac, ok := t.Column(c.Name); ok {
			out = append(out, ac)
		}
	}
	return out
}

func atlasColumn(d dialect.Definition, t *Table, c *Column) (*aschema.Column, error) {
	typ := c.TypeFor(d)
	if typ == "" {
		return nil, fmt.Errorf("dbgraph: column %s.%s: no %s type for %s", t.Name, c.Name, d.Name(), c.Type)
	}
	var ct aschema.Type
	switch c.Type {
	case field.TypeBool:
		ct = &aschema.BoolType{T: typ}
	case field.TypeInt, field.TypeInt32, field.TypeInt64:
		ct = &aschema.IntegerType{T: typ}
	case field.TypeFloat64:
		ct = &aschema.FloatType{T: typ}
	case field.TypeString, field.TypeText:
		ct = &aschema.StringType{T: typ}
	case field.TypeTime:
		ct = &aschema.TimeType{T: typ}
	case field.TypeBytes:
		ct = &aschema.BinaryType{T: typ}
	default:
		ct = &aschema.UnsupportedType{T: typ}
	}
	ac := &aschema.Column{Name: c.Name, Type: &aschema.ColumnType{Type: ct, Raw: typ, Null: c.Nullable}}
	if !c.Increment {
		return ac, nil
	}
	switch d.Name() {
	case dialect.SQLite:
		ac.AddAttrs(&sqlite.AutoIncrement{})
	case dialect.MySQL:
		ac.AddAttrs(&mysql.AutoIncrement{})
	case dialect.Postgres:
		serial := postgres.TypeBigSerial
		if c.Type != field.TypeInt64 {
			serial = postgres.TypeSerial
		}
		ac.Type.Type = &postgres.SerialType{T: serial}
	}
	return ac, nil
}

// Inspect reads the tables named names from the database behind db. Tables
// that do not exist are left out of the result.
func Inspect(ctx context.Context, d dialect.Definition, db *stdsql.DB, names ...string) ([]*Table, error) {
	var (
		drv migrate.Driver
		err error
	)
	switch d.Name() {
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	default:
		return nil, fmt.Errorf("dbgraph: inspecting %s: %w", d.Name(), errNoInspector)
	}
	if err != nil {
		return nil, fmt.Errorf("dbgraph: opening %s inspector: %w", d.Name(), err)
	}
	s, err := drv.InspectSchema(ctx, "", &aschema.InspectOptions{Tables: names})
	if err != nil {
		return nil, fmt.Errorf("dbgraph: inspecting schema: %w", err)
	}
	tables := make([]*Table, 0, len(s.Tables))
	byName := make(map[string]*Table, len(s.Tables))
	for _, at := range s.Tables {
		t := fromAtlas(at)
		tables = append(tables, t)
		byName[t.Name] = t
	}
	for i, at := range s.Tables {
		for _, fk := range at.ForeignKeys {
			ref, ok := byName[fk.RefTable.Name]
			if !ok {
				ref = fromAtlas(fk.RefTable)
			}
			tables[i].AddForeignKey(&ForeignKey{
				Symbol:     fk.Symbol,
				Columns:    lookup(tables[i], fk.Columns),
				RefTable:   ref,
				RefColumns: lookup(ref, fk.RefColumns),
			})
		}
	}
	return tables, nil
}

var errNoInspector = errors.New("no schema inspector for dialect")

func fromAtlas(at *aschema.Table) *Table {
	t := NewTable(at.Name)
	for _, ac := range at.Columns {
		c := &Column{Name: ac.Name}
		if ac.Type != nil {
			c.Nullable = ac.Type.Null
			c.Type, c.Size = fieldType(ac.Type.Type)
		}
		if lit, ok := ac.Default.(*aschema.Literal); ok {
			c.Default = lit.V
		}
		t.AddColumns(c)
	}
	if at.PrimaryKey != nil {
		for _, p := range at.PrimaryKey.Parts {
			if p.C == nil {
				continue
			}
			if c, ok := t.Column(p.C.Name); ok {
				t.PrimaryKey = append(t.PrimaryKey, c)
			}
		}
	}
	for _, idx := range at.Indexes {
		var names []string
		for _, p := range idx.Parts {
			if p.C != nil {
				names = append(names, p.C.Name)
			}
		}
		if idx.Unique && len(names) == 1 {
			if c, ok := t.Column(names[0]); ok {
				c.Unique = true
			}
		}
		t.AddIndex(idx.Name, idx.Unique, names)
	}
	return t
}

func lookup(t *Table, acs []*aschema.Column) []*Column {
	out := make([]*Column, 0, len(acs))
	for _, ac := range acs {
		if c, ok := t.Column(ac.Name); ok {
			out = append(out, c)
		}
	}
	return out
}

func fieldType(t aschema.Type) (field.Type, int) {
	switch t := t.(type) {
	case *aschema.BoolType:
		return field.TypeBool, 0
	case *aschema.IntegerType:
		return field.TypeInt64, 0
	case *postgres.SerialType:
		return field.TypeInt64, 0
	case *aschema.FloatType, *aschema.DecimalType:
		return field.TypeFloat64, 0
	case *aschema.StringType:
		if strings.Contains(strings.ToLower(t.T), "text") {
			return field.TypeText, t.Size
		}
		return field.TypeString, t.Size
	case *aschema.TimeType:
		return field.TypeTime, 0
	case *aschema.BinaryType:
		return field.TypeBytes, 0
	default:
		return field.TypeOther, 0
	}
}
