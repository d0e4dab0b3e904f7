package schema

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/schema/field"
)

// Severity of a Difference.
type Severity uint8

const (
	// Warning differences may lose data or surprise readers.
	Warning Severity = iota + 1
	// Breaking differences make the statements of the entity fail.
	Breaking
)

func (s Severity) String() string {
	if s == Breaking {
		return "breaking"
	}
	return "warning"
}

// Difference is a mismatch between the table of an entity and a table,
// either the one found in the database or the declared one itself.
type Difference struct {
	Table    string
	Column   string
	Message  string
	Severity Severity
}

func (d Difference) Error() string {
	if d.Column != "" {
		return fmt.Sprintf("%s.%s: %s", d.Table, d.Column, d.Message)
	}
	return d.Table + ": " + d.Message
}

// Report lists the differences found by Diff, Lint or Check.
type Report []Difference

// Breaking returns the breaking differences of r.
func (r Report) Breaking() Report {
	var b Report
	for _, d := range r {
		if d.Severity == Breaking {
			b = append(b, d)
		}
	}
	return b
}

// Err joins the breaking differences of r, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r))
	for _, d := range r.Breaking() {
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}

func (r Report) String() string {
	if len(r) == 0 {
		return "no differences"
	}
	var b strings.Builder
	for i, d := range r {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", d.Severity, d.Error())
	}
	return b.String()
}

func (r *Report) add(sev Severity, table, column, format string, args ...any) {
	*r = append(*r, Difference{Table: table, Column: column, Message: fmt.Sprintf(format, args...), Severity: sev})
}

// DiffOption configures Diff and Check.
type DiffOption func(*diffConfig)

type diffConfig struct {
	undeclared  bool
	nullability bool
}

// IgnoreUndeclaredColumns skips the database columns no entity declares,
// except NOT NULL columns without default, which make inserts fail.
func IgnoreUndeclaredColumns() DiffOption {
	return func(c *diffConfig) { c.undeclared = true }
}

// IgnoreNullability skips nullability mismatches.
func IgnoreNullability() DiffOption {
	return func(c *diffConfig) { c.nullability = true }
}

// Diff compares the tables found in the database, current, with the tables
// of the entities, desired. Tables of desired missing from current are
// breaking differences.
//
//	tables, _ := schema.Tables(descs...)
//	current, _ := schema.Inspect(ctx, d, db, "marque")
//	if err := schema.Diff(current, tables).Err(); err != nil {
//		return err
//	}
func Diff(current, desired []*Table, opts ...DiffOption) Report {
	cfg := &diffConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	found := make(map[string]*Table, len(current))
	for _, t := range current {
		found[t.Name] = t
	}
	var r Report
	for _, t := range desired {
		db, ok := found[t.Name]
		if !ok {
			r.add(Breaking, t.Name, "", "table does not exist")
			continue
		}
		diffTable(&r, db, t, cfg)
	}
	return r
}

func diffTable(r *Report, db, t *Table, cfg *diffConfig) {
	for _, c := range t.Columns {
		dc, ok := db.Column(c.Name)
		switch {
		case !ok:
			r.add(Breaking, t.Name, c.Name, "column does not exist")
			continue
		case dc.Type != field.TypeOther && !compatible(dc.Type, c.Type):
			r.add(Breaking, t.Name, c.Name, "declared as %s, database column is %s", c.Type, dc.Type)
		}
		if !cfg.nullability {
			switch {
			case dc.Nullable && !c.Nullable:
				r.add(Warning, t.Name, c.Name, "database column allows NULL, declared NOT NULL")
			case !dc.Nullable && c.Nullable && !c.Increment:
				r.add(Warning, t.Name, c.Name, "declared nullable, database column is NOT NULL")
			}
		}
		if dc.Size > 0 && c.Size > dc.Size {
			r.add(Warning, t.Name, c.Name, "declared size %d exceeds database size %d", c.Size, dc.Size)
		}
	}
	for _, dc := range db.Columns {
		if _, ok := t.Column(dc.Name); ok {
			continue
		}
		switch {
		case !dc.Nullable && dc.Default == nil && !dc.Increment && !isKey(db, dc):
			r.add(Breaking, t.Name, dc.Name, "undeclared NOT NULL column without default fails inserts")
		case !cfg.undeclared:
			r.add(Warning, t.Name, dc.Name, "column is not declared")
		}
	}
}

func isKey(t *Table, c *Column) bool {
	for _, pk := range t.PrimaryKey {
		if pk == c {
			return true
		}
	}
	return false
}

// Lint checks the tables of a set of entities before they are created.
func Lint(tables []*Table) Report {
	var (
		r     Report
		names = make(map[string]bool, len(tables))
	)
	for _, t := range tables {
		if names[t.Name] {
			r.add(Breaking, t.Name, "", "duplicate table name")
		}
		names[t.Name] = true
		if len(t.PrimaryKey) == 0 {
			r.add(Warning, t.Name, "", "table has no primary key, its rows cannot be updated or referenced")
		}
		cols := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if cols[c.Name] {
				r.add(Breaking, t.Name, c.Name, "duplicate column name")
			}
			cols[c.Name] = true
			if c.Increment && !c.Type.Integer() {
				r.add(Breaking, t.Name, c.Name, "auto-increment column of type %s", c.Type)
			}
		}
		for _, fk := range t.ForeignKeys {
			for _, c := range fk.Columns {
				if c == nil || !cols[c.Name] {
					r.add(Breaking, t.Name, "", "foreign key %s references a column the table does not hold", fk.Symbol)
				}
			}
		}
	}
	return r
}

// Check inspects the tables of desired in the database behind db and
// compares them with desired.
func Check(ctx context.Context, d dialect.Definition, db *stdsql.DB, desired []*Table, opts ...DiffOption) (Report, error) {
	names := make([]string, len(desired))
	for i, t := range desired {
		names[i] = t.Name
	}
	current, err := Inspect(ctx, d, db, names...)
	if err != nil {
		return nil, err
	}
	return Diff(current, desired, opts...), nil
}

// compatible reports if values of a column of type a can be read into b.
func compatible(a, b field.Type) bool {
	switch {
	case a == b:
		return true
	case a.Integer() && b.Integer():
		return true
	case a.Stringish() && b.Stringish():
		return true
	default:
		return false
	}
}
