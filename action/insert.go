package action

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/operator"
)

// Insert inserts the values of an instance as a new row.
type Insert struct {
	inst *entity.Instance
	// values inserted by Execute, generated key included.
	values map[string]any
}

// NewInsert returns the insert of the values set on inst.
func NewInsert(inst *entity.Instance) *Insert {
	return &Insert{inst: inst}
}

// Kind implements Action.
func (*Insert) Kind() Kind { return KindInsert }

// Table implements Action.
func (a *Insert) Table() string { return a.inst.TableName() }

// Instance returns the inserted instance.
func (a *Insert) Instance() *entity.Instance { return a.inst }

// SQL implements Action. Auto-increment columns without value are left to
// the database.
func (a *Insert) SQL(d dialect.Definition) ([]string, error) {
	if err := a.inst.Err(); err != nil {
		return nil, err
	}
	var (
		cols, vals []string
		values     = a.inst.Values()
	)
	for _, c := range a.inst.Descriptor().Columns() {
		v, ok := values[c.Name]
		if !ok || (v == nil && c.IsAutoIncrement()) {
			continue
		}
		cols = append(cols, columnName(d, c.Name))
		vals = append(vals, literal(d, v))
	}
	if len(cols) == 0 {
		return []string{"INSERT INTO " + tableName(d, a.Table()) + " DEFAULT VALUES"}, nil
	}
	return []string{fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName(d, a.Table()), strings.Join(cols, ", "), strings.Join(vals, ", "))}, nil
}

// Execute implements Action. The key generated for an auto-increment
// primary key is set on the instance when the driver reports it, and the
// instance is marked as loaded.
func (a *Insert) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
	cfg, err := newConfig(ctx, drv, a, opts)
	if err != nil {
		return nil, err
	}
	stmts, err := a.SQL(cfg.d)
	if err != nil {
		return nil, err
	}
	res, err := cfg.exec(ctx, drv, stmts...)
	if err != nil {
		return nil, err
	}
	pk := a.inst.Descriptor().PrimaryKey()
	if pk != nil && pk.IsAutoIncrement() && cfg.d.Capabilities().Has(dialect.SupportsLastInsertID) {
		if v, _ := a.inst.Value(pk.Name); v == nil {
			id, err := res[0].LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("dbgraph: reading generated key of %s: %w", a.Table(), err)
			}
			if err := a.inst.SetPrimaryKey(keyOf(pk, id)); err != nil {
				return nil, err
			}
		}
	}
	a.inst.Load(a.inst.Values())
	return NewList(&Insert{inst: a.inst, values: a.inst.Values()}), nil
}

// Revert implements Action. The inserted row is deleted by its primary key,
// or by all its values when the key is unknown.
func (a *Insert) Revert() (*List, error) {
	values := a.values
	if values == nil {
		values = a.inst.Values()
	}
	desc := a.inst.Descriptor()
	match := desc.NewInstance()
	if pk := desc.PrimaryKey(); pk != nil && values[pk.Name] != nil {
		match.Where(pk.Name, operator.Equals(values[pk.Name]))
		return NewList(NewDelete(match)), nil
	}
	for _, c := range desc.Columns() {
		v, ok := values[c.Name]
		switch {
		case !ok || c.Type().LOB():
		case v == nil:
			match.Where(c.Name, operator.IsNull())
		default:
			match.Where(c.Name, operator.Equals(v))
		}
	}
	if !match.HasCriteria() {
		return nil, unsupported("revert insert", "no value identifies the row of "+a.Table())
	}
	return NewList(NewDelete(match)), nil
}

// keyOf converts a generated key to the Go type of the key column.
func keyOf(pk *entity.Column, id int64) any {
	v := reflect.ValueOf(id)
	if t := pk.GoType(); t != nil && v.CanConvert(t) {
		return v.Convert(t).Interface()
	}
	return id
}

func tableName(d dialect.Definition, name string) string {
	return d.QuoteIdentifier(d.FormatTableName(name))
}

func columnName(d dialect.Definition, name string) string {
	return d.QuoteIdentifier(d.FormatColumnName(name))
}

func literal(d dialect.Definition, v any) string {
	return expr.ToSQL(expr.Value(v), d)
}

// where renders conds joined by AND, qualified by table name.
func where(d dialect.Definition, conds []expr.Expr) string {
	if len(conds) == 0 {
		return ""
	}
	r := expr.NewRenderer(d)
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.SQL(r)
	}
	return " WHERE (" + strings.Join(parts, " AND ") + ")"
}
