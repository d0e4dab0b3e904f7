package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
)

// Update writes the changed columns of a loaded instance to its row,
// identified by primary key.
type Update struct {
	inst *entity.Instance
	// before and after hold the changed columns around Execute.
	before, after map[string]any
	key           any
}

// NewUpdate returns the update of the changed columns of inst.
func NewUpdate(inst *entity.Instance) *Update {
	return &Update{inst: inst}
}

// Kind implements Action.
func (*Update) Kind() Kind { return KindUpdate }

// Table implements Action.
func (a *Update) Table() string { return a.inst.TableName() }

// Instance returns the updated instance.
func (a *Update) Instance() *entity.Instance { return a.inst }

// changes returns the values of the changed columns before and after the
// update, and the primary key value identifying the row.
func (a *Update) changes() (before, after map[string]any, key any, err error) {
	if err := a.inst.Err(); err != nil {
		return nil, nil, nil, err
	}
	pk := a.inst.Descriptor().PrimaryKey()
	if pk == nil {
		return nil, nil, nil, &dbgraph.UndefinedPrimaryKeyError{Table: a.Table()}
	}
	key, loaded := a.inst.Original(pk.Name)
	if !loaded {
		key, _ = a.inst.Value(pk.Name)
	}
	if key == nil {
		return nil, nil, nil, unsupported("update", "the primary key of "+a.Table()+" has no value")
	}
	before, after = make(map[string]any), make(map[string]any)
	for _, c := range a.inst.ChangedColumns() {
		before[c.Name], _ = a.inst.Original(c.Name)
		after[c.Name], _ = a.inst.Value(c.Name)
	}
	return before, after, key, nil
}

// SQL implements Action. Instances without changes produce no statement.
func (a *Update) SQL(d dialect.Definition) ([]string, error) {
	_, after, key, err := a.changes()
	if err != nil {
		return nil, err
	}
	return a.statements(d, after, key), nil
}

func (a *Update) statements(d dialect.Definition, after map[string]any, key any) []string {
	if len(after) == 0 {
		return nil
	}
	var sets []string
	for _, c := range a.inst.Descriptor().Columns() {
		if v, ok := after[c.Name]; ok {
			sets = append(sets, columnName(d, c.Name)+" = "+literal(d, v))
		}
	}
	pk := a.inst.Descriptor().PrimaryKey()
	return []string{fmt.Sprintf("UPDATE %s SET %s%s", tableName(d, a.Table()), strings.Join(sets, ", "),
		where(d, []expr.Expr{expr.EQ(a.inst.C(pk.Name), expr.Value(key))}))}
}

// Execute implements Action. The instance is marked as loaded with its new
// values.
func (a *Update) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
	cfg, err := newConfig(ctx, drv, a, opts)
	if err != nil {
		return nil, err
	}
	before, after, key, err := a.changes()
	if err != nil {
		return nil, err
	}
	if _, err := cfg.exec(ctx, drv, a.statements(cfg.d, after, key)...); err != nil {
		return nil, err
	}
	a.inst.Load(a.inst.Values())
	return NewList(&Update{inst: a.inst, before: before, after: after, key: key}), nil
}

// Revert implements Action. The changed columns are written back with the
// values they had before the update.
func (a *Update) Revert() (*List, error) {
	before, after := a.before, a.after
	if before == nil {
		var err error
		if before, after, _, err = a.changes(); err != nil {
			return nil, err
		}
	}
	undo := a.inst.Descriptor().NewInstance()
	values := a.inst.Values()
	for k, v := range after {
		values[k] = v
	}
	undo.Load(values)
	for k, v := range before {
		undo.Set(k, v)
	}
	return NewList(NewUpdate(undo)), nil
}
