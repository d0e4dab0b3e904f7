package action

import (
	"context"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/operator"
	"github.com/syssam/dbgraph/query"
)

// Delete removes the row of an instance, identified by its primary key
// value, or the rows matching the criteria of the instance.
type Delete struct {
	inst  *entity.Instance
	blank bool
	// deleted holds the rows removed by Execute.
	deleted []*entity.Instance
	ran     bool
}

// NewDelete returns the delete of the rows of inst.
func NewDelete(inst *entity.Instance) *Delete {
	return &Delete{inst: inst}
}

// AllowBlank permits deleting every row of the table when the instance
// has neither key value nor criteria.
func (a *Delete) AllowBlank() *Delete {
	a.blank = true
	return a
}

// Kind implements Action.
func (*Delete) Kind() Kind { return KindDelete }

// Table implements Action.
func (a *Delete) Table() string { return a.inst.TableName() }

// Instance returns the deleted instance.
func (a *Delete) Instance() *entity.Instance { return a.inst }

// match returns the instance selecting the deleted rows.
func (a *Delete) match() (*entity.Instance, error) {
	if err := a.inst.Err(); err != nil {
		return nil, err
	}
	if pk := a.inst.Descriptor().PrimaryKey(); pk != nil {
		if v, _ := a.inst.Value(pk.Name); v != nil {
			m := a.inst.Descriptor().NewInstance()
			m.Where(pk.Name, operator.Equals(v))
			return m, nil
		}
	}
	if !a.inst.HasCriteria() && !a.blank {
		return nil, &dbgraph.AccidentalBlankQueryError{Tables: []string{a.Table()}}
	}
	return a.inst, nil
}

// SQL implements Action.
func (a *Delete) SQL(d dialect.Definition) ([]string, error) {
	m, err := a.match()
	if err != nil {
		return nil, err
	}
	return []string{a.statement(d, m.Criteria())}, nil
}

func (a *Delete) statement(d dialect.Definition, conds []expr.Expr) string {
	return "DELETE FROM " + tableName(d, a.Table()) + where(d, conds)
}

// Execute implements Action. The rows are read before they are deleted so
// the delete can be reverted.
func (a *Delete) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
	cfg, err := newConfig(ctx, drv, a, opts)
	if err != nil {
		return nil, err
	}
	m, err := a.match()
	if err != nil {
		return nil, err
	}
	example := m.Copy()
	var qopts []query.Option
	if a.blank {
		qopts = append(qopts, query.WithBlankQueryAllowed())
	}
	rows, err := query.New(cfg.d, qopts...).Add(example).InstancesOf(ctx, drv, example)
	if err != nil {
		return nil, err
	}
	if _, err := cfg.exec(ctx, drv, a.statement(cfg.d, m.Criteria())); err != nil {
		return nil, err
	}
	return NewList(&Delete{inst: a.inst, blank: a.blank, deleted: rows, ran: true}), nil
}

// Deleted returns the rows removed by the action.
func (a *Delete) Deleted() []*entity.Instance {
	return a.deleted
}

// Revert implements Action. The deleted rows are inserted again.
func (a *Delete) Revert() (*List, error) {
	if !a.ran {
		return nil, unsupported("revert delete", "the rows of "+a.Table()+" are known once deleted")
	}
	undo := NewList()
	for _, row := range a.deleted {
		undo.Add(NewInsert(row))
	}
	return undo, nil
}
