package action

import (
	"context"
	"fmt"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql/schema"
	"github.com/syssam/dbgraph/entity"
)

// CreateTable creates the table of an entity.
type CreateTable struct {
	inst *entity.Instance
}

// NewCreateTable returns the creation of the table of the entity of inst.
func NewCreateTable(inst *entity.Instance) *CreateTable {
	return &CreateTable{inst: inst}
}

// Kind implements Action.
func (*CreateTable) Kind() Kind { return KindCreateTable }

// Table implements Action.
func (a *CreateTable) Table() string { return a.inst.TableName() }

// SQL implements Action.
func (a *CreateTable) SQL(d dialect.Definition) ([]string, error) {
	return a.plan(context.Background(), d)
}

func (a *CreateTable) plan(ctx context.Context, d dialect.Definition) ([]string, error) {
	tables, err := schema.Tables(a.inst.Descriptor())
	if err != nil {
		return nil, err
	}
	if err := schema.Lint(tables).Err(); err != nil {
		return nil, fmt.Errorf("dbgraph: create table %s: %w", a.Table(), err)
	}
	return schema.Plan(ctx, d, tables...)
}

// Execute implements Action.
func (a *CreateTable) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
	cfg, err := newConfig(ctx, drv, a, opts)
	if err != nil {
		return nil, err
	}
	stmts, err := a.plan(ctx, cfg.d)
	if err != nil {
		return nil, err
	}
	if _, err := cfg.exec(ctx, drv, stmts...); err != nil {
		return nil, err
	}
	return NewList(a), nil
}

// Revert implements Action. The table is dropped.
func (a *CreateTable) Revert() (*List, error) {
	return NewList(NewDropTable(a.inst)), nil
}

// DropTable drops the table of an entity.
type DropTable struct {
	inst *entity.Instance
}

// NewDropTable returns the drop of the table of the entity of inst.
func NewDropTable(inst *entity.Instance) *DropTable {
	return &DropTable{inst: inst}
}

// Kind implements Action.
func (*DropTable) Kind() Kind { return KindDropTable }

// Table implements Action.
func (a *DropTable) Table() string { return a.inst.TableName() }

// SQL implements Action.
func (a *DropTable) SQL(d dialect.Definition) ([]string, error) {
	return []string{schema.DropSQL(d, schema.NewTable(a.Table()))}, nil
}

// Execute implements Action.
func (a *DropTable) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
	cfg, err := newConfig(ctx, drv, a, opts)
	if err != nil {
		return nil, err
	}
	stmts, _ := a.SQL(cfg.d)
	if _, err := cfg.exec(ctx, drv, stmts...); err != nil {
		return nil, err
	}
	return NewList(a), nil
}

// Revert implements Action. Dropped rows are lost, the drop cannot be
// reverted.
func (a *DropTable) Revert() (*List, error) {
	return nil, unsupported("revert drop table", "the rows of "+a.Table()+" are lost")
}
