package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
)

// Selector renders the SELECT statement feeding an INSERT ... SELECT.
type Selector func(d dialect.Definition) (string, error)

// Migrate inserts the rows of a SELECT statement into the table of an
// entity.
type Migrate struct {
	target  *entity.Instance
	columns []string
	sel     Selector
	rows    int64
}

// NewMigrate returns the INSERT ... SELECT filling columns of the table of
// target with the rows rendered by sel.
func NewMigrate(target *entity.Instance, columns []string, sel Selector) *Migrate {
	return &Migrate{target: target, columns: columns, sel: sel}
}

// Kind implements Action.
func (*Migrate) Kind() Kind { return KindMigrate }

// Table implements Action.
func (a *Migrate) Table() string { return a.target.TableName() }

// SQL implements Action.
func (a *Migrate) SQL(d dialect.Definition) ([]string, error) {
	sel, err := a.sel(d)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(a.columns))
	for i, c := range a.columns {
		cols[i] = columnName(d, c)
	}
	return []string{fmt.Sprintf("INSERT INTO %s (%s) %s", tableName(d, a.Table()), strings.Join(cols, ", "), sel)}, nil
}

// Execute implements Action.
func (a *Migrate) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
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
	n, err := res[0].RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("dbgraph: reading migrated rows of %s: %w", a.Table(), err)
	}
	return NewList(&Migrate{target: a.target, columns: a.columns, sel: a.sel, rows: n}), nil
}

// RowsAffected returns the number of rows inserted by Execute.
func (a *Migrate) RowsAffected() int64 { return a.rows }

// Revert implements Action. Migrated rows cannot be told apart from the
// rows the table held before.
func (a *Migrate) Revert() (*List, error) {
	return nil, unsupported("revert migrate", "the migrated rows of "+a.Table()+" are not identified")
}

// Validate runs the INSERT ... SELECT of a migration inside a transaction,
// reads the number of affected rows and rolls the transaction back. It is
// an emulation of a dry run: triggers and sequences of the database still
// observe the statement.
type Validate struct {
	m    *Migrate
	rows int64
}

// NewValidate returns the validation of m.
func NewValidate(m *Migrate) *Validate {
	return &Validate{m: m}
}

// Kind implements Action.
func (*Validate) Kind() Kind { return KindValidate }

// Table implements Action.
func (a *Validate) Table() string { return a.m.Table() }

// SQL implements Action.
func (a *Validate) SQL(d dialect.Definition) ([]string, error) {
	return a.m.SQL(d)
}

// Execute implements Action. Dialects without transactions fail with
// dbgraph.UnsupportedOperationError.
func (a *Validate) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (_ *List, rerr error) {
	cfg, err := newConfig(ctx, drv, a, opts)
	if err != nil {
		return nil, err
	}
	if !cfg.d.Capabilities().Has(dialect.SupportsTransactions) {
		return nil, unsupported("validate", cfg.d.Name()+" cannot roll back the migration")
	}
	stmts, err := a.SQL(cfg.d)
	if err != nil {
		return nil, err
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbgraph: starting validation of %s: %w", a.Table(), err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && rerr == nil {
			rerr = fmt.Errorf("dbgraph: rolling back validation of %s: %w", a.Table(), err)
		}
	}()
	res, err := cfg.exec(ctx, tx, stmts...)
	if err != nil {
		return nil, err
	}
	n, err := res[0].RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("dbgraph: reading validated rows of %s: %w", a.Table(), err)
	}
	return NewList(&Validate{m: a.m, rows: n}), nil
}

// RowsAffected returns the number of rows the migration would insert.
func (a *Validate) RowsAffected() int64 { return a.rows }

// Revert implements Action. Validation leaves the database unchanged.
func (a *Validate) Revert() (*List, error) {
	return nil, unsupported("revert validate", "validation leaves "+a.Table()+" unchanged")
}
