// Package migrate copies rows between entities. A migration selects rows
// of source instances and maps them into a target entity through the
// expression columns of the target:
//
//	baddy := entity.MustNew(Villain{}).Where("name", operator.Like("Dr %"))
//	pro := entity.MustNew(Professional{}).
//		SetExpressionColumn("title", expr.SubstringBefore(baddy.C("name"), expr.Value(" "))).
//		SetExpressionColumn("surname", expr.SubstringAfter(baddy.C("name"), expr.Value(" ")))
//	n, err := migrate.New(pro, baddy).MigrateAllRows(ctx, drv)
package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/dbgraph/action"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/query"
)

// ErrNoMappedColumns is returned for targets without expression columns
// named after their declared columns.
var ErrNoMappedColumns = errors.New("dbgraph: migration target maps no column")

// Migration maps the rows of source instances into a target entity.
type Migration struct {
	target   *entity.Instance
	sources  []*entity.Instance
	optional []*entity.Instance
	opts     []query.Option
}

// Option configures a Migration.
type Option func(*Migration)

// WithOptional adds source instances joined with LEFT OUTER JOIN.
func WithOptional(instances ...*entity.Instance) Option {
	return func(m *Migration) { m.optional = append(m.optional, instances...) }
}

// WithQueryOptions configures the query selecting the source rows, for
// example to allow blank or cartesian queries.
func WithQueryOptions(opts ...query.Option) Option {
	return func(m *Migration) { m.opts = append(m.opts, opts...) }
}

// New returns the migration of the rows of sources into target.
func New(target *entity.Instance, sources ...*entity.Instance) *Migration {
	return &Migration{target: target, sources: sources}
}

// Options applies opts to the migration.
func (m *Migration) Options(opts ...Option) *Migration {
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Target returns the target instance.
func (m *Migration) Target() *entity.Instance { return m.target }

// Columns returns the target columns filled by the migration, in column
// order.
func (m *Migration) Columns() ([]string, error) {
	sel, err := m.selected()
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(sel))
	for i, s := range sel {
		cols[i] = s.Alias
	}
	return cols, nil
}

func (m *Migration) selected() ([]query.Selected, error) {
	if err := m.target.Err(); err != nil {
		return nil, err
	}
	exprs := make(map[string]entity.ExpressionColumn)
	for _, ec := range m.target.ExpressionColumns() {
		exprs[ec.Name] = ec
	}
	var sel []query.Selected
	for _, c := range m.target.Descriptor().Columns() {
		if ec, ok := exprs[c.Name]; ok {
			sel = append(sel, query.Selected{Alias: c.Name, Expr: ec.Expr})
		}
	}
	if len(sel) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMappedColumns, m.target.TableName())
	}
	return sel, nil
}

// Query returns the query selecting the mapped values of the source rows.
func (m *Migration) Query(d dialect.Definition) (*query.Query, error) {
	sel, err := m.selected()
	if err != nil {
		return nil, err
	}
	opts := append([]query.Option{query.WithSelectOnly(sel...)}, m.opts...)
	return query.New(d, opts...).Add(m.sources...).AddOptional(m.optional...), nil
}

// SQLForQuery returns the SELECT statement of the migration.
func (m *Migration) SQLForQuery(d dialect.Definition) (string, error) {
	q, err := m.Query(d)
	if err != nil {
		return "", err
	}
	return q.SQL()
}

// AllRows returns the target instances the migration would insert, without
// writing them.
func (m *Migration) AllRows(ctx context.Context, drv dialect.Driver) ([]*entity.Instance, error) {
	d, err := dialect.Lookup(drv.Dialect())
	if err != nil {
		return nil, err
	}
	q, err := m.Query(d)
	if err != nil {
		return nil, err
	}
	rows, err := q.All(ctx, drv)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Instance, len(rows))
	for i, r := range rows {
		out[i] = r.Into(m.target)
	}
	return out, nil
}

// Action returns the INSERT ... SELECT of the migration.
func (m *Migration) Action() (*action.Migrate, error) {
	cols, err := m.Columns()
	if err != nil {
		return nil, err
	}
	return action.NewMigrate(m.target, cols, m.SQLForQuery), nil
}

// MigrateAllRows inserts the mapped rows into the target table and returns
// their number.
func (m *Migration) MigrateAllRows(ctx context.Context, drv dialect.Driver, opts ...action.Option) (int64, error) {
	a, err := m.Action()
	if err != nil {
		return 0, err
	}
	done, err := a.Execute(ctx, drv, opts...)
	if err != nil {
		return 0, err
	}
	return done.Actions()[0].(*action.Migrate).RowsAffected(), nil
}

// ValidateAllRows runs the migration in a transaction that is rolled back
// and returns the number of rows it would insert. See action.Validate for
// the limits of the emulation.
func (m *Migration) ValidateAllRows(ctx context.Context, drv dialect.Driver, opts ...action.Option) (int64, error) {
	a, err := m.Action()
	if err != nil {
		return 0, err
	}
	done, err := action.NewValidate(a).Execute(ctx, drv, opts...)
	if err != nil {
		return 0, err
	}
	return done.Actions()[0].(*action.Validate).RowsAffected(), nil
}
