package query

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
)

// Direction is the direction of a recursive query.
type Direction uint8

const (
	// Ascending follows the key from a row to the row it references,
	// for example from an employee to its managers.
	Ascending Direction = iota
	// Descending follows the key from a row to the rows referencing it.
	Descending
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Descending {
		return "Descending"
	}
	return "Ascending"
}

const depthColumn = "rc_depth"

var depthType = reflect.TypeOf(int64(0))

// RecursiveOption configures a RecursiveQuery.
type RecursiveOption func(*RecursiveQuery)

// WithMaxDepth stops the recursion after n steps. Without it, cyclic data
// makes the query run until the database gives up.
func WithMaxDepth(n int) RecursiveOption {
	return func(r *RecursiveQuery) { r.maxDepth = n }
}

// WithBlankStart allows a start instance without criteria, every row of the
// table starts a path.
func WithBlankStart() RecursiveOption {
	return func(r *RecursiveQuery) { r.blankAllowed = true }
}

// RecursiveQuery walks a self-referencing foreign key with a recursive
// common table expression.
type RecursiveQuery struct {
	d            dialect.Definition
	start        *entity.Instance
	key          *entity.Column
	pk           *entity.Column
	dir          Direction
	maxDepth     int
	blankAllowed bool
}

// Recursive returns the query walking key, a foreign key of start to its own
// type, from the rows matching start in direction dir.
func Recursive(d dialect.Definition, start *entity.Instance, key string, dir Direction, opts ...RecursiveOption) (*RecursiveQuery, error) {
	if err := start.Err(); err != nil {
		return nil, fmt.Errorf("dbgraph: instance %s: %w", start, err)
	}
	if !d.Capabilities().Has(dialect.SupportsRecursiveQueries) {
		return nil, &dbgraph.UnsupportedOperationError{Op: "recursive query", Reason: d.Name() + " has no recursive common table expressions"}
	}
	fail := func(err error) error {
		return &dbgraph.AscendingExpressionError{Key: key, Table: start.TableName(), Err: err}
	}
	col, err := start.Col(key)
	if err != nil {
		return nil, fail(err)
	}
	var fk *entity.ForeignKey
	for _, f := range start.ForeignKeys() {
		if f.Column == col && entity.Assignable(start.Descriptor().Type(), f.References) {
			fk = f
		}
	}
	if fk == nil {
		return nil, fail(fmt.Errorf("%s is not a foreign key of %s to itself", key, start.TableName()))
	}
	pk := start.Descriptor().PrimaryKey()
	if pk == nil {
		return nil, fail(&dbgraph.UndefinedPrimaryKeyError{Table: start.TableName()})
	}
	if ft, pt := col.GoType(), pk.GoType(); !ft.AssignableTo(pt) || !pt.AssignableTo(ft) {
		return nil, fail(&dbgraph.ForeignKeyTypeMismatchError{
			Table:           start.TableName(),
			Column:          key,
			ReferencedTable: start.TableName(),
			FKType:          col.Info().String(),
			PKType:          pk.Info().String(),
		})
	}
	r := &RecursiveQuery{d: d, start: start, key: col, pk: pk, dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// recursiveRenderer maps the start instance to the alias of the anchor
// member.
type recursiveRenderer struct {
	r     *RecursiveQuery
	alias string
	err   error
}

func (rr *recursiveRenderer) Dialect() dialect.Definition { return rr.r.d }

func (rr *recursiveRenderer) Column(t expr.Table, column string) string {
	if inst, ok := t.(*entity.Instance); !ok || inst != rr.r.start {
		if rr.err == nil {
			rr.err = fmt.Errorf("%w: %s.%s", ErrTableNotInQuery, t.TableName(), column)
		}
	}
	return rr.r.ident(rr.alias) + "." + rr.r.column(column)
}

func (r *RecursiveQuery) ident(name string) string { return r.d.QuoteIdentifier(name) }

func (r *RecursiveQuery) column(name string) string {
	return r.d.QuoteIdentifier(r.d.FormatColumnName(name))
}

// SQL returns the statement of the query.
func (r *RecursiveQuery) SQL() (string, error) {
	crit := r.start.Criteria()
	if len(crit) == 0 && !r.blankAllowed {
		return "", &dbgraph.AccidentalBlankQueryError{Tables: []string{r.start.TableName()}}
	}
	var (
		d     = r.d
		table = d.QuoteIdentifier(d.FormatTableName(r.start.TableName()))
		cte   = d.QuoteIdentifier(d.FormatTableName("rc_" + r.start.TableName()))
		cols  = r.start.Descriptor().Columns()
		names = make([]string, 0, len(cols)+1)
		seed  = make([]string, 0, len(cols)+1)
		step  = make([]string, 0, len(cols)+1)
		rr    = &recursiveRenderer{r: r, alias: "t0"}
	)
	for _, c := range cols {
		names = append(names, r.column(c.Name))
		seed = append(seed, r.ident("t0")+"."+r.column(c.Name))
		step = append(step, r.ident("t1")+"."+r.column(c.Name))
	}
	names = append(names, r.column(depthColumn))
	seed = append(seed, "0")
	step = append(step, cte+"."+r.column(depthColumn)+" + 1")

	var b strings.Builder
	b.WriteString(d.RecursiveWith())
	b.WriteString(cte + " (" + strings.Join(names, ", ") + ") AS (")
	b.WriteString("SELECT " + strings.Join(seed, ", ") + " FROM " + table + d.TableAliasKeyword() + r.ident("t0"))
	if len(crit) > 0 {
		b.WriteString(" WHERE " + rr.group(crit))
	}
	b.WriteString(" UNION ALL SELECT " + strings.Join(step, ", ") + " FROM " + table + d.TableAliasKeyword() + r.ident("t1"))
	b.WriteString(" INNER JOIN " + cte + " ON ")
	if r.dir == Ascending {
		b.WriteString(r.ident("t1") + "." + r.column(r.pk.Name) + " = " + cte + "." + r.column(r.key.Name))
	} else {
		b.WriteString(r.ident("t1") + "." + r.column(r.key.Name) + " = " + cte + "." + r.column(r.pk.Name))
	}
	if r.maxDepth > 0 {
		b.WriteString(" WHERE " + cte + "." + r.column(depthColumn) + " < " + strconv.Itoa(r.maxDepth))
	}
	b.WriteString(") SELECT " + strings.Join(names, ", ") + " FROM " + cte)
	b.WriteString(" ORDER BY " + r.column(depthColumn) + ", " + r.column(r.pk.Name))
	if rr.err != nil {
		return "", rr.err
	}
	return b.String(), nil
}

func (rr *recursiveRenderer) group(conds []expr.Expr) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.SQL(rr)
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

// Node is a row reached by a recursive query.
type Node struct {
	*entity.Instance
	// Depth is the number of steps from the start rows, 0 for the start
	// rows themselves.
	Depth int
}

// All executes the query and returns the rows in order of depth.
func (r *RecursiveQuery) All(ctx context.Context, ex dialect.ExecQuerier) ([]Node, error) {
	stmt, err := r.SQL()
	if err != nil {
		return nil, err
	}
	q := &Query{d: r.d, nodes: []*node{{inst: r.start}}}
	values, err := q.scan(ctx, ex, stmt, "recursive")
	if err != nil {
		return nil, err
	}
	cols := r.start.Descriptor().Columns()
	out := make([]Node, 0, len(values))
	for _, vs := range values {
		loaded := make(map[string]any, len(cols))
		for i, c := range cols {
			loaded[c.Name] = convert(vs[i], c.GoType())
		}
		inst := r.start.Copy()
		inst.Load(loaded)
		depth, _ := convert(vs[len(cols)], depthType).(int64)
		out = append(out, Node{Instance: inst, Depth: int(depth)})
	}
	return out, nil
}
