package query

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
)

// Row is a result row of a query.
type Row struct {
	q      *Query
	layout []slot
	values []any
	cache  map[*entity.Instance]*entity.Instance
}

// Get returns the instance of the row matching example, a copy of example
// loaded with the selected values. Optional instances whose values are all
// NULL are returned empty. Get returns nil when example is not part of the
// query.
func (r *Row) Get(example *entity.Instance) *entity.Instance {
	if got, ok := r.cache[example]; ok {
		return got
	}
	n := r.q.seen[example]
	if n == nil {
		return nil
	}
	var (
		values  = make(map[string]any)
		allNull = true
	)
	for i, s := range r.layout {
		if s.node != n {
			continue
		}
		v := r.values[i]
		if v != nil {
			allNull = false
		}
		if c := example.Descriptor().Column(s.column); c != nil {
			v = convert(v, c.GoType())
		}
		values[s.column] = v
	}
	inst := example.Copy()
	if n.optional && allNull {
		inst.SetEmpty()
	} else {
		inst.Load(values)
	}
	r.cache[example] = inst
	return inst
}

// Instances returns the instances of the row in alias order.
func (r *Row) Instances() []*entity.Instance {
	out := make([]*entity.Instance, 0, len(r.q.nodes))
	for _, n := range r.q.nodes {
		out = append(out, r.Get(n.inst))
	}
	return out
}

// Value returns the value of a column added with WithColumns.
func (r *Row) Value(alias string) (any, bool) {
	for i, s := range r.layout {
		if s.node == nil && s.extra == alias {
			return r.values[i], true
		}
	}
	return nil, false
}

// Into returns a new instance of the entity of target loaded with the
// extra columns of the row whose alias names a column of target.
func (r *Row) Into(target *entity.Instance) *entity.Instance {
	values := make(map[string]any)
	for i, s := range r.layout {
		if s.node != nil {
			continue
		}
		if c := target.Descriptor().Column(s.extra); c != nil {
			values[s.extra] = convert(r.values[i], c.GoType())
		}
	}
	inst := target.Descriptor().NewInstance()
	inst.Load(values)
	return inst
}

// All executes the query and returns its rows.
func (q *Query) All(ctx context.Context, ex dialect.ExecQuerier) ([]*Row, error) {
	stmt, err := q.SQL()
	if err != nil {
		return nil, err
	}
	values, err := q.scan(ctx, ex, stmt, "select")
	if err != nil {
		return nil, err
	}
	return q.rows(values), nil
}

func (q *Query) rows(values [][]any) []*Row {
	rows := make([]*Row, len(values))
	for i, vs := range values {
		rows[i] = &Row{q: q, layout: q.layout, values: vs, cache: make(map[*entity.Instance]*entity.Instance)}
	}
	return rows
}

// InstancesOf executes the query and returns the instances matching example,
// one per row.
func (q *Query) InstancesOf(ctx context.Context, ex dialect.ExecQuerier, example *entity.Instance) ([]*entity.Instance, error) {
	rows, err := q.All(ctx, ex)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Instance, 0, len(rows))
	for _, r := range rows {
		if inst := r.Get(example); inst != nil && !inst.IsEmpty() {
			out = append(out, inst)
		}
	}
	return out, nil
}

// Count returns the number of rows of the query.
func (q *Query) Count(ctx context.Context, ex dialect.ExecQuerier) (int, error) {
	stmt, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	values, err := q.scan(ctx, ex, stmt, "count")
	if err != nil {
		return 0, err
	}
	if len(values) != 1 || len(values[0]) != 1 {
		return 0, &dbgraph.QueryError{Tables: q.Tables(), Op: "count", Err: fmt.Errorf("unexpected result shape")}
	}
	n, ok := convert(values[0][0], reflect.TypeOf(int64(0))).(int64)
	if !ok {
		return 0, &dbgraph.QueryError{Tables: q.Tables(), Op: "count", Err: fmt.Errorf("unexpected count %T", values[0][0])}
	}
	return int(n), nil
}

// DistinctValues returns the distinct values of e over the rows of the
// query, in ascending order.
func (q *Query) DistinctValues(ctx context.Context, ex dialect.ExecQuerier, e expr.Expr) ([]any, error) {
	sub := New(q.d)
	sub.cfg = config{
		blankAllowed:     q.cfg.blankAllowed,
		cartesianAllowed: q.cfg.cartesianAllowed,
		distinct:         true,
		sorts:            []Sort{Asc(e)},
		only:             []Selected{{Alias: "value", Expr: e}},
	}
	for _, n := range q.nodes {
		sub.add(n.optional, []*entity.Instance{n.inst})
	}
	stmt, err := sub.SQL()
	if err != nil {
		return nil, err
	}
	values, err := q.scan(ctx, ex, stmt, "distinct")
	if err != nil {
		return nil, err
	}
	out := make([]any, len(values))
	for i, vs := range values {
		out[i] = vs[0]
	}
	return out, nil
}

func (q *Query) scan(ctx context.Context, ex dialect.ExecQuerier, stmt, op string) ([][]any, error) {
	rows := &sql.Rows{}
	if err := ex.Query(ctx, stmt, []any{}, rows); err != nil {
		return nil, &dbgraph.QueryError{Tables: q.Tables(), Op: op, Err: err}
	}
	values, err := sql.ScanValues(rows)
	if err != nil {
		return nil, &dbgraph.QueryError{Tables: q.Tables(), Op: op, Err: err}
	}
	return values, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// convert adapts a driver value to the Go type of a column. Values that
// cannot be converted are returned unchanged.
func convert(v any, t reflect.Type) any {
	if v == nil || t == nil {
		return v
	}
	if reflect.TypeOf(v) == t {
		return v
	}
	switch x := v.(type) {
	case []byte:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return x
		}
		return convert(string(x), t)
	case string:
		switch t.Kind() {
		case reflect.String:
			return reflect.ValueOf(x).Convert(t).Interface()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return reflect.ValueOf(n).Convert(t).Interface()
			}
		case reflect.Float32, reflect.Float64:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return reflect.ValueOf(f).Convert(t).Interface()
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
		if t == reflect.TypeOf(time.Time{}) {
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, x); err == nil {
					return ts
				}
			}
		}
	case int64:
		if t.Kind() == reflect.Bool {
			return x != 0
		}
	}
	rv := reflect.ValueOf(v)
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		return rv.Convert(t).Interface()
	}
	return v
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
