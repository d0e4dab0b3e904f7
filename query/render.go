package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
)

// ErrTableNotInQuery is returned when an expression references an instance
// that was not added to the query.
var ErrTableNotInQuery = errors.New("dbgraph: expression references a table outside the query")

type mode uint8

const (
	selectRows mode = iota
	countRows
)

// renderer resolves the columns of the query instances to their aliases.
type renderer struct {
	q   *Query
	err error
}

func (r *renderer) Dialect() dialect.Definition { return r.q.d }

func (r *renderer) Column(t expr.Table, column string) string {
	d := r.q.d
	inst, _ := t.(*entity.Instance)
	n := r.q.seen[inst]
	if n == nil {
		if r.err == nil {
			r.err = fmt.Errorf("%w: %s.%s", ErrTableNotInQuery, t.TableName(), column)
		}
		return d.QuoteIdentifier(d.FormatTableName(t.TableName())) + "." + d.QuoteIdentifier(d.FormatColumnName(column))
	}
	return d.QuoteIdentifier(n.alias) + "." + d.QuoteIdentifier(d.FormatColumnName(column))
}

func (r *renderer) group(conds []expr.Expr) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.SQL(r)
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (q *Query) table(n *node) string {
	return q.d.QuoteIdentifier(q.d.FormatTableName(n.inst.TableName())) + q.d.TableAliasKeyword() + q.d.QuoteIdentifier(n.alias)
}

func (q *Query) render(m mode) (string, error) {
	if m == countRows && q.cfg.distinct {
		inner, err := q.render(selectRows)
		if err != nil {
			return "", err
		}
		return "SELECT COUNT(*) FROM (" + inner + ")" + q.d.TableAliasKeyword() + q.d.QuoteIdentifier("rows"), nil
	}
	var (
		b strings.Builder
		r = &renderer{q: q}
	)
	b.WriteString("SELECT ")
	if m == countRows {
		b.WriteString("COUNT(*)")
	} else {
		if q.cfg.distinct {
			b.WriteString("DISTINCT ")
		}
		cols, layout := q.selectList(r)
		b.WriteString(strings.Join(cols, ", "))
		q.layout = layout
	}
	b.WriteString(" FROM ")
	where := q.from(&b, r)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if m == selectRows {
		if len(q.cfg.sorts) > 0 {
			terms := make([]string, len(q.cfg.sorts))
			for i, s := range q.cfg.sorts {
				dir := " ASC"
				if s.Desc {
					dir = " DESC"
				}
				terms[i] = s.Expr.SQL(r) + dir
			}
			b.WriteString(" ORDER BY ")
			b.WriteString(strings.Join(terms, ", "))
		}
		if p := q.d.Paginate(q.cfg.limit, q.cfg.offset, len(q.cfg.sorts) > 0); p != "" {
			b.WriteString(" ")
			b.WriteString(p)
		}
	}
	if r.err != nil {
		return "", r.err
	}
	return b.String(), nil
}

// selectList returns the selected columns of every instance in alias order,
// then the extra columns of the query.
func (q *Query) selectList(r *renderer) ([]string, []slot) {
	var (
		cols   []string
		layout []slot
	)
	if len(q.cfg.only) > 0 {
		for _, s := range q.cfg.only {
			cols = append(cols, s.Expr.SQL(r)+" AS "+q.d.FormatColumnAlias(s.Alias))
			layout = append(layout, slot{extra: s.Alias})
		}
		return cols, layout
	}
	for _, n := range q.nodes {
		computed := make(map[string]bool)
		for _, ec := range n.inst.ExpressionColumns() {
			computed[ec.Name] = true
		}
		for _, c := range n.inst.SelectedColumns() {
			if computed[c.Name] {
				continue
			}
			cols = append(cols, r.Column(n.inst, c.Name)+" AS "+q.d.FormatColumnAlias(n.alias+"_"+c.Name))
			layout = append(layout, slot{node: n, column: c.Name})
		}
		for _, ec := range n.inst.ExpressionColumns() {
			cols = append(cols, ec.Expr.SQL(r)+" AS "+q.d.FormatColumnAlias(n.alias+"_"+ec.Name))
			layout = append(layout, slot{node: n, column: ec.Name})
		}
	}
	for _, s := range q.cfg.columns {
		cols = append(cols, s.Expr.SQL(r)+" AS "+q.d.FormatColumnAlias(s.Alias))
		layout = append(layout, slot{extra: s.Alias})
	}
	return cols, layout
}

// from writes the FROM clause and returns the WHERE groups. Criteria of
// optional instances restrict their join, the criteria of the other
// instances go to the WHERE clause.
func (q *Query) from(b *strings.Builder, r *renderer) []string {
	var (
		where  []string
		placed = make([]bool, len(q.nodes))
	)
	for k, i := range q.joinOrder() {
		n := q.nodes[i]
		var conds []expr.Expr
		for _, e := range q.edges {
			if (e.a == i && placed[e.b]) || (e.b == i && placed[e.a]) {
				conds = append(conds, e.conds...)
			}
		}
		for _, s := range q.spans {
			if s.ready(i, placed) {
				conds = append(conds, s.cond)
			}
		}
		placed[i] = true
		crit := n.inst.Criteria()
		switch {
		case k == 0:
			b.WriteString(q.table(n))
		case n.optional:
			b.WriteString(" LEFT OUTER JOIN ")
			b.WriteString(q.table(n))
			b.WriteString(" ON ")
			switch {
			case len(conds) > 0 && len(crit) > 0:
				b.WriteString("(" + r.group(conds) + " AND " + r.group(crit) + ")")
			case len(conds) > 0:
				b.WriteString(r.group(conds))
			case len(crit) > 0:
				b.WriteString(r.group(crit))
			default:
				b.WriteString("(1=1)")
			}
			continue
		case len(conds) == 0:
			b.WriteString(" CROSS JOIN ")
			b.WriteString(q.table(n))
		default:
			b.WriteString(" INNER JOIN ")
			b.WriteString(q.table(n))
			b.WriteString(" ON ")
			b.WriteString(r.group(conds))
		}
		if len(crit) > 0 {
			where = append(where, r.group(crit))
		}
	}
	return where
}
