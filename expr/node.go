package expr

import (
	"fmt"
	"strings"

	"github.com/syssam/dbgraph/dialect"
)

// op identifies the variant held by a Node.
type op uint8

const (
	opLiteral op = iota
	opNull
	opColumn
	opConst
	opCompare
	opBetween
	opBetweenExclusive
	opIn
	opIsNull
	opIsNotNull
	opAnd
	opOr
	opNot
	opBracket
	opArith
	opFunc
	opCountAll
	opConcat
	opTrim
	opLength
	opPosition
	opSubstring
	opSubstringBefore
	opSubstringAfter
	opDegrees
	opRadians
	opCoalesce
	opCase
)

// Node is the single node type of the expression tree. The variant is
// selected by its operator and the result kind is fixed at construction.
type Node struct {
	op     op
	kind   Kind
	token  string // comparison or arithmetic operator, function name
	value  any    // literal value
	table  Table  // column owner
	column string
	args   []Expr
	agg    bool
}

// Kind implements Expr.
func (n *Node) Kind() Kind { return n.kind }

// IsAggregate implements Expr.
func (n *Node) IsAggregate() bool {
	if n.agg {
		return true
	}
	for _, a := range n.args {
		if a.IsAggregate() {
			return true
		}
	}
	return false
}

// Tables implements Expr.
func (n *Node) Tables() []Table {
	var ts []Table
	n.collect(&ts)
	return ts
}

func (n *Node) collect(ts *[]Table) {
	if n.table != nil {
		*ts = appendTable(*ts, n.table)
	}
	for _, a := range n.args {
		if c, ok := a.(*Node); ok {
			c.collect(ts)
			continue
		}
		for _, t := range a.Tables() {
			*ts = appendTable(*ts, t)
		}
	}
}

func appendTable(ts []Table, t Table) []Table {
	for _, x := range ts {
		if x == t {
			return ts
		}
	}
	return append(ts, t)
}

// RequiresNullProtection implements Expr. Arithmetic over a NULL operand
// is NULL too.
func (n *Node) RequiresNullProtection() bool {
	switch n.op {
	case opNull:
		return true
	case opLiteral:
		return n.value == nil
	case opArith:
		return n.args[0].RequiresNullProtection() || n.args[1].RequiresNullProtection()
	}
	return false
}

// Copy implements Expr.
func (n *Node) Copy() Expr {
	return n.clone()
}

func (n *Node) clone() *Node {
	c := *n
	if n.args != nil {
		c.args = make([]Expr, len(n.args))
		for i, a := range n.args {
			c.args[i] = a.Copy()
		}
	}
	return &c
}

// Args returns the operands of the node.
func (n *Node) Args() []Expr {
	return n.args
}

// SetArg replaces the i-th operand of the node.
func (n *Node) SetArg(i int, e Expr) error {
	if i < 0 || i >= len(n.args) {
		return fmt.Errorf("expr: operand %d out of range [0,%d)", i, len(n.args))
	}
	if e == nil {
		return fmt.Errorf("expr: operand %d must not be nil", i)
	}
	n.args[i] = e
	return nil
}

// Rebind replaces every reference to table old with table nu, in place.
// It is used on copies when an expression moves to another instance.
func (n *Node) Rebind(old, nu Table) *Node {
	if n.table != nil && n.table == old {
		n.table = nu
	}
	for _, a := range n.args {
		if c, ok := a.(*Node); ok {
			c.Rebind(old, nu)
		}
	}
	return n
}

// IsColumn reports if the node is a column reference.
func (n *Node) IsColumn() bool { return n.op == opColumn }

// Table returns the owner of a column reference.
func (n *Node) Table() Table { return n.table }

// ColumnName returns the column name of a column reference.
func (n *Node) ColumnName() string { return n.column }

// Literal returns the value of a literal node.
func (n *Node) Literal() (any, bool) {
	if n.op != opLiteral {
		return nil, false
	}
	return n.value, true
}

// SQL implements Expr.
func (n *Node) SQL(r Renderer) string {
	d := r.Dialect()
	switch n.op {
	case opLiteral:
		return literal(d, n.value)
	case opNull:
		return "NULL"
	case opColumn:
		return r.Column(n.table, n.column)
	case opConst:
		return n.token
	case opCompare:
		return n.compare(r)
	case opBetween, opBetweenExclusive:
		return n.between(r)
	case opIn:
		return n.in(r)
	case opIsNull:
		return n.args[0].SQL(r) + " IS NULL"
	case opIsNotNull:
		return n.args[0].SQL(r) + " IS NOT NULL"
	case opAnd:
		return n.join(r, " AND ", "(1=1)")
	case opOr:
		return n.join(r, " OR ", "(1=0)")
	case opNot:
		return "NOT (" + n.args[0].SQL(r) + ")"
	case opBracket:
		return "(" + n.args[0].SQL(r) + ")"
	case opArith:
		if n.RequiresNullProtection() {
			return "NULL"
		}
		return "(" + n.args[0].SQL(r) + " " + n.token + " " + n.args[1].SQL(r) + ")"
	case opFunc:
		return n.token + "(" + n.list(r) + ")"
	case opCountAll:
		return "COUNT(*)"
	case opConcat:
		s := n.args[0].SQL(r)
		for _, a := range n.args[1:] {
			s = d.Concat(s, a.SQL(r))
		}
		return s
	case opTrim:
		return d.Trim(n.args[0].SQL(r))
	case opLength:
		return d.StringLength(n.args[0].SQL(r))
	case opPosition:
		return d.Position(n.args[0].SQL(r), n.args[1].SQL(r))
	case opSubstring:
		length := ""
		if len(n.args) > 2 {
			length = n.args[2].SQL(r)
		}
		return d.Substring(n.args[0].SQL(r), n.args[1].SQL(r), length)
	case opSubstringBefore:
		s, sep := n.args[0].SQL(r), n.args[1].SQL(r)
		pos := d.Position(s, sep)
		return "(CASE WHEN " + pos + " > 0 THEN " + d.Substring(s, "1", "("+pos+" - 1)") +
			" ELSE " + d.StringLiteral("") + " END)"
	case opSubstringAfter:
		s, sep := n.args[0].SQL(r), n.args[1].SQL(r)
		pos := d.Position(s, sep)
		return "(CASE WHEN " + pos + " > 0 THEN " + d.Substring(s, "("+pos+" + "+d.StringLength(sep)+")", "") +
			" ELSE " + d.StringLiteral("") + " END)"
	case opDegrees:
		if d.Capabilities().Has(dialect.SupportsDegrees) {
			return "DEGREES(" + n.args[0].SQL(r) + ")"
		}
		return "(" + n.args[0].SQL(r) + " * " + degreesPerRadian + ")"
	case opRadians:
		if d.Capabilities().Has(dialect.SupportsRadians) {
			return "RADIANS(" + n.args[0].SQL(r) + ")"
		}
		return "(" + n.args[0].SQL(r) + " * " + radiansPerDegree + ")"
	case opCoalesce:
		s := n.args[0].SQL(r)
		for _, a := range n.args[1:] {
			s = d.IfNull(s, a.SQL(r))
		}
		return s
	case opCase:
		return "(CASE WHEN " + n.args[0].SQL(r) + " THEN " + n.args[1].SQL(r) + " ELSE " + n.args[2].SQL(r) + " END)"
	default:
		panic(fmt.Sprintf("expr: unknown node operator %d", n.op))
	}
}

const (
	degreesPerRadian = "57.29577951308232"
	radiansPerDegree = "0.017453292519943295"
)

// compare renders a binary comparison. NULL operands are never compared
// with the operator: the other operand gets an IS [NOT] NULL guard.
func (n *Node) compare(r Renderer) string {
	a, b := n.args[0], n.args[1]
	d := r.Dialect()
	switch {
	case nullish(d, b):
		return guard(a.SQL(r), n.token)
	case nullish(d, a):
		return guard(b.SQL(r), n.token)
	}
	return a.SQL(r) + " " + n.token + " " + b.SQL(r)
}

// between renders a range. A NULL bound leaves that side of the range
// open, and a range without bounds matches NULL only.
func (n *Node) between(r Renderer) string {
	d := r.Dialect()
	x, lo, hi := n.args[0], n.args[1], n.args[2]
	loOp, hiOp := ">=", "<="
	if n.op == opBetweenExclusive {
		loOp, hiOp = ">", "<"
	}
	switch noLo, noHi := nullish(d, lo), nullish(d, hi); {
	case noLo && noHi:
		return x.SQL(r) + " IS NULL"
	case noLo:
		return x.SQL(r) + " " + hiOp + " " + hi.SQL(r)
	case noHi:
		return x.SQL(r) + " " + loOp + " " + lo.SQL(r)
	case n.op == opBetweenExclusive:
		s := x.SQL(r)
		return "(" + s + " > " + lo.SQL(r) + " AND " + s + " < " + hi.SQL(r) + ")"
	}
	return x.SQL(r) + " BETWEEN " + lo.SQL(r) + " AND " + hi.SQL(r)
}

func guard(s, token string) string {
	if token == "<>" {
		return s + " IS NOT NULL"
	}
	return s + " IS NULL"
}

// nullish reports if e renders as NULL on d. Databases that store the empty
// string as NULL treat an empty string literal the same way.
func nullish(d dialect.Definition, e Expr) bool {
	if e.RequiresNullProtection() {
		return true
	}
	if d.Capabilities().Has(dialect.DistinguishesNullAndEmptyString) {
		return false
	}
	n, ok := e.(*Node)
	if !ok || n.op != opLiteral {
		return false
	}
	s, ok := n.value.(string)
	return ok && s == ""
}

func (n *Node) in(r Renderer) string {
	x := n.args[0].SQL(r)
	var (
		values []string
		nulls  bool
	)
	for _, v := range n.args[1:] {
		if nullish(r.Dialect(), v) {
			nulls = true
			continue
		}
		values = append(values, v.SQL(r))
	}
	switch {
	case len(values) == 0 && nulls:
		return x + " IS NULL"
	case len(values) == 0:
		return "(1=0)"
	case nulls:
		return "(" + x + " IN (" + strings.Join(values, ", ") + ") OR " + x + " IS NULL)"
	default:
		return x + " IN (" + strings.Join(values, ", ") + ")"
	}
}

func (n *Node) join(r Renderer, sep, empty string) string {
	switch len(n.args) {
	case 0:
		return empty
	case 1:
		return n.args[0].SQL(r)
	}
	parts := make([]string, len(n.args))
	for i, a := range n.args {
		parts[i] = a.SQL(r)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (n *Node) list(r Renderer) string {
	parts := make([]string, len(n.args))
	for i, a := range n.args {
		parts[i] = a.SQL(r)
	}
	return strings.Join(parts, ", ")
}
