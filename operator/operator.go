// Package operator provides the comparison operators attached to the
// columns of an entity instance. An operator holds the compared values and
// renders itself as a boolean expression against any column expression:
//
//	op := operator.Like("Dr %")
//	op.Where(villain.C("name")) // "t0"."name" LIKE 'Dr %'
//
//	op = operator.LessThan(10).Invert()
//	op.Where(hero.C("uid")) // "t0"."uid" >= 10
package operator

import (
	"fmt"

	"github.com/syssam/dbgraph/expr"
)

// Kind is the variant of an Operator.
type Kind uint8

// Operator variants.
const (
	KindEquals Kind = iota
	KindLessThan
	KindLessThanOrEqual
	KindGreaterThan
	KindGreaterThanOrEqual
	KindBetweenInclusive
	KindBetweenExclusive
	KindLike
	KindIn
	KindIsNull
)

var kindNames = [...]string{
	KindEquals:             "Equals",
	KindLessThan:           "LessThan",
	KindLessThanOrEqual:    "LessThanOrEqual",
	KindGreaterThan:        "GreaterThan",
	KindGreaterThanOrEqual: "GreaterThanOrEqual",
	KindBetweenInclusive:   "BetweenInclusive",
	KindBetweenExclusive:   "BetweenExclusive",
	KindLike:               "Like",
	KindIn:                 "In",
	KindIsNull:             "IsNull",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// inverses maps comparisons to their negations.
var inverses = map[Kind]Kind{
	KindLessThan:           KindGreaterThanOrEqual,
	KindLessThanOrEqual:    KindGreaterThan,
	KindGreaterThan:        KindLessThanOrEqual,
	KindGreaterThanOrEqual: KindLessThan,
}

// Operator is a comparison bound to its values.
type Operator struct {
	kind         Kind
	values       []expr.Expr
	inverted     bool
	includeNulls bool
}

func newOperator(k Kind, values ...any) *Operator {
	op := &Operator{kind: k, values: make([]expr.Expr, len(values))}
	for i, v := range values {
		op.values[i] = toExpr(v)
	}
	return op
}

func toExpr(v any) expr.Expr {
	if e, ok := v.(expr.Expr); ok {
		return e.Copy()
	}
	return expr.Value(v)
}

// Equals matches values equal to v. A nil v matches NULL.
func Equals(v any) *Operator { return newOperator(KindEquals, v) }

// LessThan matches values less than v.
func LessThan(v any) *Operator { return newOperator(KindLessThan, v) }

// LessThanOrEqual matches values less than or equal to v.
func LessThanOrEqual(v any) *Operator { return newOperator(KindLessThanOrEqual, v) }

// GreaterThan matches values greater than v.
func GreaterThan(v any) *Operator { return newOperator(KindGreaterThan, v) }

// GreaterThanOrEqual matches values greater than or equal to v.
func GreaterThanOrEqual(v any) *Operator { return newOperator(KindGreaterThanOrEqual, v) }

// BetweenInclusive matches values between lo and hi, bounds included.
func BetweenInclusive(lo, hi any) *Operator { return newOperator(KindBetweenInclusive, lo, hi) }

// BetweenExclusive matches values strictly between lo and hi.
func BetweenExclusive(lo, hi any) *Operator { return newOperator(KindBetweenExclusive, lo, hi) }

// Like matches values against an SQL LIKE pattern.
func Like(pattern any) *Operator { return newOperator(KindLike, pattern) }

// In matches any of values.
func In(values ...any) *Operator { return newOperator(KindIn, values...) }

// IsNull matches NULL.
func IsNull() *Operator { return newOperator(KindIsNull) }

// Kind returns the variant of the operator.
func (o *Operator) Kind() Kind { return o.kind }

// Values returns the compared values.
func (o *Operator) Values() []expr.Expr { return o.values }

// Invert negates the operator.
func (o *Operator) Invert() *Operator {
	o.inverted = !o.inverted
	return o
}

// Inverted reports if the operator is negated.
func (o *Operator) Inverted() bool { return o.inverted }

// IncludeNulls makes the operator also match NULL.
func (o *Operator) IncludeNulls() *Operator {
	o.includeNulls = true
	return o
}

// IncludesNulls reports if NULL values match.
func (o *Operator) IncludesNulls() bool { return o.includeNulls }

// Inverse returns the operator matching exactly the values o does not
// match, ignoring NULL. Comparisons swap to their negated comparison, the
// other variants toggle their inverted flag.
func (o *Operator) Inverse() *Operator {
	c := o.Copy()
	if k, ok := inverses[c.kind]; ok && !c.inverted {
		c.kind = k
		return c
	}
	c.inverted = !c.inverted
	return c
}

// Where renders the operator as a condition on col.
func (o *Operator) Where(col expr.Expr) expr.Expr {
	values := make([]expr.Expr, len(o.values))
	for i, v := range o.values {
		values[i] = coerce(col, v)
	}
	cond := o.condition(col, values)
	if o.includeNulls && o.kind != KindIsNull {
		cond = expr.Or(cond, expr.IsNull(col))
	}
	return cond
}

// Relationship renders the operator as a join condition between two
// columns. The stored values are ignored for comparisons.
func (o *Operator) Relationship(col, other expr.Expr) expr.Expr {
	switch o.kind {
	case KindEquals, KindLessThan, KindLessThanOrEqual, KindGreaterThan, KindGreaterThanOrEqual, KindLike:
		return o.condition(col, []expr.Expr{other})
	default:
		return o.Where(col)
	}
}

func (o *Operator) condition(col expr.Expr, values []expr.Expr) expr.Expr {
	kind, inverted := o.kind, o.inverted
	if k, ok := inverses[kind]; ok && inverted {
		kind, inverted = k, false
	}
	var cond expr.Expr
	switch kind {
	case KindEquals:
		if inverted {
			return expr.NEQ(col, values[0])
		}
		cond = expr.EQ(col, values[0])
	case KindLessThan:
		cond = expr.LT(col, values[0])
	case KindLessThanOrEqual:
		cond = expr.LTE(col, values[0])
	case KindGreaterThan:
		cond = expr.GT(col, values[0])
	case KindGreaterThanOrEqual:
		cond = expr.GTE(col, values[0])
	case KindBetweenInclusive:
		cond = expr.Between(col, values[0], values[1])
	case KindBetweenExclusive:
		cond = expr.BetweenExclusive(col, values[0], values[1])
	case KindLike:
		cond = expr.Like(col, values[0])
	case KindIn:
		cond = expr.In(col, values...)
	case KindIsNull:
		if inverted {
			return expr.IsNotNull(col)
		}
		cond = expr.IsNull(col)
	}
	if inverted {
		return expr.Not(cond)
	}
	return cond
}

// coerce converts number literals compared with string columns to string
// literals.
func coerce(col, v expr.Expr) expr.Expr {
	if col.Kind() != expr.KindString || v.Kind() != expr.KindNumber {
		return v
	}
	n, ok := v.(*expr.Node)
	if !ok {
		return v
	}
	lit, ok := n.Literal()
	if !ok {
		return v
	}
	return expr.Value(fmt.Sprint(lit))
}

// Copy returns an independent copy of the operator.
func (o *Operator) Copy() *Operator {
	return o.CopyAndAdapt(func(e expr.Expr) expr.Expr { return e.Copy() })
}

// CopyAndAdapt returns a copy of the operator whose values are converted by
// adapt, keeping the inverted and include-nulls flags. It is used when the
// stored type of a column differs from its declared Go type.
func (o *Operator) CopyAndAdapt(adapt func(expr.Expr) expr.Expr) *Operator {
	c := &Operator{
		kind:         o.kind,
		values:       make([]expr.Expr, len(o.values)),
		inverted:     o.inverted,
		includeNulls: o.includeNulls,
	}
	for i, v := range o.values {
		c.values[i] = adapt(v)
	}
	return c
}

// String implements fmt.Stringer.
func (o *Operator) String() string {
	s := o.kind.String()
	if o.inverted {
		s = "Not" + s
	}
	if o.includeNulls {
		s += "OrNull"
	}
	return s
}
