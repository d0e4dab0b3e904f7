// Package expr provides the expression tree used for criteria, join
// conditions and computed columns.
//
// Expressions are built structurally and only become SQL when rendered
// against a Renderer, which supplies the dialect and the alias of every
// table:
//
//	cond := expr.And(
//	    expr.EQ(marque.C("fk_carcompany"), company.C("uid_carcompany")),
//	    expr.Like(marque.C("name"), expr.Value("T%")),
//	)
//	expr.ToSQL(cond, dialect.MustLookup(dialect.Postgres))
//
// Comparisons against NULL render as IS NULL guards, never as "= NULL".
package expr

import (
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/schema/field"
)

// Kind is the result kind of an expression.
type Kind uint8

// Result kinds.
const (
	KindAny Kind = iota
	KindBool
	KindNumber
	KindString
	KindTime
	KindBytes
)

var kindNames = [...]string{
	KindAny:    "any",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindTime:   "time",
	KindBytes:  "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindAny]
}

// KindOf returns the result kind of a column type.
func KindOf(t field.Type) Kind {
	switch {
	case t == field.TypeBool:
		return KindBool
	case t.Numeric():
		return KindNumber
	case t.Stringish():
		return KindString
	case t == field.TypeTime:
		return KindTime
	case t == field.TypeBytes:
		return KindBytes
	default:
		return KindAny
	}
}

// Table is a table-shaped participant of a query that expressions refer
// to. It is implemented by *entity.Instance.
type Table interface {
	// TableName returns the unformatted table name.
	TableName() string
	// TypeName returns the canonical name of the entity type.
	TypeName() string
}

// Renderer resolves the dialect-dependent parts of an expression.
type Renderer interface {
	// Dialect returns the definition used to render literals and functions.
	Dialect() dialect.Definition
	// Column returns the qualified reference to column of table t.
	Column(t Table, column string) string
}

// Expr is a node of the expression tree.
type Expr interface {
	// SQL renders the expression. Rendering is referentially transparent.
	SQL(r Renderer) string
	// Kind returns the result kind of the expression.
	Kind() Kind
	// IsAggregate reports if the expression contains an aggregate function.
	IsAggregate() bool
	// Tables returns the tables referenced by the expression and all of its
	// sub-expressions, in order of first appearance.
	Tables() []Table
	// RequiresNullProtection reports if the expression is the NULL value,
	// which cannot be compared with "=".
	RequiresNullProtection() bool
	// Copy returns an independently mutable clone.
	Copy() Expr
}

// standalone renders column references qualified by table name.
type standalone struct {
	d dialect.Definition
}

// NewRenderer returns a Renderer that qualifies columns with their table
// name instead of an alias.
func NewRenderer(d dialect.Definition) Renderer {
	return standalone{d: d}
}

func (s standalone) Dialect() dialect.Definition { return s.d }

func (s standalone) Column(t Table, column string) string {
	return s.d.QuoteIdentifier(s.d.FormatTableName(t.TableName())) + "." + s.d.QuoteIdentifier(s.d.FormatColumnName(column))
}

// ToSQL renders e for dialect d outside of a query.
func ToSQL(e Expr, d dialect.Definition) string {
	return e.SQL(NewRenderer(d))
}
