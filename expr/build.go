package expr

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/syssam/dbgraph/dialect"
)

// Column returns a reference to column of table t.
func Column(t Table, column string, kind Kind) *Node {
	return &Node{op: opColumn, kind: kind, table: t, column: column}
}

// Value returns a literal. A nil value is the NULL literal.
func Value(v any) *Node {
	if v == nil {
		return Null()
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return Null()
		}
		v = rv.Elem().Interface()
	}
	return &Node{op: opLiteral, kind: kindOfValue(v), value: v}
}

// Null returns the NULL literal.
func Null() *Node {
	return &Node{op: opNull}
}

// True returns an always-true condition.
func True() *Node {
	return &Node{op: opConst, kind: KindBool, token: "(1=1)"}
}

// False returns an always-false condition.
func False() *Node {
	return &Node{op: opConst, kind: KindBool, token: "(1=0)"}
}

func compare(token string, a, b Expr) *Node {
	return &Node{op: opCompare, kind: KindBool, token: token, args: []Expr{a, b}}
}

// EQ returns a = b.
func EQ(a, b Expr) *Node { return compare("=", a, b) }

// NEQ returns a <> b.
func NEQ(a, b Expr) *Node { return compare("<>", a, b) }

// LT returns a < b.
func LT(a, b Expr) *Node { return compare("<", a, b) }

// LTE returns a <= b.
func LTE(a, b Expr) *Node { return compare("<=", a, b) }

// GT returns a > b.
func GT(a, b Expr) *Node { return compare(">", a, b) }

// GTE returns a >= b.
func GTE(a, b Expr) *Node { return compare(">=", a, b) }

// Like returns a LIKE pattern.
func Like(a, pattern Expr) *Node { return compare("LIKE", a, pattern) }

// Between returns x BETWEEN lo AND hi, bounds included.
// A NULL bound leaves that side open.
func Between(x, lo, hi Expr) *Node {
	return &Node{op: opBetween, kind: KindBool, args: []Expr{x, lo, hi}}
}

// BetweenExclusive returns lo < x < hi.
func BetweenExclusive(x, lo, hi Expr) *Node {
	return &Node{op: opBetweenExclusive, kind: KindBool, args: []Expr{x, lo, hi}}
}

// In returns x IN (values). NULL values become an IS NULL alternative and
// an empty list is always false.
func In(x Expr, values ...Expr) *Node {
	return &Node{op: opIn, kind: KindBool, args: append([]Expr{x}, values...)}
}

// IsNull returns x IS NULL.
func IsNull(x Expr) *Node {
	return &Node{op: opIsNull, kind: KindBool, args: []Expr{x}}
}

// IsNotNull returns x IS NOT NULL.
func IsNotNull(x Expr) *Node {
	return &Node{op: opIsNotNull, kind: KindBool, args: []Expr{x}}
}

// And returns the conjunction of conds. An empty conjunction is true.
func And(conds ...Expr) *Node {
	return &Node{op: opAnd, kind: KindBool, args: conds}
}

// Or returns the disjunction of conds. An empty disjunction is false.
func Or(conds ...Expr) *Node {
	return &Node{op: opOr, kind: KindBool, args: conds}
}

// Not negates cond.
func Not(cond Expr) *Node {
	return &Node{op: opNot, kind: KindBool, args: []Expr{cond}}
}

// Bracket wraps x in parentheses.
func Bracket(x Expr) *Node {
	return &Node{op: opBracket, kind: x.Kind(), args: []Expr{x}}
}

func arith(token string, a, b Expr) *Node {
	return &Node{op: opArith, kind: KindNumber, token: token, args: []Expr{a, b}}
}

// Plus returns a + b.
func Plus(a, b Expr) *Node { return arith("+", a, b) }

// Minus returns a - b.
func Minus(a, b Expr) *Node { return arith("-", a, b) }

// Times returns a * b.
func Times(a, b Expr) *Node { return arith("*", a, b) }

// Divide returns a / b.
func Divide(a, b Expr) *Node { return arith("/", a, b) }

// Degrees converts radians to degrees, computed when the database has no
// DEGREES function.
func Degrees(x Expr) *Node {
	return &Node{op: opDegrees, kind: KindNumber, args: []Expr{x}}
}

// Radians converts degrees to radians.
func Radians(x Expr) *Node {
	return &Node{op: opRadians, kind: KindNumber, args: []Expr{x}}
}

// Concat joins strings.
func Concat(a Expr, rest ...Expr) *Node {
	return &Node{op: opConcat, kind: KindString, args: append([]Expr{a}, rest...)}
}

// Upper converts s to upper case.
func Upper(s Expr) *Node {
	return &Node{op: opFunc, kind: KindString, token: "UPPER", args: []Expr{s}}
}

// Lower converts s to lower case.
func Lower(s Expr) *Node {
	return &Node{op: opFunc, kind: KindString, token: "LOWER", args: []Expr{s}}
}

// Trim removes leading and trailing spaces.
func Trim(s Expr) *Node {
	return &Node{op: opTrim, kind: KindString, args: []Expr{s}}
}

// Length returns the number of characters of s.
func Length(s Expr) *Node {
	return &Node{op: opLength, kind: KindNumber, args: []Expr{s}}
}

// Position returns the 1-based index of needle in s, 0 when absent.
func Position(s, needle Expr) *Node {
	return &Node{op: opPosition, kind: KindNumber, args: []Expr{s, needle}}
}

// Substring returns length characters of s starting at the 1-based start.
// A nil length takes the rest of the string.
func Substring(s, start, length Expr) *Node {
	args := []Expr{s, start}
	if length != nil {
		args = append(args, length)
	}
	return &Node{op: opSubstring, kind: KindString, args: args}
}

// SubstringBefore returns the part of s before the first sep, or the empty
// string when sep does not occur.
func SubstringBefore(s, sep Expr) *Node {
	return &Node{op: opSubstringBefore, kind: KindString, args: []Expr{s, sep}}
}

// SubstringAfter returns the part of s after the first sep, or the empty
// string when sep does not occur.
func SubstringAfter(s, sep Expr) *Node {
	return &Node{op: opSubstringAfter, kind: KindString, args: []Expr{s, sep}}
}

// Coalesce returns the first non-NULL operand.
func Coalesce(a, b Expr, rest ...Expr) *Node {
	return &Node{op: opCoalesce, kind: a.Kind(), args: append([]Expr{a, b}, rest...)}
}

// Case returns then when cond holds and otherwise els.
func Case(cond, then, els Expr) *Node {
	return &Node{op: opCase, kind: then.Kind(), args: []Expr{cond, then, els}}
}

func aggregate(fn string, kind Kind, x Expr) *Node {
	return &Node{op: opFunc, kind: kind, token: fn, args: []Expr{x}, agg: true}
}

// Count counts the non-NULL values of x. A nil x counts rows.
func Count(x Expr) *Node {
	if x == nil {
		return &Node{op: opCountAll, kind: KindNumber, agg: true}
	}
	return aggregate("COUNT", KindNumber, x)
}

// Sum adds the values of x.
func Sum(x Expr) *Node { return aggregate("SUM", KindNumber, x) }

// Min returns the smallest value of x.
func Min(x Expr) *Node { return aggregate("MIN", x.Kind(), x) }

// Max returns the largest value of x.
func Max(x Expr) *Node { return aggregate("MAX", x.Kind(), x) }

func kindOfValue(v any) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case string:
		return KindString
	case time.Time:
		return KindTime
	case []byte:
		return KindBytes
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	default:
		return KindAny
	}
}

// literal renders v as an SQL literal of d.
func literal(d dialect.Definition, v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return d.StringLiteral(v)
	case bool:
		return d.BooleanLiteral(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return d.DateLiteral(v)
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return "NULL"
		}
		return literal(d, dv)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return d.BooleanLiteral(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return d.StringLiteral(rv.String())
	case reflect.Ptr:
		if rv.IsNil() {
			return "NULL"
		}
		return literal(d, rv.Elem().Interface())
	default:
		return d.StringLiteral(fmt.Sprint(v))
	}
}
