package field

import (
	"reflect"
	"time"
)

// A Type represents a column type.
type Type uint8

// List of column types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeString
	TypeText
	TypeTime
	TypeBytes
	TypeOther
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeText:    "string",
	TypeTime:    "time.Time",
	TypeBytes:   "[]byte",
	TypeOther:   "other",
}

// String returns the Go name of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type if known type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Integer reports if the given type is an integer type.
func (t Type) Integer() bool {
	return t == TypeInt || t == TypeInt32 || t == TypeInt64
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t.Integer() || t == TypeFloat64
}

// Stringish reports if the column holds character data.
func (t Type) Stringish() bool {
	return t == TypeString || t == TypeText
}

// LOB reports if the column holds a large object that is not returned in
// comparisons or copied by INSERT ... SELECT.
func (t Type) LOB() bool {
	return t == TypeBytes
}

var goTypes = map[Type]reflect.Type{
	TypeBool:    reflect.TypeOf(false),
	TypeInt:     reflect.TypeOf(0),
	TypeInt32:   reflect.TypeOf(int32(0)),
	TypeInt64:   reflect.TypeOf(int64(0)),
	TypeFloat64: reflect.TypeOf(float64(0)),
	TypeString:  reflect.TypeOf(""),
	TypeText:    reflect.TypeOf(""),
	TypeTime:    reflect.TypeOf(time.Time{}),
	TypeBytes:   reflect.TypeOf([]byte(nil)),
}

// TypeInfo holds the information regarding the Go type of a column.
type TypeInfo struct {
	Type    Type
	Ident   string
	PkgPath string
	RType   reflect.Type
}

// String returns the string representation of the type.
func (t TypeInfo) String() string {
	if t.Ident != "" {
		return t.Ident
	}
	return t.Type.String()
}

// Comparable reports if values of both types can be compared by an SQL
// operator, that is, they belong to the same family of column types.
func (t TypeInfo) Comparable(other TypeInfo) bool {
	return t.Family() == other.Family()
}

// Family groups column types by the comparisons they support.
func (t TypeInfo) Family() string {
	switch {
	case t.Type.Numeric():
		return "numeric"
	case t.Type.Stringish():
		return "string"
	case t.Type == TypeOther && t.RType != nil:
		return t.RType.Kind().String()
	default:
		return t.Type.String()
	}
}
