package field

import (
	"errors"
	"fmt"
	"reflect"
)

// Descriptor for column declarations.
type Descriptor struct {
	Name          string            // column name.
	Info          *TypeInfo         // column type info.
	PrimaryKey    bool              // primary key column.
	AutoIncrement bool              // value assigned by the database.
	Nillable      bool              // nullable in the database.
	Size          int               // max size of character columns.
	References    reflect.Type      // referenced entity type of a foreign key.
	SchemaType    map[string]string // override the default database type per dialect.
	Comment       string            // column comment.
	Err           error
}

// IsForeignKey reports if the column references another entity.
func (d *Descriptor) IsForeignKey() bool {
	return d.References != nil
}

// GoType returns the reflect.Type of the column values.
func (d *Descriptor) GoType() reflect.Type {
	if d.Info.RType != nil {
		return d.Info.RType
	}
	return goTypes[d.Info.Type]
}

// Builder is the builder shared by all column types.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) *Builder {
	return &Builder{desc: &Descriptor{
		Name: name,
		Info: &TypeInfo{Type: t, RType: goTypes[t]},
	}}
}

// Bool returns a new column with type bool.
func Bool(name string) *Builder { return newBuilder(name, TypeBool) }

// Int returns a new column with type int.
func Int(name string) *Builder { return newBuilder(name, TypeInt) }

// Int32 returns a new column with type int32.
func Int32(name string) *Builder { return newBuilder(name, TypeInt32) }

// Int64 returns a new column with type int64.
func Int64(name string) *Builder { return newBuilder(name, TypeInt64) }

// Float64 returns a new column with type float64.
func Float64(name string) *Builder { return newBuilder(name, TypeFloat64) }

// String returns a new column with type string.
func String(name string) *Builder { return newBuilder(name, TypeString) }

// Text returns a new string column without a size limit.
func Text(name string) *Builder { return newBuilder(name, TypeText) }

// Time returns a new column with type time.Time.
func Time(name string) *Builder { return newBuilder(name, TypeTime) }

// Bytes returns a new large-object column with type []byte.
func Bytes(name string) *Builder { return newBuilder(name, TypeBytes) }

// Other returns a new column of a custom Go type. The database type must be
// provided with SchemaType.
//
//	field.Other("amount", decimal.Decimal{}).
//		SchemaType(map[string]string{
//			dialect.Postgres: "numeric(10,2)",
//		})
func Other(name string, typ any) *Builder {
	b := newBuilder(name, TypeOther)
	b.GoType(typ)
	return b
}

// PrimaryKey marks the column as the primary key of the entity.
func (b *Builder) PrimaryKey() *Builder {
	b.desc.PrimaryKey = true
	return b
}

// AutoIncrement marks the column as assigned by the database on insert.
// Only integer columns can be auto-incremented.
func (b *Builder) AutoIncrement() *Builder {
	b.desc.AutoIncrement = true
	return b
}

// Nillable indicates that this column is a nullable.
func (b *Builder) Nillable() *Builder {
	b.desc.Nillable = true
	return b
}

// Size sets the max size of a character column.
func (b *Builder) Size(n int) *Builder {
	if n <= 0 {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("size of column %q must be positive, got %d", b.desc.Name, n))
	}
	b.desc.Size = n
	return b
}

// References marks the column as a foreign key to the primary key of the
// given entity. The value is an instance of the referenced declaration:
//
//	field.Int64("fk_carcompany").References(CarCompany{})
func (b *Builder) References(entity any) *Builder {
	t := reflect.TypeOf(entity)
	if t == nil {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("column %q references a nil entity", b.desc.Name))
		return b
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	b.desc.References = t
	return b
}

// GoType overrides the Go type of the column values. The type must belong
// to the same comparison family as the column type, except for Other.
func (b *Builder) GoType(typ any) *Builder {
	t := reflect.TypeOf(typ)
	if t == nil {
		b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("GoType of column %q must not be nil", b.desc.Name))
		return b
	}
	if b.desc.Info.Type != TypeOther {
		if base := goTypes[b.desc.Info.Type]; base != nil && !t.ConvertibleTo(base) {
			b.desc.Err = errors.Join(b.desc.Err, fmt.Errorf("GoType %s is not convertible to %s", t, base))
			return b
		}
	}
	b.desc.Info.RType = t
	b.desc.Info.Ident = t.String()
	b.desc.Info.PkgPath = t.PkgPath()
	return b
}

// SchemaType overrides the default database type with a custom
// schema type (per dialect).
func (b *Builder) SchemaType(types map[string]string) *Builder {
	b.desc.SchemaType = types
	return b
}

// Comment sets the comment of the column.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the dbgraph.Field interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
