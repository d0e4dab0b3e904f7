package field_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/schema/field"
)

type company struct{}

func TestInt(t *testing.T) {
	fd := field.Int64("uid").
		PrimaryKey().
		AutoIncrement().
		Comment("comment").
		Descriptor()
	assert.Equal(t, "uid", fd.Name)
	assert.Equal(t, field.TypeInt64, fd.Info.Type)
	assert.True(t, fd.PrimaryKey)
	assert.True(t, fd.AutoIncrement)
	assert.Equal(t, "comment", fd.Comment)
	assert.Equal(t, reflect.TypeOf(int64(0)), fd.GoType())
	assert.NoError(t, fd.Err)

	assert.Equal(t, field.TypeInt, field.Int("n").Descriptor().Info.Type)
	assert.Equal(t, field.TypeInt32, field.Int32("n").Descriptor().Info.Type)

	type Count int64
	fd = field.Int64("active").GoType(Count(0)).Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, "field_test.Count", fd.Info.Ident)
	assert.Equal(t, "github.com/syssam/dbgraph/schema/field_test", fd.Info.PkgPath)
	assert.Equal(t, reflect.TypeOf(Count(0)), fd.GoType())

	fd = field.Int64("active").GoType("").Descriptor()
	assert.Error(t, fd.Err)
}

func TestString(t *testing.T) {
	fd := field.String("name").
		Size(100).
		Nillable().
		SchemaType(map[string]string{dialect.Oracle: "VARCHAR2(100)"}).
		Descriptor()
	assert.Equal(t, field.TypeString, fd.Info.Type)
	assert.Equal(t, 100, fd.Size)
	assert.True(t, fd.Nillable)
	assert.Equal(t, "VARCHAR2(100)", fd.SchemaType[dialect.Oracle])

	assert.Error(t, field.String("name").Size(0).Descriptor().Err)
	assert.Equal(t, field.TypeText, field.Text("body").Descriptor().Info.Type)
}

func TestReferences(t *testing.T) {
	fd := field.Int64("fk_company").References(company{}).Descriptor()
	assert.True(t, fd.IsForeignKey())
	assert.Equal(t, reflect.TypeOf(company{}), fd.References)

	fd = field.Int64("fk_company").References(&company{}).Descriptor()
	assert.Equal(t, reflect.TypeOf(company{}), fd.References, "pointers are dereferenced")

	fd = field.Int64("fk_company").References(nil).Descriptor()
	assert.Error(t, fd.Err)
	assert.False(t, fd.IsForeignKey())
}

func TestOther(t *testing.T) {
	fd := field.Other("born", time.Duration(0)).Descriptor()
	require.NoError(t, fd.Err)
	assert.Equal(t, field.TypeOther, fd.Info.Type)
	assert.Equal(t, "time.Duration", fd.Info.String())
}

func TestTypeFamilies(t *testing.T) {
	tests := []struct {
		a, b       *field.Descriptor
		comparable bool
	}{
		{field.Int32("a").Descriptor(), field.Int64("b").Descriptor(), true},
		{field.Float64("a").Descriptor(), field.Int("b").Descriptor(), true},
		{field.String("a").Descriptor(), field.Text("b").Descriptor(), true},
		{field.String("a").Descriptor(), field.Int64("b").Descriptor(), false},
		{field.Time("a").Descriptor(), field.String("b").Descriptor(), false},
		{field.Bool("a").Descriptor(), field.Bool("b").Descriptor(), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.comparable, tt.a.Info.Comparable(*tt.b.Info), "%s vs %s", tt.a.Info, tt.b.Info)
	}
	assert.True(t, field.TypeInt64.Integer())
	assert.False(t, field.TypeFloat64.Integer())
	assert.True(t, field.TypeBytes.LOB())
	assert.Equal(t, "invalid", field.Type(200).String())
}
