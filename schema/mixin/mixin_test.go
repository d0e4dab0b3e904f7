package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/schema/field"
	"github.com/syssam/dbgraph/schema/mixin"
)

type Note struct {
	dbgraph.Schema
}

func (Note) Mixin() []dbgraph.Mixin {
	return []dbgraph.Mixin{
		mixin.ID{},
		mixin.TenantID{},
		mixin.TimeSoftDelete{},
	}
}

func (Note) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Text("body"),
	}
}

type Legacy struct {
	dbgraph.Schema
}

func (Legacy) Mixin() []dbgraph.Mixin {
	return []dbgraph.Mixin{mixin.Nillable(mixin.Time{})}
}

func (Legacy) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_legacy").PrimaryKey(),
	}
}

type Twice struct {
	dbgraph.Schema
}

func (Twice) Mixin() []dbgraph.Mixin {
	return []dbgraph.Mixin{mixin.ID{}}
}

func (Twice) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_twice").PrimaryKey(),
	}
}

func names(d *entity.Descriptor) []string {
	var names []string
	for _, c := range d.Columns() {
		names = append(names, c.Name)
	}
	return names
}

func TestMixinColumns(t *testing.T) {
	t.Parallel()

	d, err := entity.Describe(Note{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "tenant_id", "created_at", "updated_at", "deleted_at", "body"}, names(d))
	pk := d.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Name)
	assert.True(t, pk.Desc.AutoIncrement)

	col := d.Column("deleted_at")
	require.NotNil(t, col)
	assert.True(t, col.Desc.Nillable)
	col = d.Column("created_at")
	require.NotNil(t, col)
	assert.False(t, col.Desc.Nillable)
	assert.Equal(t, "Timestamp when the row was created", col.Desc.Comment)
}

func TestNillable(t *testing.T) {
	t.Parallel()

	d, err := entity.Describe(Legacy{})
	require.NoError(t, err)
	assert.Equal(t, []string{"created_at", "updated_at", "uid_legacy"}, names(d))
	for _, c := range d.Columns()[:2] {
		assert.True(t, c.Desc.Nillable, c.Name)
	}
	assert.False(t, mixin.Time{}.Fields()[0].Descriptor().Nillable, "wrapped mixins are left unchanged")
}

func TestMixinPrimaryKeyConflict(t *testing.T) {
	t.Parallel()

	_, err := entity.Describe(Twice{})
	var derr *dbgraph.InvalidEntityDefinitionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "uid_twice", derr.Column)
}

func TestSchema(t *testing.T) {
	t.Parallel()
	assert.Nil(t, mixin.Schema{}.Fields())
	assert.Nil(t, dbgraph.Schema{}.Mixin())
}
