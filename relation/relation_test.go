package relation_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/internal/testschema"
	"github.com/syssam/dbgraph/relation"
)

var pg = dialect.MustLookup(dialect.Postgres)

func render(es []expr.Expr) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = expr.ToSQL(e, pg)
	}
	sort.Strings(out)
	return out
}

func TestNaturalJoin(t *testing.T) {
	t.Parallel()

	marque := entity.MustNew(testschema.Marque{})
	company := entity.MustNew(testschema.CarCompany{})

	res, err := relation.Resolve(marque, company)
	require.NoError(t, err)
	assert.True(t, res.Connected())
	assert.Equal(t, []string{`"marque"."fk_carcompany" = "car_company"."uid_carcompany"`}, render(res.Expressions))
	assert.Equal(t, `"marque"."fk_carcompany" = "car_company"."uid_carcompany"`, expr.ToSQL(res.Condition(), pg))

	rev, err := relation.Resolve(company, marque)
	require.NoError(t, err)
	assert.Equal(t, render(res.Expressions), render(rev.Expressions), "resolution is symmetric")
}

func TestUnrelated(t *testing.T) {
	t.Parallel()

	hero := entity.MustNew(testschema.Hero{})
	villain := entity.MustNew(testschema.Villain{})
	ok, err := relation.Connected(hero, villain)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIgnoredForeignKey(t *testing.T) {
	t.Parallel()

	marque := entity.MustNew(testschema.Marque{})
	company := entity.MustNew(testschema.CarCompany{})
	before, err := relation.Resolve(marque, company)
	require.NoError(t, err)

	marque.IgnoreForeignKey("fk_carcompany")
	ok, err := relation.Connected(marque, company)
	require.NoError(t, err)
	assert.False(t, ok)

	marque.UseAllForeignKeys()
	after, err := relation.Resolve(marque, company)
	require.NoError(t, err)
	assert.Equal(t, render(before.Expressions), render(after.Expressions))
}

func TestAdHocRelationship(t *testing.T) {
	t.Parallel()

	hero := entity.MustNew(testschema.Hero{})
	villain := entity.MustNew(testschema.Villain{})
	other := entity.MustNew(testschema.Villain{})
	hero.AddRelationship(expr.EQ(hero.C("name"), villain.C("name")))

	res, err := relation.Resolve(hero, villain)
	require.NoError(t, err)
	assert.Equal(t, []string{`"hero"."name" = "villain"."name"`}, render(res.Expressions))

	rev, err := relation.Resolve(villain, hero)
	require.NoError(t, err)
	assert.Equal(t, render(res.Expressions), render(rev.Expressions))

	ok, err := relation.Connected(hero, other)
	require.NoError(t, err)
	assert.False(t, ok, "relationship names another villain instance")

	// A relationship on the owner alone applies to every pairing.
	local := entity.MustNew(testschema.Hero{})
	local.AddRelationship(expr.Like(local.C("name"), expr.Value("L%")))
	ok, err = relation.Connected(local, villain)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSpanningRelationship(t *testing.T) {
	t.Parallel()

	hero := entity.MustNew(testschema.Hero{})
	villain := entity.MustNew(testschema.Villain{})
	fight := entity.MustNew(testschema.Fight{})
	rel := expr.And(
		expr.EQ(fight.C("hero"), hero.C("name")),
		expr.EQ(fight.C("villain"), villain.C("name")),
	)
	fight.AddRelationship(rel)

	for _, other := range []*entity.Instance{hero, villain} {
		ok, err := relation.Connected(fight, other)
		require.NoError(t, err)
		assert.False(t, ok, "a pair cannot render a condition on a third table")
	}
	assert.Equal(t, []expr.Expr{rel}, relation.Spanning(fight))
	assert.Empty(t, relation.Spanning(hero))
}

func TestNaturalAndAdHocOrder(t *testing.T) {
	t.Parallel()

	marque := entity.MustNew(testschema.Marque{})
	company := entity.MustNew(testschema.CarCompany{})
	company.AddRelationship(expr.EQ(company.C("name"), marque.C("name")))
	marque.AddRelationship(expr.GT(marque.C("uid_marque"), company.C("uid_carcompany")))

	res, err := relation.Resolve(marque, company)
	require.NoError(t, err)
	require.Len(t, res.Expressions, 3)
	assert.Equal(t, []string{
		`"marque"."fk_carcompany" = "car_company"."uid_carcompany"`,
		`"marque"."uid_marque" > "car_company"."uid_carcompany"`,
		`"car_company"."name" = "marque"."name"`,
	}, []string{
		expr.ToSQL(res.Expressions[0], pg),
		expr.ToSQL(res.Expressions[1], pg),
		expr.ToSQL(res.Expressions[2], pg),
	})
}

func TestUndefinedPrimaryKey(t *testing.T) {
	t.Parallel()

	child := entity.MustNew(testschema.Child{})
	parent := entity.MustNew(testschema.Parent{})
	_, err := relation.Resolve(child, parent)
	var uerr *dbgraph.UndefinedPrimaryKeyError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "parent", uerr.Table)

	child.IgnoreForeignKey("fk_parent")
	child.AddRelationship(expr.EQ(child.C("uid_child"), parent.C("name")))
	ok, err := relation.Connected(child, parent)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForeignKeyTypes(t *testing.T) {
	t.Parallel()

	company := entity.MustNew(testschema.CarCompany{})

	t.Run("Mismatch", func(t *testing.T) {
		showroom := entity.MustNew(testschema.Showroom{})
		res, err := relation.Resolve(showroom, company)
		require.Error(t, err)
		assert.True(t, dbgraph.IsForeignKeyTypeMismatch(err))
		assert.ErrorContains(t, err, "showroom.fk_carcompany (string)")
		assert.Len(t, res.Mismatches, 1)
	})

	t.Run("MismatchWithOtherJoin", func(t *testing.T) {
		showroom := entity.MustNew(testschema.Showroom{})
		showroom.AddRelationship(expr.EQ(showroom.C("uid_showroom"), company.C("uid_carcompany")))
		res, err := relation.Resolve(showroom, company)
		require.NoError(t, err)
		assert.True(t, res.Connected())
		assert.Len(t, res.Mismatches, 1)
	})

	t.Run("SameFamilySkipped", func(t *testing.T) {
		dealer := entity.MustNew(testschema.Dealer{})
		res, err := relation.Resolve(dealer, company)
		require.NoError(t, err)
		assert.False(t, res.Connected())
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, "fk_carcompany", res.Skipped[0].Column.Name)
	})
}
