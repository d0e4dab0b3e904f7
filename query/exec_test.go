package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/internal/testdb"
	"github.com/syssam/dbgraph/internal/testschema"
	"github.com/syssam/dbgraph/operator"
	"github.com/syssam/dbgraph/query"
)

var lite = dialect.MustLookup(dialect.SQLite)

func TestCartesianRows(t *testing.T) {
	drv := testdb.Open(t, testdb.Heroes, testdb.Villains,
		`INSERT INTO hero (name) VALUES ('Lightwing'), ('Blue Flame'), ('Nimbus')`,
		`INSERT INTO villain (name) VALUES ('Dr Nonono'), ('Dr Karma'), ('Dr Dark')`,
	)
	hero := entity.MustNew(testschema.Hero{})
	villain := entity.MustNew(testschema.Villain{})

	_, err := query.New(lite, query.WithBlankQueryAllowed()).Add(hero, villain).All(context.Background(), drv)
	require.True(t, dbgraph.IsAccidentalCartesianJoin(err))

	rows, err := query.New(lite, query.WithBlankQueryAllowed(), query.WithCartesianJoinAllowed()).
		Add(hero, villain).
		All(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, rows, 9)

	pairs := make(map[[2]string]bool)
	for _, r := range rows {
		h, v := r.Get(hero), r.Get(villain)
		require.True(t, h.IsDefined())
		hn, _ := h.Value("name")
		vn, _ := v.Value("name")
		pairs[[2]string{hn.(string), vn.(string)}] = true
		assert.Same(t, h, r.Get(hero), "instances are cached per row")
		assert.Len(t, r.Instances(), 2)
	}
	assert.Len(t, pairs, 9)
	assert.Nil(t, rows[0].Get(entity.MustNew(testschema.Hero{})), "example outside the query")
}

func seedCompanies(t *testing.T) dialect.ExecQuerier {
	return testdb.Open(t, testdb.CarCompanies, testdb.Marques,
		`INSERT INTO car_company (uid_carcompany, name) VALUES (1, 'Toyota'), (2, 'Ford'), (3, 'Tesla')`,
		`INSERT INTO marque (uid_marque, name, numeric_code, fk_carcompany) VALUES (1, 'Lexus', 10, 1), (2, 'Toyota', NULL, 1), (3, 'Mustang', 30, 2)`,
	)
}

func TestRowValues(t *testing.T) {
	drv := seedCompanies(t)
	marque := entity.MustNew(testschema.Marque{})
	marque.Where("name", operator.Equals("Lexus"))
	company := entity.MustNew(testschema.CarCompany{})

	rows, err := query.New(lite, query.WithColumns("shout", expr.Upper(marque.C("name")))).
		Add(marque, company).
		All(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	m := rows[0].Get(marque)
	assert.Equal(t, "marque", m.TableName())
	pk, err := m.PrimaryKeyValue()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pk)
	code, _ := m.Value("numeric_code")
	assert.Equal(t, 10, code, "values are converted to the column type")
	date, ok := m.Value("creation_date")
	assert.True(t, ok)
	assert.Nil(t, date)
	assert.Empty(t, m.ChangedColumns())

	c := rows[0].Get(company)
	name, _ := c.Value("name")
	assert.Equal(t, "Toyota", name)

	shout, ok := rows[0].Value("shout")
	require.True(t, ok)
	assert.Equal(t, "LEXUS", shout)
	_, ok = rows[0].Value("whisper")
	assert.False(t, ok)
}

func TestRelatedInstances(t *testing.T) {
	drv := seedCompanies(t)
	company := entity.MustNew(testschema.CarCompany{})
	marque := entity.MustNew(testschema.Marque{})

	rows, err := query.New(lite,
		query.WithBlankQueryAllowed(),
		query.WithOrderBy(query.Asc(company.C("uid_carcompany")), query.Asc(marque.C("uid_marque"))),
	).Add(company).AddOptional(marque).All(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.True(t, rows[3].Get(marque).IsEmpty(), "Tesla has no marque")
	assert.False(t, rows[3].Get(company).IsEmpty())

	groups := query.RelatedInstances(rows, company, marque)
	require.Len(t, groups, 3)
	names := func(insts []*entity.Instance) []string {
		var out []string
		for _, inst := range insts {
			v, _ := inst.Value("name")
			out = append(out, v.(string))
		}
		return out
	}
	assert.Equal(t, []string{"Toyota", "Ford", "Tesla"}, names([]*entity.Instance{groups[0].Instance, groups[1].Instance, groups[2].Instance}))
	assert.Equal(t, []string{"Lexus", "Toyota"}, names(groups[0].Related))
	assert.Equal(t, []string{"Mustang"}, names(groups[1].Related))
	assert.Empty(t, groups[2].Related)

	back := query.RelatedInstances(rows, marque, company)
	require.Len(t, back, 3)
	assert.Equal(t, []string{"Toyota"}, names(back[0].Related))
}

func TestCountAndDistinct(t *testing.T) {
	drv := seedCompanies(t)
	ctx := context.Background()
	company := entity.MustNew(testschema.CarCompany{})
	marque := entity.MustNew(testschema.Marque{})
	marque.Where("name", operator.Like("%o%"))

	q := query.New(lite).Add(company, marque)
	n, err := q.Count(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all := query.New(lite, query.WithBlankQueryAllowed()).Add(company, entity.MustNew(testschema.Marque{}))
	n, err = all.Count(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	values, err := all.DistinctValues(ctx, drv, company.C("name"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Ford", "Toyota"}, values)

	distinct := query.New(lite, query.WithBlankQueryAllowed(), query.WithDistinct()).Add(company.Copy().ReturnColumns("name"))
	n, err = distinct.Count(ctx, drv)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInstancesOf(t *testing.T) {
	drv := seedCompanies(t)
	marque := entity.MustNew(testschema.Marque{})
	marque.Where("fk_carcompany", operator.Equals(1))

	got, err := query.New(lite, query.WithOrderBy(query.Desc(marque.C("name")))).
		Add(marque).
		InstancesOf(context.Background(), drv, marque)
	require.NoError(t, err)
	require.Len(t, got, 2)
	first, _ := got[0].Value("name")
	assert.Equal(t, "Toyota", first)
}

func TestExecutionError(t *testing.T) {
	drv := testdb.Open(t)
	hero := entity.MustNew(testschema.Hero{})
	hero.Where("name", operator.Equals("Lightwing"))
	_, err := query.New(lite).Add(hero).All(context.Background(), drv)
	require.Error(t, err)
	assert.True(t, dbgraph.IsQueryError(err))
	assert.ErrorContains(t, err, "no such table")
}
