package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/expr/search"
	"github.com/syssam/dbgraph/internal/testdb"
	"github.com/syssam/dbgraph/internal/testschema"
	"github.com/syssam/dbgraph/query"
)

var lite = dialect.MustLookup(dialect.SQLite)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []search.Term
	}{
		{"", nil},
		{"   ", nil},
		{"wing", []search.Term{{Text: "wing"}}},
		{"blue  flame", []search.Term{{Text: "blue"}, {Text: "flame"}}},
		{`"blue flame" nimbus`, []search.Term{{Text: "blue flame", Quoted: true}, {Text: "nimbus"}}},
		{"+wing -nimbus", []search.Term{{Text: "wing", Mode: search.Preferred}, {Text: "nimbus", Mode: search.Reduced}}},
		{"villain:karma", []search.Term{{Text: "karma", Alias: "villain"}}},
		{`+villain:"dr karma"`, []search.Term{{Text: "dr karma", Alias: "villain", Quoted: true, Mode: search.Preferred}}},
		{"-hero:wing", []search.Term{{Text: "wing", Alias: "hero", Mode: search.Reduced}}},
		{"a:b:c", []search.Term{{Text: "b:c", Alias: "a"}}},
		{":wing", []search.Term{{Text: ":wing"}}},
		{`"unterminated phrase`, []search.Term{{Text: "unterminated phrase", Quoted: true}}},
		{`+ - "" x:`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, search.Parse(tt.in))
		})
	}
}

func TestWeights(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, search.Plain.Weight())
	assert.Equal(t, 2.0, search.Preferred.Weight())
	assert.Equal(t, -0.5, search.Reduced.Weight())
}

func TestRanking(t *testing.T) {
	t.Parallel()

	hero := entity.MustNew(testschema.Hero{})
	s := search.Across("+Wing nimbus", search.Column{Alias: "name", Expr: hero.C("name")})

	wing := `(CASE WHEN INSTR(LOWER("hero"."name"), 'wing') > 0 THEN 2 ELSE 0 END)`
	nimbus := `(CASE WHEN INSTR(LOWER("hero"."name"), 'nimbus') > 0 THEN 1 ELSE 0 END)`
	rank := "(" + wing + " + " + nimbus + ")"
	assert.Equal(t, rank, expr.ToSQL(s.Ranking(), lite))
	assert.Equal(t, rank+" > 0", expr.ToSQL(s.Condition(), lite))

	asc, desc := s.Ascending(), s.Descending()
	assert.False(t, asc.Desc)
	assert.True(t, desc.Desc)
	assert.Equal(t, rank, expr.ToSQL(desc.Expr, lite))

	assert.Equal(t, "0", expr.ToSQL(search.Across("").Ranking(), lite), "no terms rank nothing")
}

func TestAliasedTerms(t *testing.T) {
	t.Parallel()

	fight := entity.MustNew(testschema.Fight{})
	s := search.Across("villain:karma").
		Column(fight.C("hero"), "hero").
		Column(fight.C("villain"), "villain")
	assert.Equal(t, `(CASE WHEN INSTR(LOWER("fight"."villain"), 'karma') > 0 THEN 1 ELSE 0 END)`, expr.ToSQL(s.Ranking(), lite))

	s = search.Across("nobody:karma", search.Column{Alias: "hero", Expr: fight.C("hero")})
	assert.Equal(t, "0", expr.ToSQL(s.Ranking(), lite), "unknown alias matches no column")
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	s := search.Across("wing").
		AddQuoted("blue flame").
		AddPreferred("nimbus").
		AddReduced("dr").
		AddAliased("karma", "villain").
		AddPreferred("  ").
		Add(`+"red sun"`)
	assert.Equal(t, []search.Term{
		{Text: "wing"},
		{Text: "blue flame", Quoted: true},
		{Text: "nimbus", Mode: search.Preferred},
		{Text: "dr", Mode: search.Reduced},
		{Text: "karma", Alias: "villain"},
		{Text: "red sun", Quoted: true, Mode: search.Preferred},
	}, s.Terms())
}

func TestSearchRows(t *testing.T) {
	drv := testdb.Open(t, testdb.Heroes,
		`INSERT INTO hero (name) VALUES ('Lightwing'), ('Blue Flame'), ('Nimbus'), ('Nightshade')`,
	)
	hero := entity.MustNew(testschema.Hero{})
	s := search.Across(`+wing "blue flame" -nimbus`, search.Column{Alias: "name", Expr: hero.C("name")})
	hero.AddCondition(s.Condition())

	rows, err := query.New(lite, query.WithOrderBy(s.Descending()), query.WithColumns("rank", s.Ranking())).
		Add(hero).
		All(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var names []string
	for _, r := range rows {
		name, _ := r.Get(hero).Value("name")
		names = append(names, name.(string))
	}
	assert.Equal(t, []string{"Lightwing", "Blue Flame"}, names)
	rank, ok := rows[0].Value("rank")
	require.True(t, ok)
	assert.EqualValues(t, 2, rank)

	rows, err = query.New(lite, query.WithOrderBy(s.Ascending())).Add(hero).All(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	name, _ := rows[0].Get(hero).Value("name")
	assert.Equal(t, "Blue Flame", name)
}
