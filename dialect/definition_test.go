package dialect_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/schema/field"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	for _, name := range []string{dialect.H2, dialect.MySQL, dialect.Postgres, dialect.Oracle, dialect.SQLServer, dialect.SQLite, dialect.NuoDB} {
		d, err := dialect.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, d.Name())
	}
	_, err := dialect.Lookup("db2")
	assert.EqualError(t, err, `dialect: unknown dialect "db2"`)
	assert.Panics(t, func() { dialect.MustLookup("db2") })
	assert.Contains(t, dialect.Names(), dialect.NuoDB)
}

func TestQuoteIdentifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		in      string
		want    string
	}{
		{dialect.Postgres, "marque", `"marque"`},
		{dialect.Postgres, `we"ird`, `"we""ird"`},
		{dialect.MySQL, "marque", "`marque`"},
		{dialect.SQLServer, "marque", "[marque]"},
		{dialect.SQLServer, "a]b", "[a]]b]"},
		{dialect.SQLite, "marque", `"marque"`},
		{dialect.Oracle, "marque", `"marque"`},
	}
	for _, tt := range tests {
		d := dialect.MustLookup(tt.dialect)
		assert.Equal(t, tt.want, d.QuoteIdentifier(tt.in), tt.dialect)
	}
}

func TestIdentifierLimits(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("column_", 12)
	for _, name := range []string{dialect.Postgres, dialect.MySQL} {
		d := dialect.MustLookup(name)
		got := d.FormatColumnName(long)
		assert.NotEqual(t, long, got, name)
		assert.Equal(t, got, d.FormatColumnName(long), "shortening must be stable")
	}
	pg := dialect.MustLookup(dialect.Postgres)
	assert.LessOrEqual(t, len(pg.FormatTableName(long)), 63)
	assert.Equal(t, "marque", pg.FormatTableName("marque"))
	assert.Equal(t, long, dialect.MustLookup(dialect.SQLite).FormatTableName(long))
}

func TestOracle(t *testing.T) {
	t.Parallel()

	d := dialect.MustLookup(dialect.Oracle)
	assert.Equal(t, "Otable", d.FormatTableName("_table"))
	assert.Equal(t, "Otable_name", d.FormatTableName("-table-name"))
	long := strings.Repeat("x", 30)
	got := d.FormatTableName(long)
	assert.True(t, strings.HasPrefix(got, "O"))
	assert.Less(t, len(got), 30)
	assert.True(t, strings.HasPrefix(d.FormatColumnAlias("t0_name"), `"DB`))
	assert.Equal(t, " ", d.TableAliasKeyword())
	assert.Equal(t, "", d.EndStatement())
	assert.Equal(t, "NUMBER(1)", d.ColumnType(field.TypeBool, 0))
	assert.Equal(t, "VARCHAR2(1000)", d.ColumnType(field.TypeString, 0))
	assert.Equal(t, "TIMESTAMP", d.ColumnType(field.TypeTime, 0))
	assert.Equal(t, "INSTR(a, b)", d.Position("a", "b"))
	assert.Equal(t, "SUBSTR(s, 1, 2)", d.Substring("s", "1", "2"))
	assert.Equal(t, "NVL(a, b)", d.IfNull("a", "b"))
	assert.False(t, d.Capabilities().Has(dialect.SupportsDegrees))
	assert.False(t, d.Capabilities().Has(dialect.SupportsRadians))
	assert.False(t, d.Capabilities().Has(dialect.DistinguishesNullAndEmptyString))

	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "TO_TIMESTAMP_TZ('2024-3-9 07:05:01 +0000', 'YYYY-MM-DD HH24:MI:SS TZHTZM')", d.DateLiteral(ts))
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect       string
		limit, offset int
		ordered       bool
		want          string
	}{
		{dialect.Postgres, 10, 0, false, "LIMIT 10"},
		{dialect.Postgres, 10, 20, false, "LIMIT 10 OFFSET 20"},
		{dialect.Postgres, 0, 0, false, ""},
		{dialect.MySQL, 0, 5, false, "LIMIT 18446744073709551615 OFFSET 5"},
		{dialect.SQLite, 0, 5, false, "LIMIT -1 OFFSET 5"},
		{dialect.Oracle, 10, 0, false, "OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY"},
		{dialect.SQLServer, 10, 5, true, "OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY"},
		{dialect.SQLServer, 10, 0, false, "ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY"},
		{dialect.SQLServer, 0, 0, false, ""},
	}
	for _, tt := range tests {
		d := dialect.MustLookup(tt.dialect)
		assert.Equal(t, tt.want, d.Paginate(tt.limit, tt.offset, tt.ordered), "%s %d/%d", tt.dialect, tt.limit, tt.offset)
	}
}

func TestStringFunctions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect  string
		position string
		substr   string
		concat   string
		length   string
	}{
		{dialect.Postgres, "POSITION(n IN h)", "SUBSTRING(s, 2)", "(a || b)", "CHAR_LENGTH(s)"},
		{dialect.MySQL, "LOCATE(n, h)", "SUBSTRING(s, 2)", "CONCAT(a, b)", "CHAR_LENGTH(s)"},
		{dialect.H2, "LOCATE(n, h)", "SUBSTRING(s, 2)", "(a || b)", "CHAR_LENGTH(s)"},
		{dialect.SQLite, "INSTR(h, n)", "SUBSTR(s, 2)", "(a || b)", "LENGTH(s)"},
		{dialect.SQLServer, "CHARINDEX(n, h)", "SUBSTRING(s, 2, LEN(s))", "(a + b)", "LEN(s)"},
		{dialect.NuoDB, "LOCATE(n, h)", "SUBSTR(s, 2)", "(a || b)", "LENGTH(s)"},
	}
	for _, tt := range tests {
		d := dialect.MustLookup(tt.dialect)
		assert.Equal(t, tt.position, d.Position("h", "n"), tt.dialect)
		assert.Equal(t, tt.substr, d.Substring("s", "2", ""), tt.dialect)
		assert.Equal(t, tt.concat, d.Concat("a", "b"), tt.dialect)
		assert.Equal(t, tt.length, d.StringLength("s"), tt.dialect)
	}
}

func TestLiterals(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `'it''s'`, dialect.MustLookup(dialect.Postgres).StringLiteral("it's"))
	assert.Equal(t, `'a\\b'`, dialect.MustLookup(dialect.MySQL).StringLiteral(`a\b`))
	assert.Equal(t, `N'x'`, dialect.MustLookup(dialect.SQLServer).StringLiteral("x"))
	assert.Equal(t, "TRUE", dialect.MustLookup(dialect.Postgres).BooleanLiteral(true))
	assert.Equal(t, "0", dialect.MustLookup(dialect.SQLServer).BooleanLiteral(false))

	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "'2024-03-09 07:05:01.000000'", dialect.MustLookup(dialect.SQLite).DateLiteral(ts))
	assert.Equal(t, "TIMESTAMP '2024-03-09 07:05:01.000000'", dialect.MustLookup(dialect.H2).DateLiteral(ts))
	assert.Equal(t, "CAST('2024-03-09T07:05:01.000000' AS DATETIME2)", dialect.MustLookup(dialect.SQLServer).DateLiteral(ts))
}

func TestDateLiteralMicroseconds(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 9, 7, 5, 1, 123456789, time.UTC)
	assert.Equal(t, "TIMESTAMP '2024-03-09 07:05:01.123456'", dialect.MustLookup(dialect.H2).DateLiteral(ts))
	assert.Equal(t, "TIMESTAMP '2024-03-09 07:05:01.123456'", dialect.MustLookup(dialect.NuoDB).DateLiteral(ts))
	assert.Equal(t, "'2024-03-09 07:05:01.123456'", dialect.MustLookup(dialect.MySQL).DateLiteral(ts))
	assert.Equal(t, "'2024-03-09 07:05:01.123456'", dialect.MustLookup(dialect.SQLite).DateLiteral(ts))
	assert.Equal(t, "TIMESTAMP WITH TIME ZONE '2024-03-09 07:05:01.123456+00:00'", dialect.MustLookup(dialect.Postgres).DateLiteral(ts))
	assert.Equal(t, "CAST('2024-03-09T07:05:01.123456' AS DATETIME2)", dialect.MustLookup(dialect.SQLServer).DateLiteral(ts))
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	assert.False(t, dialect.MustLookup(dialect.NuoDB).Capabilities().Has(dialect.SupportsRecursiveQueries))
	assert.True(t, dialect.MustLookup(dialect.SQLite).Capabilities().Has(dialect.SupportsRecursiveQueries|dialect.SupportsLastInsertID))
	assert.False(t, dialect.MustLookup(dialect.Postgres).Capabilities().Has(dialect.SupportsLastInsertID))
	assert.Equal(t, "WITH ", dialect.MustLookup(dialect.SQLServer).RecursiveWith())
	assert.Equal(t, "WITH RECURSIVE ", dialect.MustLookup(dialect.Postgres).RecursiveWith())
}

type custom struct{ dialect.Definition }

func (custom) Name() string { return "custom" }

func TestRegister(t *testing.T) {
	dialect.Register(custom{dialect.MustLookup(dialect.Postgres)})
	d, err := dialect.Lookup("custom")
	require.NoError(t, err)
	assert.Equal(t, `"x"`, d.QuoteIdentifier("x"))
}
