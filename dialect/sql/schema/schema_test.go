package schema_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql/schema"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/internal/testdb"
	"github.com/syssam/dbgraph/internal/testschema"
	"github.com/syssam/dbgraph/schema/field"
)

func TestTables(t *testing.T) {
	t.Parallel()

	company := entity.MustNew(testschema.CarCompany{}).Descriptor()
	marque := entity.MustNew(testschema.Marque{}).Descriptor()
	tables, err := schema.Tables(company, marque)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	ct, mt := tables[0], tables[1]
	assert.Equal(t, "car_company", ct.Name)
	require.Len(t, ct.PrimaryKey, 1)
	assert.True(t, ct.PrimaryKey[0].Increment)
	name, ok := ct.Column("name")
	require.True(t, ok)
	assert.Equal(t, 50, name.Size)

	code, _ := mt.Column("numeric_code")
	assert.True(t, code.Nullable)
	assert.Equal(t, field.TypeInt, code.Type)
	require.Len(t, mt.ForeignKeys, 1)
	fk := mt.ForeignKeys[0]
	assert.Equal(t, "marque_fk_carcompany", fk.Symbol)
	assert.Same(t, ct, fk.RefTable, "referenced tables of the list are shared")
	assert.Equal(t, "uid_carcompany", fk.RefColumns[0].Name)

	alone, err := schema.Tables(marque)
	require.NoError(t, err)
	assert.Equal(t, "car_company", alone[0].ForeignKeys[0].RefTable.Name)
	assert.Len(t, alone[0].ForeignKeys[0].RefTable.Columns, 1)

	child, err := schema.Tables(entity.MustNew(testschema.Child{}).Descriptor())
	require.NoError(t, err)
	assert.Empty(t, child[0].ForeignKeys, "parent has no primary key")
	assert.NoError(t, schema.Lint(child).Err())
}

func TestPlanFallback(t *testing.T) {
	t.Parallel()

	tables, err := schema.Tables(
		entity.MustNew(testschema.CarCompany{}).Descriptor(),
		entity.MustNew(testschema.Marque{}).Descriptor(),
	)
	require.NoError(t, err)
	stmts, err := schema.Plan(context.Background(), dialect.MustLookup(dialect.SQLServer), tables...)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`CREATE TABLE [car_company] ([uid_carcompany] BIGINT IDENTITY(1,1) NOT NULL, [name] NVARCHAR(50) NOT NULL, PRIMARY KEY ([uid_carcompany]))`,
		`CREATE TABLE [marque] ([uid_marque] BIGINT NOT NULL, [name] NVARCHAR(255) NOT NULL, [numeric_code] INT, [fk_carcompany] BIGINT NOT NULL, [creation_date] DATETIME2, ` +
			`PRIMARY KEY ([uid_marque]), CONSTRAINT [marque_fk_carcompany] FOREIGN KEY ([fk_carcompany]) REFERENCES [car_company] ([uid_carcompany]))`,
	}, stmts)
	assert.Equal(t, `DROP TABLE [marque]`, schema.DropSQL(dialect.MustLookup(dialect.SQLServer), tables[1]))

	h2, err := schema.Plan(context.Background(), dialect.MustLookup(dialect.H2), tables[0])
	require.NoError(t, err)
	assert.Contains(t, h2[0], `"uid_carcompany" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL`)

	other := schema.NewTable("blob_store").AddColumns(&schema.Column{Name: "payload", Type: field.TypeOther})
	_, err = schema.Plan(context.Background(), dialect.MustLookup(dialect.Oracle), other)
	assert.ErrorContains(t, err, "no oracle type")

	other.Columns[0].SchemaType = map[string]string{dialect.Oracle: "XMLTYPE"}
	stmts, err = schema.Plan(context.Background(), dialect.MustLookup(dialect.Oracle), other)
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `"payload" XMLTYPE NOT NULL`)
}

func TestPlanSQLite(t *testing.T) {
	t.Parallel()

	tables, err := schema.Tables(
		entity.MustNew(testschema.CarCompany{}).Descriptor(),
		entity.MustNew(testschema.Marque{}).Descriptor(),
	)
	require.NoError(t, err)
	stmts, err := schema.Plan(context.Background(), dialect.MustLookup(dialect.SQLite), tables...)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "`uid_carcompany` integer NOT NULL PRIMARY KEY AUTOINCREMENT")
	assert.Contains(t, stmts[1], "FOREIGN KEY (`fk_carcompany`) REFERENCES `car_company` (`uid_carcompany`)")

	drv := testdb.Open(t, stmts...)
	testdb.Exec(t, drv,
		`INSERT INTO car_company (name) VALUES ('Toyota')`,
		`INSERT INTO marque (uid_marque, name, fk_carcompany) VALUES (1, 'Lexus', 1)`,
	)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	lite := dialect.MustLookup(dialect.SQLite)
	hero, err := schema.Tables(entity.MustNew(testschema.Hero{}).Descriptor())
	require.NoError(t, err)
	stmts, err := schema.Plan(ctx, lite, hero...)
	require.NoError(t, err)
	drv := testdb.Open(t, stmts...)

	report, err := schema.Check(ctx, lite, drv.DB(), hero)
	require.NoError(t, err)
	assert.Empty(t, report, report.String())

	villain, err := schema.Tables(entity.MustNew(testschema.Villain{}).Descriptor())
	require.NoError(t, err)
	report, err = schema.Check(ctx, lite, drv.DB(), villain)
	require.NoError(t, err)
	assert.EqualError(t, report.Err(), "villain: table does not exist")

	testdb.Exec(t, drv, `ALTER TABLE hero ADD COLUMN power text`)
	report, err = schema.Check(ctx, lite, drv.DB(), hero)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "power", report[0].Column)
	assert.Equal(t, schema.Warning, report[0].Severity)
	assert.NoError(t, report.Err())

	report, err = schema.Check(ctx, lite, drv.DB(), hero, schema.IgnoreUndeclaredColumns())
	require.NoError(t, err)
	assert.Empty(t, report)

	testdb.Exec(t, drv, `ALTER TABLE hero ADD COLUMN rank integer NOT NULL DEFAULT 0`)
	report, err = schema.Check(ctx, lite, drv.DB(), hero, schema.IgnoreUndeclaredColumns())
	require.NoError(t, err)
	assert.Empty(t, report, "columns with default do not break inserts")

	_, err = schema.Check(ctx, dialect.MustLookup(dialect.Oracle), drv.DB(), hero)
	assert.ErrorContains(t, err, "no schema inspector")
}

func TestDiff(t *testing.T) {
	t.Parallel()

	current := schema.NewTable("marque").AddColumns(
		&schema.Column{Name: "uid_marque", Type: field.TypeInt64},
		&schema.Column{Name: "name", Type: field.TypeText, Size: 50},
		&schema.Column{Name: "code", Type: field.TypeInt, Nullable: true},
		&schema.Column{Name: "legacy", Type: field.TypeString},
	)
	desired := schema.NewTable("marque").AddColumns(
		&schema.Column{Name: "uid_marque", Type: field.TypeInt32},
		&schema.Column{Name: "name", Type: field.TypeString, Size: 100},
		&schema.Column{Name: "code", Type: field.TypeString},
		&schema.Column{Name: "created", Type: field.TypeTime},
	)
	report := schema.Diff([]*schema.Table{current}, []*schema.Table{desired})
	var msgs []string
	for _, d := range report {
		msgs = append(msgs, d.Severity.String()+" "+d.Error())
	}
	assert.Equal(t, []string{
		"warning marque.name: declared size 100 exceeds database size 50",
		"breaking marque.code: declared as string, database column is int",
		"warning marque.code: database column allows NULL, declared NOT NULL",
		"breaking marque.created: column does not exist",
		"breaking marque.legacy: undeclared NOT NULL column without default fails inserts",
	}, msgs)
	assert.Len(t, report.Breaking(), 3)

	report = schema.Diff([]*schema.Table{current}, []*schema.Table{desired}, schema.IgnoreNullability())
	assert.Len(t, report, 4)
}

func TestLint(t *testing.T) {
	t.Parallel()

	tbl := schema.NewTable("tag").AddColumns(
		&schema.Column{Name: "label", Type: field.TypeString, Increment: true},
		&schema.Column{Name: "label", Type: field.TypeString},
	)
	report := schema.Lint([]*schema.Table{tbl, schema.NewTable("tag")})
	assert.Len(t, report.Breaking(), 3)
	assert.Contains(t, report.String(), "[warning] tag: table has no primary key")
	assert.Contains(t, report.String(), "[breaking] tag: duplicate table name")
	assert.Equal(t, "no differences", schema.Report(nil).String())
}
