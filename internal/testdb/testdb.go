// Package testdb opens in-memory SQLite databases for the tests of the
// module.
package testdb

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql"
)

// Open returns a driver on a private in-memory database with foreign keys
// enforced, after executing stmts. The database is closed with the test.
func Open(t testing.TB, stmts ...string) *sql.Driver {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	drv, err := sql.Open(dialect.SQLite, "file:"+name+"?mode=memory&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// Every connection to a memory database is a new database.
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = drv.Close() })
	Exec(t, drv, stmts...)
	return drv
}

// Exec executes stmts and fails the test on the first error.
func Exec(t testing.TB, drv *sql.Driver, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		require.NoError(t, drv.Exec(context.Background(), s, []any{}, nil), s)
	}
}

// Schema of the test entities.
const (
	CarCompanies  = `CREATE TABLE car_company (uid_carcompany integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL)`
	Marques       = `CREATE TABLE marque (uid_marque integer PRIMARY KEY, name text NOT NULL, numeric_code integer, fk_carcompany integer NOT NULL REFERENCES car_company (uid_carcompany), creation_date datetime)`
	Heroes        = `CREATE TABLE hero (uid_hero integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL)`
	Villains      = `CREATE TABLE villain (uid_villain integer PRIMARY KEY AUTOINCREMENT, name text NOT NULL)`
	Employees     = `CREATE TABLE employee (uid_employee integer PRIMARY KEY, name text NOT NULL, fk_manager integer REFERENCES employee (uid_employee))`
	Fights        = `CREATE TABLE fight (hero text NOT NULL, villain text NOT NULL)`
	Professionals = `CREATE TABLE professional (title text NOT NULL, surname text NOT NULL)`
)
