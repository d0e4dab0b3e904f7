// Package dialect provides the database dialect abstraction of dbgraph.
//
// The package has two halves. The Driver, Tx and ExecQuerier interfaces are
// the execution contract implemented by dialect/sql. The Definition
// interface is the rendering contract: identifier quoting and length
// limits, literal formats, pagination, string functions, column types and
// capability flags. The query engine renders every vendor-specific fragment
// through a Definition and never compares dialect names itself.
//
// # Supported Dialects
//
//	dialect.H2        = "h2"
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.Oracle    = "oracle"
//	dialect.SQLServer = "sqlserver"
//	dialect.SQLite    = "sqlite"
//	dialect.NuoDB     = "nuodb"
//
// Definitions are looked up by name:
//
//	d, err := dialect.Lookup(dialect.Postgres)
//	if err != nil {
//	    return err
//	}
//	d.QuoteIdentifier("marque") // "marque"
//	d.Paginate(10, 20, true)    // LIMIT 10 OFFSET 20
//
// # Capabilities
//
// Optional features are reported as flags:
//
//	if d.Capabilities().Has(dialect.SupportsRecursiveQueries) {
//	    // WITH RECURSIVE ...
//	}
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver, statistics and retry helpers
//   - dialect/sql/sqlerr: classification of driver errors
//   - dialect/sql/schema: table model, validation and DDL planning
package dialect
