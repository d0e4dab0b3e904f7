// Package sql implements the dialect.Driver contract on top of database/sql.
//
// Statements rendered by the query and action packages are executed through
// a Driver:
//
//	drv, err := sql.Open(dialect.SQLite, "file:cars?mode=memory&_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//
// The dialect name doubles as the database/sql driver name; the drivers for
// Postgres (lib/pq), MySQL (go-sql-driver/mysql), SQLite (modernc.org/sqlite)
// and SQL Server (go-mssqldb) are registered by the config package.
//
// # Instrumentation
//
// StatsDriver counts statements and reports slow ones, DebugDriver logs
// every statement through log/slog:
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowQueryLog(logger))
//	debug := sql.NewDebugDriver(drv, logger)
//
// Statements are classified by KindOf into selects, inserts, updates,
// deletes and DDL; statistics are kept per kind.
//
// # Retry
//
// ExecRetryOnce executes a statement and retries it exactly once when the
// first failure is transient, as classified by the sqlerr package. A second
// failure is returned as a *dbgraph.StatementError carrying the statement.
//
//	res, err := sql.ExecRetryOnce(ctx, drv, "INSERT INTO hero (name) VALUES ('Lightwing')")
//
// # Session Settings
//
// Settings attached with WithSetting, or to a driver with Session, are
// applied on the connection before every statement. Outside transactions
// they are restored before the connection returns to the pool:
//
//	drv = drv.Session(sql.Setting{Name: "lock_timeout", Value: "2s"})
//	ctx = sql.WithSetting(ctx, "statement_timeout", "5s")
package sql
