// Package sqlerr classifies the errors returned by the supported SQL drivers.
package sqlerr

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/syssam/dbgraph"
)

// errorCoder is implemented by drivers exposing a string error code.
type errorCoder interface {
	Code() string
}

// sqlStateError is implemented by drivers exposing SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgAdminShutdown       = "57P01"
	pgCrashShutdown       = "57P02"
	pgCannotConnectNow    = "57P03"
)

// PostgreSQL SQLSTATE classes of transient failures.
const (
	pgClassTransactionRollback = "40"
	pgClassConnectionException = "08"
)

// MySQL error numbers.
const (
	mysqlTooManyConnections     = 1040
	mysqlDuplicateEntry         = 1062
	mysqlLockWaitTimeout        = 1205
	mysqlDeadlock               = 1213
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// SQL Server error numbers.
const (
	mssqlDeadlockVictim     = 1205
	mssqlLockRequestTimeout = 1222
	mssqlUniqueIndex        = 2601
	mssqlUniqueConstraint   = 2627
	mssqlForeignKey         = 547
)

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return dbgraph.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness
// constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok && code == pgUniqueViolation {
		return true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok && e.Number == mysqlDuplicateEntry {
		return true
	}
	if code, ok := sqliteCode(err); ok && (code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return true
	}
	if n, ok := mssqlNumber(err); ok && (n == mssqlUniqueIndex || n == mssqlUniqueConstraint) {
		return true
	}
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database
// foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok && code == pgForeignKeyViolation {
		return true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok && (e.Number == mysqlForeignKeyParent || e.Number == mysqlForeignKeyChild) {
		return true
	}
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	if n, ok := mssqlNumber(err); ok && n == mssqlForeignKey {
		return true
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL (parent row)
		"Error 1452",                      // MySQL (child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports if the error resulted from a database check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok && code == pgCheckViolation {
		return true
	}
	if e, ok := asError[*mysql.MySQLError](err); ok && e.Number == mysqlCheckConstraintViolate {
		return true
	}
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_CHECK {
		return true
	}
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// IsTransient reports if the statement that failed with err may succeed when
// executed again unchanged: deadlocks, serialization failures, lock
// timeouts, busy databases and dropped connections. Constraint violations
// and cancellations are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsConstraintError(err) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if e, ok := asError[*pq.Error](err); ok {
		switch class := string(e.Code.Class()); {
		case class == pgClassTransactionRollback, class == pgClassConnectionException:
			return true
		case e.Code == pgAdminShutdown, e.Code == pgCrashShutdown, e.Code == pgCannotConnectNow:
			return true
		}
		return false
	}
	if code, ok := sqlState(err); ok {
		return strings.HasPrefix(code, pgClassTransactionRollback) || strings.HasPrefix(code, pgClassConnectionException)
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		switch e.Number {
		case mysqlLockWaitTimeout, mysqlDeadlock, mysqlTooManyConnections:
			return true
		}
		return false
	}
	if code, ok := sqliteCode(err); ok {
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	if n, ok := mssqlNumber(err); ok {
		return n == mssqlDeadlockVictim || n == mssqlLockRequestTimeout
	}
	return containsAny(strings.ToLower(err.Error()),
		"deadlock",
		"database is locked",
		"connection reset by peer",
		"broken pipe",
	)
}

// Classify wraps constraint violations into dbgraph.ConstraintError and
// returns other errors unchanged.
func Classify(err error) error {
	if err == nil || dbgraph.IsConstraintError(err) {
		return err
	}
	if IsUniqueConstraintError(err) || IsForeignKeyConstraintError(err) || IsCheckConstraintError(err) {
		return dbgraph.NewConstraintError(err.Error(), err)
	}
	return err
}

// sqlState returns the SQLSTATE of Postgres-compatible errors.
func sqlState(err error) (string, bool) {
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code), true
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState(), true
	}
	if e, ok := asError[errorCoder](err); ok && len(e.Code()) == 5 {
		return e.Code(), true
	}
	return "", false
}

// sqliteCode returns the extended result code of SQLite errors.
func sqliteCode(err error) (int, bool) {
	if e, ok := asError[*sqlite.Error](err); ok {
		return e.Code(), true
	}
	return 0, false
}

func mssqlNumber(err error) (int32, bool) {
	if e, ok := asError[mssql.Error](err); ok {
		return e.Number, true
	}
	if e, ok := asError[*mssql.Error](err); ok {
		return e.Number, true
	}
	return 0, false
}

// asError attempts to extract an error of type T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
