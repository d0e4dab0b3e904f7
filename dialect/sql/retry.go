package sql

import (
	"context"
	"database/sql"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql/sqlerr"
)

// RetryHook is called before a statement is executed a second time.
type RetryHook func(ctx context.Context, query string, err error)

// ExecRetryOnce executes query and, when the first attempt fails with a
// transient error, executes the identical statement exactly once more.
// Failures are returned as *dbgraph.StatementError holding the statement
// text; constraint violations are wrapped in dbgraph.ConstraintError.
func ExecRetryOnce(ctx context.Context, ex dialect.ExecQuerier, query string, hooks ...RetryHook) (Result, error) {
	var res sql.Result
	err := ex.Exec(ctx, query, []any{}, &res)
	if err == nil {
		return res, nil
	}
	if !sqlerr.IsTransient(err) {
		return nil, &dbgraph.StatementError{SQL: query, Attempts: 1, Err: sqlerr.Classify(err)}
	}
	for _, h := range hooks {
		h(ctx, query, err)
	}
	if err := ex.Exec(ctx, query, []any{}, &res); err != nil {
		return nil, &dbgraph.StatementError{SQL: query, Attempts: 2, Err: sqlerr.Classify(err)}
	}
	return res, nil
}
