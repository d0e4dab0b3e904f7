package sqlerr_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect/sql/sqlerr"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("dialect/sql: exec: %w", driver.ErrBadConn), true},
		{"pg serialization", &pq.Error{Code: "40001"}, true},
		{"pg deadlock", fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"}), true},
		{"pg connection", &pq.Error{Code: "08006"}, true},
		{"pg shutdown", &pq.Error{Code: "57P01"}, true},
		{"pg unique", &pq.Error{Code: "23505"}, false},
		{"pg syntax", &pq.Error{Code: "42601"}, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, false},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"mssql deadlock", mssql.Error{Number: 1205}, true},
		{"mssql syntax", mssql.Error{Number: 102}, false},
		{"sqlite busy message", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"canceled", context.Canceled, false},
		{"generic", errors.New("no such table: hero"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlerr.IsTransient(tt.err))
		})
	}
}

func TestConstraintErrors(t *testing.T) {
	t.Parallel()

	assert.True(t, sqlerr.IsUniqueConstraintError(&pq.Error{Code: "23505"}))
	assert.True(t, sqlerr.IsUniqueConstraintError(&mysql.MySQLError{Number: 1062}))
	assert.True(t, sqlerr.IsUniqueConstraintError(mssql.Error{Number: 2627}))
	assert.True(t, sqlerr.IsUniqueConstraintError(errors.New("UNIQUE constraint failed: hero.name")))
	assert.True(t, sqlerr.IsForeignKeyConstraintError(&pq.Error{Code: "23503"}))
	assert.True(t, sqlerr.IsForeignKeyConstraintError(&mysql.MySQLError{Number: 1452}))
	assert.True(t, sqlerr.IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, sqlerr.IsCheckConstraintError(&pq.Error{Code: "23514"}))
	assert.False(t, sqlerr.IsConstraintError(errors.New("boom")))
	assert.False(t, sqlerr.IsConstraintError(nil))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	err := sqlerr.Classify(&pq.Error{Code: "23505", Message: "duplicate key"})
	assert.True(t, dbgraph.IsConstraintError(err))
	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr)

	plain := errors.New("boom")
	assert.Equal(t, plain, sqlerr.Classify(plain))
	assert.NoError(t, sqlerr.Classify(nil))
}
