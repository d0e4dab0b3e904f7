package dialect

import (
	"time"

	"github.com/syssam/dbgraph/schema/field"
)

type postgres struct{ ansi }

func newPostgres() Definition {
	a := standard(Postgres)
	a.caps |= SupportsFullOuterJoin
	a.maxIdent = 63
	a.types = map[field.Type]string{
		field.TypeBool:    "boolean",
		field.TypeInt:     "integer",
		field.TypeInt32:   "integer",
		field.TypeInt64:   "bigint",
		field.TypeFloat64: "double precision",
		field.TypeString:  "varchar(%d)",
		field.TypeText:    "text",
		field.TypeTime:    "timestamp with time zone",
		field.TypeBytes:   "bytea",
	}
	return postgres{a}
}

func (postgres) DateLiteral(t time.Time) string {
	return "TIMESTAMP WITH TIME ZONE '" + t.UTC().Format("2006-01-02 15:04:05.000000-07:00") + "'"
}
