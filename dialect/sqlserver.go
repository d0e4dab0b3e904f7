package dialect

import (
	"fmt"
	"time"

	"github.com/syssam/dbgraph/schema/field"
)

type sqlserver struct{ ansi }

func newSQLServer() Definition {
	a := standard(SQLServer)
	a.caps |= SupportsFullOuterJoin
	a.open, a.close = "[", "]"
	a.maxIdent = 128
	a.lengthFn = "LEN"
	a.ifNullFn = "ISNULL"
	a.trueLit, a.falseLit = "1", "0"
	a.recursive = "WITH "
	a.autoInc = "IDENTITY(1,1)"
	a.types = map[field.Type]string{
		field.TypeBool:    "BIT",
		field.TypeInt:     "INT",
		field.TypeInt32:   "INT",
		field.TypeInt64:   "BIGINT",
		field.TypeFloat64: "FLOAT",
		field.TypeString:  "NVARCHAR(%d)",
		field.TypeText:    "NVARCHAR(MAX)",
		field.TypeTime:    "DATETIME2",
		field.TypeBytes:   "VARBINARY(MAX)",
	}
	return sqlserver{a}
}

func (sqlserver) StringLiteral(s string) string {
	return "N" + ansi{}.StringLiteral(s)
}

func (sqlserver) DateLiteral(t time.Time) string {
	return "CAST('" + t.UTC().Format("2006-01-02T15:04:05.000000") + "' AS DATETIME2)"
}

// Paginate needs an ORDER BY clause; unordered statements get a constant one.
func (sqlserver) Paginate(limit, offset int, ordered bool) string {
	clause := offsetFetch(limit, offset)
	if clause == "" || ordered {
		return clause
	}
	return "ORDER BY (SELECT NULL) " + clause
}

// Substring requires an explicit length on SQL Server.
func (s sqlserver) Substring(str, start, length string) string {
	if length == "" {
		length = s.StringLength(str)
	}
	return fmt.Sprintf("SUBSTRING(%s, %s, %s)", str, start, length)
}

func (sqlserver) Position(haystack, needle string) string {
	return "CHARINDEX(" + needle + ", " + haystack + ")"
}

func (sqlserver) Concat(x, y string) string {
	return "(" + x + " + " + y + ")"
}

func (sqlserver) Trim(s string) string {
	return "LTRIM(RTRIM(" + s + "))"
}
