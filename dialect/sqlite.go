package dialect

import (
	"strconv"
	"time"

	"github.com/syssam/dbgraph/schema/field"
)

type sqlite struct{ ansi }

func newSQLite() Definition {
	a := standard(SQLite)
	a.caps = DistinguishesNullAndEmptyString | SupportsRecursiveQueries |
		SupportsTransactions | SupportsLastInsertID
	a.substrFn = "SUBSTR"
	a.lengthFn = "LENGTH"
	a.ifNullFn = "IFNULL"
	a.trueLit, a.falseLit = "1", "0"
	a.autoInc = "AUTOINCREMENT"
	a.types = map[field.Type]string{
		field.TypeBool:    "boolean",
		field.TypeInt:     "integer",
		field.TypeInt32:   "integer",
		field.TypeInt64:   "integer",
		field.TypeFloat64: "real",
		field.TypeString:  "text",
		field.TypeText:    "text",
		field.TypeTime:    "datetime",
		field.TypeBytes:   "blob",
	}
	return sqlite{a}
}

func (sqlite) DateLiteral(t time.Time) string {
	return "'" + t.UTC().Format("2006-01-02 15:04:05.000000") + "'"
}

func (s sqlite) Paginate(limit, offset int, ordered bool) string {
	if limit <= 0 && offset > 0 {
		return "LIMIT -1 OFFSET " + strconv.Itoa(offset)
	}
	return s.ansi.Paginate(limit, offset, ordered)
}

func (sqlite) Position(haystack, needle string) string {
	return "INSTR(" + haystack + ", " + needle + ")"
}
