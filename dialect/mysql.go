package dialect

import (
	"strconv"
	"strings"
	"time"

	"github.com/syssam/dbgraph/schema/field"
)

type mysql struct{ ansi }

func newMySQL() Definition {
	a := standard(MySQL)
	a.caps = SupportsDegrees | SupportsRadians | DistinguishesNullAndEmptyString |
		SupportsRecursiveQueries | SupportsTransactions | SupportsLastInsertID
	a.open, a.close = "`", "`"
	a.maxIdent = 64
	a.ifNullFn = "IFNULL"
	a.autoInc = "AUTO_INCREMENT"
	a.types = map[field.Type]string{
		field.TypeBool:    "boolean",
		field.TypeInt:     "int",
		field.TypeInt32:   "int",
		field.TypeInt64:   "bigint",
		field.TypeFloat64: "double",
		field.TypeString:  "varchar(%d)",
		field.TypeText:    "longtext",
		field.TypeTime:    "datetime(6)",
		field.TypeBytes:   "longblob",
	}
	return mysql{a}
}

// StringLiteral escapes backslashes as well as quotes, MySQL treats the
// backslash as an escape character by default.
func (mysql) StringLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (mysql) DateLiteral(t time.Time) string {
	return "'" + t.UTC().Format("2006-01-02 15:04:05.000000") + "'"
}

func (m mysql) Paginate(limit, offset int, ordered bool) string {
	if limit <= 0 && offset > 0 {
		return "LIMIT 18446744073709551615 OFFSET " + strconv.Itoa(offset)
	}
	return m.ansi.Paginate(limit, offset, ordered)
}

func (mysql) Position(haystack, needle string) string {
	return "LOCATE(" + needle + ", " + haystack + ")"
}

func (mysql) Concat(x, y string) string {
	return "CONCAT(" + x + ", " + y + ")"
}
