package dialect

import (
	"strconv"
	"strings"
	"time"

	"github.com/syssam/dbgraph/schema/field"
)

// oracleMaxIdent is the identifier limit of Oracle before 12.2.
const oracleMaxIdent = 30

type oracle struct{ ansi }

func newOracle() Definition {
	a := standard(Oracle)
	a.caps = SupportsRecursiveQueries | SupportsFullOuterJoin | SupportsTransactions
	a.maxIdent = oracleMaxIdent
	a.aliasKw = " "
	a.substrFn = "SUBSTR"
	a.lengthFn = "LENGTH"
	a.ifNullFn = "NVL"
	a.trueLit, a.falseLit = "1", "0"
	a.recursive = "WITH "
	a.defaultSize = 1000
	a.types = map[field.Type]string{
		field.TypeBool:    "NUMBER(1)",
		field.TypeInt:     "NUMBER(10)",
		field.TypeInt32:   "NUMBER(10)",
		field.TypeInt64:   "NUMBER(19)",
		field.TypeFloat64: "BINARY_DOUBLE",
		field.TypeString:  "VARCHAR2(%d)",
		field.TypeText:    "CLOB",
		field.TypeTime:    "TIMESTAMP",
		field.TypeBytes:   "BLOB",
	}
	return oracle{a}
}

// FormatTableName replaces characters Oracle rejects at the start of an
// identifier and hashes names that are too long.
func (oracle) FormatTableName(name string) string {
	return oracleName(name)
}

func (oracle) FormatColumnName(name string) string {
	return oracleName(name)
}

// FormatColumnAlias hashes the alias, selected expressions routinely
// exceed the identifier limit.
func (o oracle) FormatColumnAlias(alias string) string {
	return o.quote("DB" + hash(alias))
}

func oracleName(name string) string {
	if len(name) >= oracleMaxIdent {
		return "O" + hash(name)
	}
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "-") {
		name = "O" + name[1:]
	}
	return strings.ReplaceAll(name, "-", "_")
}

func (oracle) DateLiteral(t time.Time) string {
	return "TO_TIMESTAMP_TZ('" + t.Format("2006-1-2 15:04:05 -0700") + "', 'YYYY-MM-DD HH24:MI:SS TZHTZM')"
}

func (oracle) Paginate(limit, offset int, _ bool) string {
	return offsetFetch(limit, offset)
}

func (oracle) Position(haystack, needle string) string {
	return "INSTR(" + haystack + ", " + needle + ")"
}

func (oracle) EndStatement() string { return "" }

// offsetFetch renders the SQL:2008 row limiting clause.
func offsetFetch(limit, offset int) string {
	var parts []string
	if offset > 0 || limit > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(offset)+" ROWS")
	}
	if limit > 0 {
		parts = append(parts, "FETCH NEXT "+strconv.Itoa(limit)+" ROWS ONLY")
	}
	return strings.Join(parts, " ")
}
