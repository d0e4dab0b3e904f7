package dialect

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/dbgraph/schema/field"
)

// Capability is a set of optional features of a database.
type Capability uint32

// Capabilities checked by the query engine. Rendering consults these flags
// instead of comparing dialect names.
const (
	// SupportsDegrees reports a native DEGREES function.
	SupportsDegrees Capability = 1 << iota
	// SupportsRadians reports a native RADIANS function.
	SupportsRadians
	// DistinguishesNullAndEmptyString is unset for databases that store
	// the empty string as NULL.
	DistinguishesNullAndEmptyString
	// SupportsRecursiveQueries reports recursive common table expressions.
	SupportsRecursiveQueries
	// SupportsFullOuterJoin reports FULL OUTER JOIN.
	SupportsFullOuterJoin
	// SupportsTransactions reports transactional DML, required by
	// validation dry runs.
	SupportsTransactions
	// SupportsLastInsertID reports that the driver returns generated keys
	// through sql.Result.LastInsertId.
	SupportsLastInsertID
)

// Has reports if all flags of c are set.
func (cs Capability) Has(c Capability) bool {
	return cs&c == c
}

// Definition is the contract between the query engine and a database
// vendor. Every method is pure: the same input always renders the same
// text.
type Definition interface {
	// Name returns the dialect name, for example "postgres".
	Name() string
	// Capabilities returns the optional features of the database.
	Capabilities() Capability

	// QuoteIdentifier quotes a table, column or alias name.
	QuoteIdentifier(name string) string
	// FormatTableName adapts a table name to the identifier rules of the
	// database, shortening names that exceed its length limit.
	FormatTableName(name string) string
	// FormatColumnName adapts a column name like FormatTableName.
	FormatColumnName(name string) string
	// FormatColumnAlias returns the quoted alias of a selected column.
	FormatColumnAlias(alias string) string
	// TableAliasKeyword returns the text between a table and its alias.
	TableAliasKeyword() string

	// StringLiteral returns s as a quoted and escaped literal.
	StringLiteral(s string) string
	// BooleanLiteral returns the literal for b.
	BooleanLiteral(b bool) string
	// DateLiteral returns a timestamp literal for t.
	DateLiteral(t time.Time) string

	// Paginate returns the clause appended after ORDER BY. The ordered
	// flag reports whether the statement already has an ORDER BY.
	Paginate(limit, offset int, ordered bool) string

	// Substring returns the substring function applied to s. An empty
	// length means "to the end of the string". Positions are 1-based.
	Substring(s, start, length string) string
	// Position returns the 1-based index of needle in haystack, 0 if absent.
	Position(haystack, needle string) string
	// StringLength returns the character length function applied to s.
	StringLength(s string) string
	// Concat returns the concatenation of a and b.
	Concat(a, b string) string
	// IfNull returns a when it is not NULL, b otherwise.
	IfNull(a, b string) string
	// Trim removes leading and trailing spaces of s.
	Trim(s string) string

	// ColumnType returns the database type of a column.
	ColumnType(t field.Type, size int) string
	// AutoIncrement returns the column attribute of auto-increment keys.
	AutoIncrement() string
	// RecursiveWith returns the keyword opening a recursive common table
	// expression.
	RecursiveWith() string
	// EndStatement terminates a statement in a script of statements.
	EndStatement() string
}

// ansi holds the behavior shared by most vendors. Its methods only read
// its fields, so vendor types embedding it override methods safely.
type ansi struct {
	name        string
	caps        Capability
	open, close string
	maxIdent    int
	aliasKw     string
	substrFn    string
	lengthFn    string
	ifNullFn    string
	trueLit     string
	falseLit    string
	recursive   string
	autoInc     string
	defaultSize int
	types       map[field.Type]string
}

func (a ansi) Name() string             { return a.name }
func (a ansi) Capabilities() Capability { return a.caps }
func (a ansi) TableAliasKeyword() string {
	return a.aliasKw
}

func (a ansi) QuoteIdentifier(name string) string {
	return a.quote(name)
}

func (a ansi) FormatTableName(name string) string  { return a.shorten(name) }
func (a ansi) FormatColumnName(name string) string { return a.shorten(name) }

func (a ansi) FormatColumnAlias(alias string) string {
	return a.quote(a.shorten(alias))
}

func (a ansi) quote(name string) string {
	return a.open + strings.ReplaceAll(name, a.close, a.close+a.close) + a.close
}

// shorten keeps identifiers within the length limit by replacing their
// tail with a hash of the full name.
func (a ansi) shorten(name string) string {
	if a.maxIdent <= 0 || len(name) <= a.maxIdent {
		return name
	}
	h := hash(name)
	return name[:a.maxIdent-len(h)-1] + "_" + h
}

func (a ansi) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (a ansi) BooleanLiteral(b bool) string {
	if b {
		return a.trueLit
	}
	return a.falseLit
}

func (ansi) DateLiteral(t time.Time) string {
	return "TIMESTAMP '" + t.UTC().Format("2006-01-02 15:04:05.000000") + "'"
}

func (ansi) Paginate(limit, offset int, _ bool) string {
	var parts []string
	if limit > 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(limit))
	}
	if offset > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(offset))
	}
	return strings.Join(parts, " ")
}

func (a ansi) Substring(s, start, length string) string {
	if length == "" {
		return fmt.Sprintf("%s(%s, %s)", a.substrFn, s, start)
	}
	return fmt.Sprintf("%s(%s, %s, %s)", a.substrFn, s, start, length)
}

func (ansi) Position(haystack, needle string) string {
	return fmt.Sprintf("POSITION(%s IN %s)", needle, haystack)
}

func (a ansi) StringLength(s string) string {
	return a.lengthFn + "(" + s + ")"
}

func (ansi) Concat(x, y string) string {
	return "(" + x + " || " + y + ")"
}

func (a ansi) IfNull(x, y string) string {
	return fmt.Sprintf("%s(%s, %s)", a.ifNullFn, x, y)
}

func (ansi) Trim(s string) string {
	return "TRIM(" + s + ")"
}

func (a ansi) ColumnType(t field.Type, size int) string {
	typ, ok := a.types[t]
	if !ok {
		return ""
	}
	if strings.Contains(typ, "%d") {
		if size <= 0 {
			size = a.defaultSize
		}
		typ = fmt.Sprintf(typ, size)
	}
	return typ
}

func (a ansi) AutoIncrement() string { return a.autoInc }
func (a ansi) RecursiveWith() string { return a.recursive }
func (ansi) EndStatement() string    { return ";" }

// hash returns a short stable hash of s used in shortened identifiers.
func hash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// standard returns the ANSI defaults for a vendor named name.
func standard(name string) ansi {
	return ansi{
		name:        name,
		caps:        SupportsDegrees | SupportsRadians | DistinguishesNullAndEmptyString | SupportsRecursiveQueries | SupportsTransactions,
		open:        `"`,
		close:       `"`,
		aliasKw:     " AS ",
		substrFn:    "SUBSTRING",
		lengthFn:    "CHAR_LENGTH",
		ifNullFn:    "COALESCE",
		trueLit:     "TRUE",
		falseLit:    "FALSE",
		recursive:   "WITH RECURSIVE ",
		autoInc:     "GENERATED BY DEFAULT AS IDENTITY",
		defaultSize: 255,
		types: map[field.Type]string{
			field.TypeBool:    "BOOLEAN",
			field.TypeInt:     "INTEGER",
			field.TypeInt32:   "INTEGER",
			field.TypeInt64:   "BIGINT",
			field.TypeFloat64: "DOUBLE PRECISION",
			field.TypeString:  "VARCHAR(%d)",
			field.TypeText:    "CLOB",
			field.TypeTime:    "TIMESTAMP",
			field.TypeBytes:   "BLOB",
		},
	}
}
