package dialect

import "github.com/syssam/dbgraph/schema/field"

type nuodb struct{ ansi }

func newNuoDB() Definition {
	a := standard(NuoDB)
	a.caps &^= SupportsRecursiveQueries
	a.maxIdent = 128
	a.substrFn = "SUBSTR"
	a.lengthFn = "LENGTH"
	a.types[field.TypeText] = "STRING"
	a.types[field.TypeFloat64] = "DOUBLE"
	return nuodb{a}
}

func (nuodb) Position(haystack, needle string) string {
	return "LOCATE(" + needle + ", " + haystack + ")"
}
