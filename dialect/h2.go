package dialect

type h2 struct{ ansi }

func newH2() Definition {
	a := standard(H2)
	a.maxIdent = 256
	return h2{a}
}

func (h2) Position(haystack, needle string) string {
	return "LOCATE(" + needle + ", " + haystack + ")"
}
