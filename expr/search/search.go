// Package search ranks rows by the search terms found in a set of string
// columns. Terms are matched case-insensitively anywhere in the column:
//
//	s := search.Across(`+lightwing "blue flame" -nimbus name:dr`,
//		search.Column{Alias: "name", Expr: hero.C("name")},
//	)
//	hero.AddCondition(s.Condition())
//	q := query.New(d, query.WithOrderBy(s.Descending()))
//
// A plain term adds 1 to the rank of every column containing it, a
// preferred term 2 and a reduced term -0.5. A term prefixed by an alias
// only looks at the column with that alias.
package search

import (
	"strings"
	"unicode"

	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/query"
)

// Mode is the weighting of a term.
type Mode uint8

// Term modes.
const (
	Plain Mode = iota
	Preferred
	Reduced
)

// Weight returns the rank added by a term of mode m found in a column.
func (m Mode) Weight() float64 {
	switch m {
	case Preferred:
		return 2
	case Reduced:
		return -0.5
	}
	return 1
}

// Term is a parsed search term.
type Term struct {
	Text string
	// Alias restricts the term to the column with the same alias.
	Alias string
	// Quoted terms are matched as one phrase.
	Quoted bool
	Mode   Mode
}

// Column is a searched expression and the alias terms refer to it by.
type Column struct {
	Alias string
	Expr  expr.Expr
}

// Search holds the terms and the columns they are looked for in.
type Search struct {
	terms   []Term
	columns []Column
}

// Across returns a search of the terms in terms over columns.
func Across(terms string, columns ...Column) *Search {
	return &Search{terms: Parse(terms), columns: columns}
}

// Column adds a searched column.
func (s *Search) Column(e expr.Expr, alias string) *Search {
	s.columns = append(s.columns, Column{Alias: alias, Expr: e})
	return s
}

// Add parses terms and adds them to the search.
func (s *Search) Add(terms string) *Search {
	s.terms = append(s.terms, Parse(terms)...)
	return s
}

// AddQuoted adds phrase as one plain term.
func (s *Search) AddQuoted(phrase string) *Search {
	return s.add(Term{Text: phrase, Quoted: true})
}

// AddPreferred adds a preferred term.
func (s *Search) AddPreferred(term string) *Search {
	return s.add(Term{Text: term, Mode: Preferred})
}

// AddReduced adds a reduced term.
func (s *Search) AddReduced(term string) *Search {
	return s.add(Term{Text: term, Mode: Reduced})
}

// AddAliased adds a plain term looked for in the column with alias only.
func (s *Search) AddAliased(term, alias string) *Search {
	return s.add(Term{Text: term, Alias: alias})
}

func (s *Search) add(t Term) *Search {
	if t.Text = strings.TrimSpace(t.Text); t.Text != "" {
		s.terms = append(s.terms, t)
	}
	return s
}

// Terms returns the terms of the search in the order they were added.
func (s *Search) Terms() []Term { return s.terms }

// Ranking returns the rank of a row: the sum of the weights of the terms
// found in each column. A NULL column contributes nothing.
func (s *Search) Ranking() expr.Expr {
	var rank expr.Expr
	for _, c := range s.columns {
		for _, t := range s.terms {
			if t.Alias != "" && t.Alias != c.Alias {
				continue
			}
			found := expr.GT(expr.Position(expr.Lower(c.Expr), expr.Value(strings.ToLower(t.Text))), expr.Value(0))
			score := expr.Case(found, expr.Value(t.Mode.Weight()), expr.Value(0))
			if rank == nil {
				rank = score
				continue
			}
			rank = expr.Plus(rank, score)
		}
	}
	if rank == nil {
		return expr.Value(0)
	}
	return rank
}

// Condition returns the condition matching the rows with a positive rank.
func (s *Search) Condition() expr.Expr {
	return expr.GT(s.Ranking(), expr.Value(0))
}

// Ascending sorts by rank, lowest first.
func (s *Search) Ascending() query.Sort { return query.Asc(s.Ranking()) }

// Descending sorts by rank, best first.
func (s *Search) Descending() query.Sort { return query.Desc(s.Ranking()) }

// Parse splits a search string into terms. Terms are separated by spaces;
// a double-quoted phrase is one term, a leading + makes a term preferred
// and a leading - reduced, and alias: before a term or phrase restricts it
// to one column. An unterminated quote runs to the end of the string.
func Parse(s string) []Term {
	var (
		terms []Term
		rs    = []rune(s)
		i     int
	)
	for i < len(rs) {
		for i < len(rs) && unicode.IsSpace(rs[i]) {
			i++
		}
		if i == len(rs) {
			break
		}
		var t Term
		switch rs[i] {
		case '+':
			t.Mode = Preferred
			i++
		case '-':
			t.Mode = Reduced
			i++
		}
		j := i
		for j < len(rs) && !unicode.IsSpace(rs[j]) && rs[j] != ':' && rs[j] != '"' {
			j++
		}
		if j > i && j < len(rs) && rs[j] == ':' {
			t.Alias = string(rs[i:j])
			i = j + 1
		}
		if i < len(rs) && rs[i] == '"' {
			t.Quoted = true
			j = i + 1
			for j < len(rs) && rs[j] != '"' {
				j++
			}
			t.Text = string(rs[i+1 : j])
			i = j + 1
		} else {
			j = i
			for j < len(rs) && !unicode.IsSpace(rs[j]) {
				j++
			}
			t.Text = string(rs[i:j])
			i = j
		}
		if t.Text = strings.TrimSpace(t.Text); t.Text != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
