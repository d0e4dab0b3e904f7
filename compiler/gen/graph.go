// Package gen generates Go constants for the tables and columns of entity
// descriptors, and constructors of their instances.
//
//	g, err := gen.NewGraph(&gen.Config{Target: "./tables", Package: "tables"}, heroDesc, villainDesc)
//	if err != nil {
//		return err
//	}
//	err = gen.NewGenerator(g).Generate(ctx)
package gen

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/dbgraph/entity"
)

// Config of the generated package.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the name of the generated package. It defaults to the base
	// name of Target.
	Package string
	// Header is the comment on top of every generated file.
	Header string
}

// Graph holds the types to generate.
type Graph struct {
	*Config
	Nodes []*Type
}

// Type is a generated entity.
type Type struct {
	// Name is the Go name of the entity, e.g. CarCompany.
	Name string
	// PkgPath and Ident locate the schema declaration.
	PkgPath, Ident string
	Table          string
	Columns        []*Column
	desc           *entity.Descriptor
}

// Column is a generated column constant.
type Column struct {
	// StructField is the Go name of the column, e.g. UIDHero.
	StructField string
	Name        string
	PrimaryKey  bool
	// References is the name of the referenced type of foreign keys.
	References string
}

// NewGraph returns the graph of descs, sorted by entity name.
func NewGraph(c *Config, descs ...*entity.Descriptor) (*Graph, error) {
	if c == nil || c.Target == "" {
		return nil, &ConfigError{Option: "Target", Message: "missing target directory"}
	}
	g := &Graph{Config: c}
	names := make(map[string]string)
	for _, d := range descs {
		t := newType(d)
		if prev, ok := names[t.Name]; ok {
			return nil, &ConfigError{Option: "Nodes", Value: t.Name, Message: "is the generated name of " + prev + " and " + d.Name()}
		}
		names[t.Name] = d.Name()
		g.Nodes = append(g.Nodes, t)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].Name < g.Nodes[j].Name })
	return g, nil
}

func newType(d *entity.Descriptor) *Type {
	t := &Type{
		Name:    d.Type().Name(),
		PkgPath: d.Type().PkgPath(),
		Ident:   d.Type().Name(),
		Table:   d.Table(),
		desc:    d,
	}
	refs := make(map[string]string)
	for _, fk := range d.ForeignKeys() {
		refs[fk.Column.Name] = fk.References.Name()
	}
	for _, c := range d.Columns() {
		t.Columns = append(t.Columns, &Column{
			StructField: pascal(c.Name),
			Name:        c.Name,
			PrimaryKey:  c.IsPrimaryKey(),
			References:  refs[c.Name],
		})
	}
	return t
}

// Descriptor returns the descriptor of the type.
func (t *Type) Descriptor() *entity.Descriptor { return t.desc }

// FileName returns the name of the file generated for the type.
func (t *Type) FileName() string {
	return strings.ToLower(t.Table) + ".go"
}

// acronyms are written in upper case in Go names.
var acronyms = map[string]bool{
	"id":  true,
	"uid": true,
	"url": true,
	"sql": true,
	"api": true,
}

// pascal converts a snake_case name to PascalCase, e.g. uid_hero to UIDHero.
func pascal(s string) string {
	var (
		b     strings.Builder
		title = cases.Title(language.English)
	)
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		if acronyms[strings.ToLower(w)] {
			b.WriteString(strings.ToUpper(w))
			continue
		}
		b.WriteString(title.String(w))
	}
	return b.String()
}
