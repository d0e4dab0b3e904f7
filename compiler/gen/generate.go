package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

const (
	pkgDBGraph = "github.com/syssam/dbgraph"
	pkgEntity  = "github.com/syssam/dbgraph/entity"
)

// DefaultHeader is the header of generated files.
const DefaultHeader = "Code generated by dbgraph. DO NOT EDIT."

// Generator writes the files of a graph.
type Generator struct {
	graph   *Graph
	workers int
	pkg     string
}

// NewGenerator returns a generator of g.
func NewGenerator(g *Graph) *Generator {
	pkg := g.Package
	if pkg == "" {
		pkg = filepath.Base(g.Target)
	}
	return &Generator{graph: g, workers: runtime.GOMAXPROCS(0), pkg: pkg}
}

// WithWorkers sets the number of files written in parallel.
func (g *Generator) WithWorkers(n int) *Generator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// Generate writes one file per type and the tables.go file listing them.
func (g *Generator) Generate(ctx context.Context) error {
	if err := os.MkdirAll(g.graph.Target, 0o755); err != nil {
		return &GenerationError{File: g.graph.Target, Message: "creating target", Cause: err}
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, t := range g.graph.Nodes {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.writeFile(g.GenType(t), t.FileName())
		})
	}
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return g.writeFile(g.GenTables(), "tables.go")
	})
	return eg.Wait()
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.pkg)
	header := g.graph.Header
	if header == "" {
		header = DefaultHeader
	}
	f.HeaderComment(header)
	return f
}

// GenType returns the file of t: the table name, the column names and the
// instance constructor.
func (g *Generator) GenType(t *Type) *jen.File {
	f := g.newFile()
	f.Commentf("%sTable is the table of %s.", t.Name, t.Name)
	f.Const().Id(t.Name + "Table").Op("=").Lit(t.Table)

	f.Commentf("Columns of %s.", t.Table)
	f.Const().DefsFunc(func(grp *jen.Group) {
		for _, c := range t.Columns {
			s := grp.Id(t.Name+c.StructField).Op("=").Lit(c.Name)
			switch {
			case c.PrimaryKey:
				s.Comment("primary key")
			case c.References != "":
				s.Comment("references " + c.References)
			}
		}
	})

	f.Commentf("%sColumns holds the columns of %s in declaration order.", t.Name, t.Table)
	f.Var().Id(t.Name+"Columns").Op("=").Index().String().ValuesFunc(func(grp *jen.Group) {
		for _, c := range t.Columns {
			grp.Id(t.Name + c.StructField)
		}
	})

	if t.PkgPath != "" && t.PkgPath != "main" {
		f.Commentf("New%s returns a new instance of %s.", t.Name, t.Name)
		f.Func().Id("New"+t.Name).Params().Op("*").Qual(pkgEntity, "Instance").Block(
			jen.Return(jen.Qual(pkgEntity, "MustNew").Call(jen.Qual(t.PkgPath, t.Ident).Values())),
		)
	}
	return f
}

// GenTables returns the file listing the tables and schemas of the graph.
func (g *Generator) GenTables() *jen.File {
	f := g.newFile()
	f.Comment("Tables holds the generated tables.")
	f.Var().Id("Tables").Op("=").Index().String().ValuesFunc(func(grp *jen.Group) {
		for _, t := range g.graph.Nodes {
			grp.Id(t.Name + "Table")
		}
	})
	f.Comment("Schemas returns the schema declarations of the generated tables.")
	f.Func().Id("Schemas").Params().Index().Qual(pkgDBGraph, "Interface").Block(
		jen.Return(jen.Index().Qual(pkgDBGraph, "Interface").ValuesFunc(func(grp *jen.Group) {
			for _, t := range g.graph.Nodes {
				if t.PkgPath != "" && t.PkgPath != "main" {
					grp.Qual(t.PkgPath, t.Ident).Values()
				}
			}
		})),
	)
	return f
}

// writeFile renders f and formats it with goimports.
func (g *Generator) writeFile(f *jen.File, name string) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return &GenerationError{File: name, Message: "rendering", Cause: err}
	}
	path := filepath.Join(g.graph.Target, name)
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		return &GenerationError{File: name, Message: "formatting", Cause: err}
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return &GenerationError{File: name, Message: fmt.Sprintf("writing %s", path), Cause: err}
	}
	return nil
}
