package gen

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/internal/testschema"
)

func TestPascal(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"uid_hero":      "UIDHero",
		"name":          "Name",
		"fk_carcompany": "FkCarcompany",
		"numeric_code":  "NumericCode",
		"user_id":       "UserID",
	} {
		assert.Equal(t, want, pascal(in), in)
	}
}

func TestNewGraph(t *testing.T) {
	t.Parallel()

	_, err := NewGraph(&Config{})
	assert.ErrorIs(t, err, ErrMissingConfig)

	g, err := NewGraph(&Config{Target: "tables"}, describe(t, testschema.Marque{}), describe(t, testschema.CarCompany{}))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "CarCompany", g.Nodes[0].Name)
	assert.Equal(t, "car_company.go", g.Nodes[0].FileName())

	marque := g.Nodes[1]
	assert.Equal(t, "marque", marque.Table)
	assert.Equal(t, "github.com/syssam/dbgraph/internal/testschema", marque.PkgPath)
	require.Len(t, marque.Columns, 5)
	assert.True(t, marque.Columns[0].PrimaryKey)
	assert.Equal(t, "FkCarcompany", marque.Columns[3].StructField)
	assert.Equal(t, "CarCompany", marque.Columns[3].References)
}

func describe(t *testing.T, s dbgraph.Interface) *entity.Descriptor {
	t.Helper()
	d, err := entity.Describe(s)
	require.NoError(t, err)
	return d
}

// constants returns the string constants declared in the file at path.
func constants(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), path, nil, 0)
	require.NoError(t, err)
	consts := make(map[string]string)
	for _, d := range f.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, s := range gd.Specs {
			vs := s.(*ast.ValueSpec)
			v, err := strconv.Unquote(vs.Values[0].(*ast.BasicLit).Value)
			require.NoError(t, err)
			consts[vs.Names[0].Name] = v
		}
	}
	return consts
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tables")
	g, err := NewGraph(&Config{Target: dir},
		describe(t, testschema.Hero{}),
		describe(t, testschema.Marque{}),
		describe(t, testschema.CarCompany{}),
	)
	require.NoError(t, err)
	require.NoError(t, NewGenerator(g).WithWorkers(2).Generate(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"car_company.go", "hero.go", "marque.go", "tables.go"}, names)

	assert.Equal(t, map[string]string{
		"HeroTable":   "hero",
		"HeroUIDHero": "uid_hero",
		"HeroName":    "name",
	}, constants(t, filepath.Join(dir, "hero.go")))

	src, err := os.ReadFile(filepath.Join(dir, "marque.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "// "+DefaultHeader)
	assert.Contains(t, string(src), "package tables")
	assert.Contains(t, string(src), "// references CarCompany")
	assert.Contains(t, string(src), "func NewMarque() *entity.Instance")
	assert.Contains(t, string(src), "entity.MustNew(testschema.Marque{})")

	src, err = os.ReadFile(filepath.Join(dir, "tables.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "var Tables = []string{CarCompanyTable, HeroTable, MarqueTable}")
	assert.Contains(t, string(src), "func Schemas() []dbgraph.Interface")
}

func TestGenerateCanceled(t *testing.T) {
	g, err := NewGraph(&Config{Target: t.TempDir(), Package: "tables"}, describe(t, testschema.Hero{}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewGenerator(g).Generate(ctx), context.Canceled)
}
