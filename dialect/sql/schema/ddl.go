package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/dbgraph/dialect"
)

// createSQL renders the CREATE TABLE statement of t from the type mapping
// of d. It serves the dialects the atlas planner does not know: the column
// attributes are emitted in the order "type, identity, nullability", and
// keys are declared as table constraints.
func createSQL(d dialect.Definition, t *Table) (string, error) {
	var (
		b    strings.Builder
		defs = make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	)
	for _, c := range t.Columns {
		typ := c.TypeFor(d)
		if typ == "" {
			return "", fmt.Errorf("dbgraph: column %s.%s: no %s type for %s", t.Name, c.Name, d.Name(), c.Type)
		}
		def := d.QuoteIdentifier(d.FormatColumnName(c.Name)) + " " + typ
		if c.Increment {
			def += " " + d.AutoIncrement()
		}
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(t.PrimaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+columnList(d, t.PrimaryKey)+")")
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdentifier(d.FormatColumnName(fk.Symbol)),
			columnList(d, fk.Columns),
			d.QuoteIdentifier(d.FormatTableName(fk.RefTable.Name)),
			columnList(d, fk.RefColumns),
		))
	}
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.QuoteIdentifier(d.FormatTableName(t.Name)))
	b.WriteString(" (")
	b.WriteString(strings.Join(defs, ", "))
	b.WriteString(")")
	return b.String(), nil
}

// DropSQL returns the statement dropping t.
func DropSQL(d dialect.Definition, t *Table) string {
	return "DROP TABLE " + d.QuoteIdentifier(d.FormatTableName(t.Name))
}

func columnList(d dialect.Definition, cs []*Column) string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = d.QuoteIdentifier(d.FormatColumnName(c.Name))
	}
	return strings.Join(names, ", ")
}
