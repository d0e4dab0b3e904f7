package entity

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/operator"
)

// Instance is a query template of an entity type: criteria and values per
// column, plus the join configuration used when it takes part in a query.
// An Instance is owned by one caller and must not be mutated while a query
// using it is built.
type Instance struct {
	desc      *Descriptor
	criteria  map[string]*operator.Operator
	values    map[string]any
	original  map[string]any
	exprs     []ExpressionColumn
	conds     []expr.Expr
	adHoc     []expr.Expr
	ignored   map[string]struct{}
	returning []string
	defined   bool
	empty     bool
	derived   derived
	err       error
}

// ExpressionColumn is a computed column of an instance. When its name is a
// declared column, the expression provides the value of that column in
// INSERT ... SELECT statements.
type ExpressionColumn struct {
	Name string
	Expr expr.Expr
}

// derived holds the lists computed from the ignored foreign keys. It is
// invalidated by every change of the ignore set.
type derived struct {
	mu         sync.Mutex
	valid      bool
	fks        []*ForeignKey
	referenced []reflect.Type
}

func (c *derived) invalidate() {
	c.mu.Lock()
	c.valid = false
	c.fks, c.referenced = nil, nil
	c.mu.Unlock()
}

func (c *derived) get(i *Instance) ([]*ForeignKey, []reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		seen := make(map[reflect.Type]struct{})
		for _, fk := range i.desc.fks {
			if _, ok := i.ignored[fk.Column.Name]; ok {
				continue
			}
			c.fks = append(c.fks, fk)
			if _, ok := seen[fk.References]; !ok {
				seen[fk.References] = struct{}{}
				c.referenced = append(c.referenced, fk.References)
			}
		}
		sortTypes(c.referenced)
		c.valid = true
	}
	return c.fks, c.referenced
}

// NewInstance returns an empty instance of the entity.
func (d *Descriptor) NewInstance() *Instance {
	return &Instance{
		desc:     d,
		criteria: make(map[string]*operator.Operator),
		values:   make(map[string]any),
		ignored:  make(map[string]struct{}),
	}
}

// Descriptor returns the descriptor of the instance.
func (i *Instance) Descriptor() *Descriptor { return i.desc }

// TableName implements expr.Table.
func (i *Instance) TableName() string { return i.desc.table }

// TypeName implements expr.Table.
func (i *Instance) TypeName() string { return i.desc.name }

// Err returns the first error recorded by the builder methods, for example
// a criterion on an unknown column.
func (i *Instance) Err() error { return i.err }

func (i *Instance) fail(err error) {
	if i.err == nil {
		i.err = err
	}
}

// Col returns the declared column named name.
func (i *Instance) Col(name string) (*Column, error) {
	c := i.desc.byName[name]
	if c == nil {
		return nil, &dbgraph.UnknownColumnError{Table: i.desc.table, Column: name}
	}
	return c, nil
}

// C returns the expression referencing column name of this instance.
// Unknown columns are recorded in Err.
func (i *Instance) C(name string) expr.Expr {
	c, err := i.Col(name)
	if err != nil {
		i.fail(err)
		return expr.Column(i, name, expr.KindAny)
	}
	return expr.Column(i, name, c.Kind())
}

// Where sets the criterion of a column. A nil operator clears it.
func (i *Instance) Where(column string, op *operator.Operator) *Instance {
	if _, err := i.Col(column); err != nil {
		i.fail(err)
		return i
	}
	if op == nil {
		delete(i.criteria, column)
		return i
	}
	i.criteria[column] = op
	return i
}

// Criterion returns the criterion of a column, or nil.
func (i *Instance) Criterion(column string) *operator.Operator {
	return i.criteria[column]
}

// AddCondition adds a boolean expression to the criteria of the instance.
func (i *Instance) AddCondition(cond expr.Expr) *Instance {
	i.conds = append(i.conds, cond)
	return i
}

// HasCriteria reports if the instance restricts the rows of its table.
func (i *Instance) HasCriteria() bool {
	return len(i.criteria) > 0 || len(i.conds) > 0
}

// Criteria returns the conditions contributed by the instance: the column
// criteria in column order followed by the added conditions.
func (i *Instance) Criteria() []expr.Expr {
	var conds []expr.Expr
	for _, c := range i.desc.columns {
		if op, ok := i.criteria[c.Name]; ok {
			conds = append(conds, op.Where(expr.Column(i, c.Name, c.Kind())))
		}
	}
	return append(conds, i.conds...)
}

// Set assigns the value of a column for inserts and updates.
func (i *Instance) Set(column string, v any) *Instance {
	if _, err := i.Col(column); err != nil {
		i.fail(err)
		return i
	}
	i.values[column] = v
	return i
}

// Value returns the value of a column and whether it is set.
func (i *Instance) Value(column string) (any, bool) {
	v, ok := i.values[column]
	return v, ok
}

// Values returns a copy of the column values.
func (i *Instance) Values() map[string]any {
	vs := make(map[string]any, len(i.values))
	for k, v := range i.values {
		vs[k] = v
	}
	return vs
}

// Load replaces the values with a row read from the database and marks the
// instance defined.
func (i *Instance) Load(values map[string]any) {
	i.values = make(map[string]any, len(values))
	i.original = make(map[string]any, len(values))
	for k, v := range values {
		i.values[k] = v
		i.original[k] = v
	}
	i.defined = true
	i.empty = false
}

// Original returns the value of a column as it was loaded from the
// database.
func (i *Instance) Original(column string) (any, bool) {
	v, ok := i.original[column]
	return v, ok
}

// IsDefined reports if the instance was loaded from the database.
func (i *Instance) IsDefined() bool { return i.defined }

// SetEmpty marks an optional instance that matched no row.
func (i *Instance) SetEmpty() {
	i.empty = true
	i.defined = false
}

// IsEmpty reports if the instance is an unmatched outer-join result.
func (i *Instance) IsEmpty() bool { return i.empty }

// ChangedColumns returns the columns whose values differ from the loaded
// row, in column order. All set columns are changed on undefined instances.
func (i *Instance) ChangedColumns() []*Column {
	var changed []*Column
	for _, c := range i.desc.columns {
		v, ok := i.values[c.Name]
		if !ok {
			continue
		}
		if o, loaded := i.original[c.Name]; !loaded || !reflect.DeepEqual(o, v) {
			changed = append(changed, c)
		}
	}
	return changed
}

// PrimaryKeyValue returns the value of the primary key.
func (i *Instance) PrimaryKeyValue() (any, error) {
	if i.desc.pk == nil {
		return nil, &dbgraph.UndefinedPrimaryKeyError{Table: i.desc.table}
	}
	return i.values[i.desc.pk.Name], nil
}

// SetPrimaryKey assigns the primary key value.
func (i *Instance) SetPrimaryKey(v any) error {
	if i.desc.pk == nil {
		return &dbgraph.UndefinedPrimaryKeyError{Table: i.desc.table}
	}
	i.values[i.desc.pk.Name] = v
	return nil
}

// SetExpressionColumn adds a computed column.
func (i *Instance) SetExpressionColumn(name string, e expr.Expr) *Instance {
	for k := range i.exprs {
		if i.exprs[k].Name == name {
			i.exprs[k].Expr = e
			return i
		}
	}
	i.exprs = append(i.exprs, ExpressionColumn{Name: name, Expr: e})
	return i
}

// ExpressionColumns returns the computed columns in insertion order.
func (i *Instance) ExpressionColumns() []ExpressionColumn { return i.exprs }

// AddRelationship registers an ad-hoc join condition. It is used for every
// query containing the instance and the other instances it references. A
// condition referencing several other instances joins the last of them in
// the join order.
func (i *Instance) AddRelationship(cond expr.Expr) *Instance {
	i.adHoc = append(i.adHoc, cond)
	return i
}

// Relationships returns the ad-hoc join conditions.
func (i *Instance) Relationships() []expr.Expr { return i.adHoc }

// ReturnColumns restricts the columns selected for the instance. Calling it
// without columns selects all of them again.
func (i *Instance) ReturnColumns(columns ...string) *Instance {
	for _, c := range columns {
		if _, err := i.Col(c); err != nil {
			i.fail(err)
			return i
		}
	}
	if len(columns) == 0 {
		i.returning = nil
		return i
	}
	i.returning = append([]string(nil), columns...)
	return i
}

// SelectedColumns returns the columns selected for the instance in column
// order.
func (i *Instance) SelectedColumns() []*Column {
	if i.returning == nil {
		return i.desc.columns
	}
	keep := make(map[string]bool, len(i.returning))
	for _, c := range i.returning {
		keep[c] = true
	}
	var cols []*Column
	for _, c := range i.desc.columns {
		if keep[c.Name] {
			cols = append(cols, c)
		}
	}
	return cols
}

// IgnoreForeignKey excludes a foreign key from join inference.
func (i *Instance) IgnoreForeignKey(column string) *Instance {
	return i.IgnoreForeignKeys(column)
}

// IgnoreForeignKeys excludes foreign keys from join inference.
func (i *Instance) IgnoreForeignKeys(columns ...string) *Instance {
	for _, name := range columns {
		c, err := i.Col(name)
		if err != nil {
			i.fail(err)
			continue
		}
		if !c.IsForeignKey() {
			i.fail(fmt.Errorf("entity: column %q of %s is not a foreign key", name, i.desc.table))
			continue
		}
		i.ignored[name] = struct{}{}
	}
	i.derived.invalidate()
	return i
}

// IgnoreAllForeignKeys excludes every foreign key from join inference.
// Queries with the instance need ad-hoc relationships to stay connected.
func (i *Instance) IgnoreAllForeignKeys() *Instance {
	for _, fk := range i.desc.fks {
		i.ignored[fk.Column.Name] = struct{}{}
	}
	i.derived.invalidate()
	return i
}

// IgnoreAllForeignKeysExcept ignores every foreign key but the given ones.
func (i *Instance) IgnoreAllForeignKeysExcept(columns ...string) *Instance {
	keep := make(map[string]bool, len(columns))
	for _, name := range columns {
		if _, err := i.Col(name); err != nil {
			i.fail(err)
		}
		keep[name] = true
	}
	i.ignored = make(map[string]struct{})
	for _, fk := range i.desc.fks {
		if !keep[fk.Column.Name] {
			i.ignored[fk.Column.Name] = struct{}{}
		}
	}
	i.derived.invalidate()
	return i
}

// IgnoreAllForeignKeysExceptFKsTo ignores every foreign key that does not
// reference the type of one of others.
func (i *Instance) IgnoreAllForeignKeysExceptFKsTo(others ...*Instance) *Instance {
	i.ignored = make(map[string]struct{})
	for _, fk := range i.desc.fks {
		keep := false
		for _, o := range others {
			if Assignable(o.desc.typ, fk.References) {
				keep = true
				break
			}
		}
		if !keep {
			i.ignored[fk.Column.Name] = struct{}{}
		}
	}
	i.derived.invalidate()
	return i
}

// UseForeignKey removes a foreign key from the ignore set.
func (i *Instance) UseForeignKey(column string) *Instance {
	delete(i.ignored, column)
	i.derived.invalidate()
	return i
}

// UseAllForeignKeys clears the ignore set.
func (i *Instance) UseAllForeignKeys() *Instance {
	i.ignored = make(map[string]struct{})
	i.derived.invalidate()
	return i
}

// ResetIgnoredForeignKeys is an alias of UseAllForeignKeys.
func (i *Instance) ResetIgnoredForeignKeys() *Instance {
	return i.UseAllForeignKeys()
}

// IgnoredForeignKeys returns the sorted names of the ignored foreign keys.
func (i *Instance) IgnoredForeignKeys() []string {
	names := make([]string, 0, len(i.ignored))
	for n := range i.ignored {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForeignKeys returns the foreign keys used for join inference.
func (i *Instance) ForeignKeys() []*ForeignKey {
	fks, _ := i.derived.get(i)
	return fks
}

// ReferencedTypes returns the types referenced by the foreign keys used for
// join inference, sorted by canonical name.
func (i *Instance) ReferencedTypes() []reflect.Type {
	_, refs := i.derived.get(i)
	return refs
}

// Copy returns an independent copy of the instance. Ad-hoc relationships
// and computed columns referencing the instance reference the copy.
func (i *Instance) Copy() *Instance {
	c := i.desc.NewInstance()
	for k, op := range i.criteria {
		c.criteria[k] = op.Copy()
	}
	for k, v := range i.values {
		c.values[k] = v
	}
	if i.original != nil {
		c.original = make(map[string]any, len(i.original))
		for k, v := range i.original {
			c.original[k] = v
		}
	}
	for k := range i.ignored {
		c.ignored[k] = struct{}{}
	}
	for _, e := range i.exprs {
		c.exprs = append(c.exprs, ExpressionColumn{Name: e.Name, Expr: i.rebind(e.Expr, c)})
	}
	for _, e := range i.conds {
		c.conds = append(c.conds, i.rebind(e, c))
	}
	for _, e := range i.adHoc {
		c.adHoc = append(c.adHoc, i.rebind(e, c))
	}
	if i.returning != nil {
		c.returning = append([]string(nil), i.returning...)
	}
	c.defined, c.empty, c.err = i.defined, i.empty, i.err
	return c
}

func (i *Instance) rebind(e expr.Expr, to *Instance) expr.Expr {
	cp := e.Copy()
	if n, ok := cp.(*expr.Node); ok {
		n.Rebind(i, to)
	}
	return cp
}

// String implements fmt.Stringer.
func (i *Instance) String() string {
	return fmt.Sprintf("%s(%s)", i.desc.typ.Name(), i.desc.table)
}

// Assignable reports if values of the entity types a and b are assignable
// to each other in either direction.
func Assignable(a, b reflect.Type) bool {
	a, b = indirect(a), indirect(b)
	return a.AssignableTo(b) || b.AssignableTo(a)
}
