// Package relation infers the join conditions between entity instances.
//
// Two instances are connected by the foreign keys either of them declares
// to the type of the other, and by the ad-hoc relationships registered on
// them. Foreign keys are joined to the primary key of the referenced type:
//
//	res, err := relation.Resolve(marque, company)
//	// res.Expressions: "marque"."fk_carcompany" = "car_company"."uid_carcompany"
package relation

import (
	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
)

// Resolution is the result of resolving a pair of instances.
type Resolution struct {
	A, B *entity.Instance
	// Expressions are the join conditions, natural joins of A, then of B,
	// then the ad-hoc relationships of A and of B.
	Expressions []expr.Expr
	// Skipped holds the foreign keys whose value type is in the family of
	// the primary key but not assignable to it.
	Skipped []*entity.ForeignKey
	// Mismatches holds the foreign keys that cannot be compared with the
	// primary key they reference.
	Mismatches []error
}

// Connected reports if at least one condition joins the instances.
func (r *Resolution) Connected() bool {
	return len(r.Expressions) > 0
}

// Condition returns the conjunction of the join conditions.
func (r *Resolution) Condition() expr.Expr {
	return expr.And(r.Expressions...)
}

// Resolve returns the conditions joining a and b.
//
// A foreign key whose referenced type has no primary key fails the
// resolution with dbgraph.UndefinedPrimaryKeyError. A foreign key that
// cannot be compared with the primary key is recorded in Mismatches and
// fails the resolution only when nothing else connects the instances.
func Resolve(a, b *entity.Instance) (*Resolution, error) {
	res := &Resolution{A: a, B: b}
	if err := res.natural(a, b); err != nil {
		return nil, err
	}
	if err := res.natural(b, a); err != nil {
		return nil, err
	}
	res.adHoc(a, b)
	res.adHoc(b, a)
	if !res.Connected() && len(res.Mismatches) > 0 {
		return res, res.Mismatches[0]
	}
	return res, nil
}

// Connected reports if a and b are joined by any condition.
func Connected(a, b *entity.Instance) (bool, error) {
	res, err := Resolve(a, b)
	if err != nil {
		return false, err
	}
	return res.Connected(), nil
}

// natural adds the joins of the foreign keys declared on owner to the type
// of other.
func (r *Resolution) natural(owner, other *entity.Instance) error {
	target := other.Descriptor()
	for _, fk := range owner.ForeignKeys() {
		if !entity.Assignable(target.Type(), fk.References) {
			continue
		}
		pk := target.PrimaryKey()
		if pk == nil {
			return &dbgraph.UndefinedPrimaryKeyError{Table: target.Table()}
		}
		fkType, pkType := fk.Column.GoType(), pk.GoType()
		switch {
		case fkType.AssignableTo(pkType) && pkType.AssignableTo(fkType):
			r.Expressions = append(r.Expressions, expr.EQ(owner.C(fk.Column.Name), other.C(pk.Name)))
		case fk.Column.Info().Comparable(*pk.Info()):
			r.Skipped = append(r.Skipped, fk)
		default:
			r.Mismatches = append(r.Mismatches, &dbgraph.ForeignKeyTypeMismatchError{
				Table:           owner.TableName(),
				Column:          fk.Column.Name,
				ReferencedTable: target.Table(),
				FKType:          fk.Column.Info().String(),
				PKType:          pk.Info().String(),
			})
		}
	}
	return nil
}

// adHoc adds the relationships of owner that reference no instance besides
// owner and other.
func (r *Resolution) adHoc(owner, other *entity.Instance) {
	for _, rel := range owner.Relationships() {
		if !spanning(owner, rel) && !references(rel, owner, other) {
			r.Expressions = append(r.Expressions, rel)
		}
	}
}

// Spanning returns the relationships of owner that reference at least two
// instances besides owner. They cannot be resolved pairwise and join the
// last of the instances they reference to place in a query.
func Spanning(owner *entity.Instance) []expr.Expr {
	var rels []expr.Expr
	for _, rel := range owner.Relationships() {
		if spanning(owner, rel) {
			rels = append(rels, rel)
		}
	}
	return rels
}

func spanning(owner *entity.Instance, rel expr.Expr) bool {
	n := 0
	for _, t := range rel.Tables() {
		if t != expr.Table(owner) {
			n++
		}
	}
	return n > 1
}

// references reports if rel references a table other than a and b.
func references(rel expr.Expr, a, b *entity.Instance) bool {
	for _, t := range rel.Tables() {
		if t != expr.Table(a) && t != expr.Table(b) {
			return true
		}
	}
	return false
}
