// Package testschema holds the entity declarations shared by the tests of
// the module.
package testschema

import (
	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/schema/field"
)

// CarCompany holds the schema definition for the CarCompany entity.
type CarCompany struct {
	dbgraph.Schema
}

// Fields of the CarCompany.
func (CarCompany) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_carcompany").PrimaryKey().AutoIncrement(),
		field.String("name").Size(50),
	}
}

// Config of the CarCompany.
func (CarCompany) Config() dbgraph.Config {
	return dbgraph.Config{Table: "car_company"}
}

// Marque holds the schema definition for the Marque entity.
type Marque struct {
	dbgraph.Schema
}

// Fields of the Marque.
func (Marque) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_marque").PrimaryKey(),
		field.String("name"),
		field.Int("numeric_code").Nillable(),
		field.Int64("fk_carcompany").References(CarCompany{}),
		field.Time("creation_date").Nillable(),
	}
}

// Hero holds the schema definition for the Hero entity.
type Hero struct {
	dbgraph.Schema
}

// Fields of the Hero.
func (Hero) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_hero").PrimaryKey().AutoIncrement(),
		field.String("name"),
	}
}

// Villain holds the schema definition for the Villain entity.
type Villain struct {
	dbgraph.Schema
}

// Fields of the Villain.
func (Villain) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_villain").PrimaryKey().AutoIncrement(),
		field.String("name"),
	}
}

// Professional holds the schema definition for the Professional entity.
type Professional struct {
	dbgraph.Schema
}

// Fields of the Professional.
func (Professional) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.String("title"),
		field.String("surname"),
	}
}

// Fight pairs a hero with a villain.
type Fight struct {
	dbgraph.Schema
}

// Fields of the Fight.
func (Fight) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.String("hero"),
		field.String("villain"),
	}
}

// Parent declares no primary key.
type Parent struct {
	dbgraph.Schema
}

// Fields of the Parent.
func (Parent) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.String("name"),
	}
}

// Child references Parent, which has no primary key.
type Child struct {
	dbgraph.Schema
}

// Fields of the Child.
func (Child) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_child").PrimaryKey(),
		field.Int64("fk_parent").References(Parent{}),
	}
}

// Employee references its manager.
type Employee struct {
	dbgraph.Schema
}

// Fields of the Employee.
func (Employee) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_employee").PrimaryKey(),
		field.String("name"),
		field.Int64("fk_manager").References(Employee{}).Nillable(),
	}
}

// Showroom references CarCompany through a column of another family.
type Showroom struct {
	dbgraph.Schema
}

// Fields of the Showroom.
func (Showroom) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_showroom").PrimaryKey(),
		field.String("fk_carcompany").References(CarCompany{}),
	}
}

// Dealer references CarCompany with a narrower integer.
type Dealer struct {
	dbgraph.Schema
}

// Fields of the Dealer.
func (Dealer) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_dealer").PrimaryKey(),
		field.Int32("fk_carcompany").References(CarCompany{}),
	}
}

// Tag is a tree of labels keyed by name.
type Tag struct {
	dbgraph.Schema
}

// Fields of the Tag.
func (Tag) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.String("label").PrimaryKey(),
		field.String("fk_tag").References(Tag{}),
		field.Bytes("icon"),
	}
}

// All returns every valid declaration of the package.
func All() []dbgraph.Interface {
	return []dbgraph.Interface{
		CarCompany{}, Marque{}, Hero{}, Villain{}, Professional{}, Fight{},
		Parent{}, Child{}, Employee{}, Showroom{}, Dealer{}, Tag{},
	}
}
