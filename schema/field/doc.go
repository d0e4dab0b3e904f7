// Package field provides fluent builders for declaring the columns of an
// entity.
//
// Column names follow database conventions (snake_case):
//
//	field.Int64("uid_marque").PrimaryKey()
//	field.String("name").Size(100)
//
// # Column Types
//
//	field.Bool("is_active")
//	field.Int("count")
//	field.Int64("big_number")
//	field.Float64("price")
//	field.String("name")
//	field.Text("description")
//	field.Time("created_at")
//	field.Bytes("data")          // large object, skipped by INSERT ... SELECT
//	field.Other("amount", decimal.Decimal{})
//
// # Keys
//
// At most one column of an entity is the primary key. Auto-increment is only
// valid on integer columns:
//
//	field.Int64("id").PrimaryKey().AutoIncrement()
//
// A foreign key references the primary key of another entity declaration:
//
//	field.Int64("fk_carcompany").References(CarCompany{})
//
// The foreign key and the referenced primary key should hold the same Go
// type. Columns of the same family (for example int32 and int64) are not
// joined automatically; columns of different families (string and int64)
// are rejected when the join is inferred.
//
// # Custom Go Types
//
//	type Code string
//
//	field.String("code").GoType(Code(""))
//
//	field.Other("amount", decimal.Decimal{}).
//	    SchemaType(map[string]string{
//	        dialect.Postgres: "numeric(10,2)",
//	    })
package field
