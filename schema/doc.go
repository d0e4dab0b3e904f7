// Package schema groups the packages used to declare entities: field for
// columns and mixin for column sets shared between declarations.
package schema
