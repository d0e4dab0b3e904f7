package dbgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors of the query-graph engine.
var (
	// ErrInvalidEntityDefinition is returned when an entity declaration
	// cannot be compiled into a descriptor.
	ErrInvalidEntityDefinition = errors.New("dbgraph: invalid entity definition")

	// ErrAutoIncrementTypeMismatch is wrapped by InvalidEntityDefinitionError
	// when an auto-increment column does not hold an integer type.
	ErrAutoIncrementTypeMismatch = errors.New("dbgraph: auto-increment column must be an integer")

	// ErrForeignKeyTypeMismatch is returned when a foreign key cannot be
	// compared with the primary key it references.
	ErrForeignKeyTypeMismatch = errors.New("dbgraph: foreign key cannot be compared to primary key")

	// ErrAccidentalCartesianJoin is returned when the tables of a query
	// do not form a single connected graph.
	ErrAccidentalCartesianJoin = errors.New("dbgraph: accidental cartesian join")

	// ErrAccidentalBlankQuery is returned when a query would return every
	// row of every table.
	ErrAccidentalBlankQuery = errors.New("dbgraph: accidental blank query")

	// ErrUnableToCreateAscendingExpression is returned when a recursive
	// query cannot be built for the requested key.
	ErrUnableToCreateAscendingExpression = errors.New("dbgraph: unable to create ascending expression for recursive query")

	// ErrUndefinedPrimaryKey is returned when an operation needs the
	// primary key of an entity that declares none.
	ErrUndefinedPrimaryKey = errors.New("dbgraph: undefined primary key")

	// ErrUnsupportedOperation is returned for operations that are not
	// possible for the action or dialect at hand.
	ErrUnsupportedOperation = errors.New("dbgraph: unsupported operation")

	// ErrUnknownColumn is returned when a column name is not declared by
	// the entity.
	ErrUnknownColumn = errors.New("dbgraph: unknown column")
)

// InvalidEntityDefinitionError describes a declaration that cannot be
// compiled.
type InvalidEntityDefinitionError struct {
	Type   string // Canonical type name
	Column string // Offending column, if any
	Reason string
	Err    error // Optional underlying cause
}

// Error returns the error string.
func (e *InvalidEntityDefinitionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dbgraph: invalid entity definition %s", e.Type)
	if e.Column != "" {
		fmt.Fprintf(&sb, " (column %q)", e.Column)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Is reports whether the target error matches ErrInvalidEntityDefinition.
func (e *InvalidEntityDefinitionError) Is(err error) bool {
	return err == ErrInvalidEntityDefinition
}

// Unwrap returns the underlying error.
func (e *InvalidEntityDefinitionError) Unwrap() error {
	return e.Err
}

// IsInvalidEntityDefinition returns true if the error is an
// InvalidEntityDefinitionError.
func IsInvalidEntityDefinition(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidEntityDefinitionError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidEntityDefinition)
}

// ForeignKeyTypeMismatchError is returned when a foreign key column and the
// referenced primary key have no comparison in common.
type ForeignKeyTypeMismatchError struct {
	Table           string
	Column          string
	ReferencedTable string
	FKType          string
	PKType          string
}

// Error returns the error string.
func (e *ForeignKeyTypeMismatchError) Error() string {
	return fmt.Sprintf("dbgraph: foreign key %s.%s (%s) cannot be compared to primary key of %s (%s)",
		e.Table, e.Column, e.FKType, e.ReferencedTable, e.PKType)
}

// Is reports whether the target error matches ErrForeignKeyTypeMismatch.
func (e *ForeignKeyTypeMismatchError) Is(err error) bool {
	return err == ErrForeignKeyTypeMismatch
}

// IsForeignKeyTypeMismatch returns true if the error is a
// ForeignKeyTypeMismatchError.
func IsForeignKeyTypeMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *ForeignKeyTypeMismatchError
	return errors.As(err, &e) || errors.Is(err, ErrForeignKeyTypeMismatch)
}

// AccidentalCartesianJoinError names the tables that are not connected to
// the rest of the query.
type AccidentalCartesianJoinError struct {
	Tables []string
}

// Error returns the error string.
func (e *AccidentalCartesianJoinError) Error() string {
	return fmt.Sprintf("dbgraph: accidental cartesian join: no relationship connects %s to the rest of the query",
		strings.Join(e.Tables, ", "))
}

// Is reports whether the target error matches ErrAccidentalCartesianJoin.
func (e *AccidentalCartesianJoinError) Is(err error) bool {
	return err == ErrAccidentalCartesianJoin
}

// IsAccidentalCartesianJoin returns true if the error is an
// AccidentalCartesianJoinError.
func IsAccidentalCartesianJoin(err error) bool {
	if err == nil {
		return false
	}
	var e *AccidentalCartesianJoinError
	return errors.As(err, &e) || errors.Is(err, ErrAccidentalCartesianJoin)
}

// AccidentalBlankQueryError is returned for queries without any criteria.
type AccidentalBlankQueryError struct {
	Tables []string
}

// Error returns the error string.
func (e *AccidentalBlankQueryError) Error() string {
	return fmt.Sprintf("dbgraph: accidental blank query: no criteria on %s", strings.Join(e.Tables, ", "))
}

// Is reports whether the target error matches ErrAccidentalBlankQuery.
func (e *AccidentalBlankQueryError) Is(err error) bool {
	return err == ErrAccidentalBlankQuery
}

// IsAccidentalBlankQuery returns true if the error is an
// AccidentalBlankQueryError.
func IsAccidentalBlankQuery(err error) bool {
	if err == nil {
		return false
	}
	var e *AccidentalBlankQueryError
	return errors.As(err, &e) || errors.Is(err, ErrAccidentalBlankQuery)
}

// AscendingExpressionError reports a key that cannot drive a recursive query.
type AscendingExpressionError struct {
	Key   string // Key column
	Table string // Table of the recursive entity
	Err   error  // Optional underlying cause
}

// Error returns the error string.
func (e *AscendingExpressionError) Error() string {
	msg := fmt.Sprintf("dbgraph: some combination of the datatypes in %s and %s prevents ascending queries working", e.Key, e.Table)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether the target error matches ErrUnableToCreateAscendingExpression.
func (e *AscendingExpressionError) Is(err error) bool {
	return err == ErrUnableToCreateAscendingExpression
}

// Unwrap returns the underlying error.
func (e *AscendingExpressionError) Unwrap() error {
	return e.Err
}

// IsUnableToCreateAscendingExpression returns true if the error is an
// AscendingExpressionError.
func IsUnableToCreateAscendingExpression(err error) bool {
	if err == nil {
		return false
	}
	var e *AscendingExpressionError
	return errors.As(err, &e) || errors.Is(err, ErrUnableToCreateAscendingExpression)
}

// UndefinedPrimaryKeyError is returned when an entity without a primary key
// is used where one is required.
type UndefinedPrimaryKeyError struct {
	Table string
}

// Error returns the error string.
func (e *UndefinedPrimaryKeyError) Error() string {
	return fmt.Sprintf("dbgraph: primary key of %s is undefined", e.Table)
}

// Is reports whether the target error matches ErrUndefinedPrimaryKey.
func (e *UndefinedPrimaryKeyError) Is(err error) bool {
	return err == ErrUndefinedPrimaryKey
}

// IsUndefinedPrimaryKey returns true if the error is an UndefinedPrimaryKeyError.
func IsUndefinedPrimaryKey(err error) bool {
	if err == nil {
		return false
	}
	var e *UndefinedPrimaryKeyError
	return errors.As(err, &e) || errors.Is(err, ErrUndefinedPrimaryKey)
}

// UnsupportedOperationError is returned for operations the action or
// dialect cannot perform.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

// Error returns the error string.
func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("dbgraph: unsupported operation %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("dbgraph: unsupported operation %s", e.Op)
}

// Is reports whether the target error matches ErrUnsupportedOperation.
func (e *UnsupportedOperationError) Is(err error) bool {
	return err == ErrUnsupportedOperation
}

// IsUnsupportedOperation returns true if the error is an
// UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedOperationError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedOperation)
}

// UnknownColumnError is returned when a column is not declared by an entity.
type UnknownColumnError struct {
	Table  string
	Column string
}

// Error returns the error string.
func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("dbgraph: unknown column %q on %s", e.Column, e.Table)
}

// Is reports whether the target error matches ErrUnknownColumn.
func (e *UnknownColumnError) Is(err error) bool {
	return err == ErrUnknownColumn
}

// IsUnknownColumn returns true if the error is an UnknownColumnError.
func IsUnknownColumn(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownColumnError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownColumn)
}

// StatementError wraps the failure of a statement after its retry was
// exhausted. The statement text is kept for diagnosis.
type StatementError struct {
	SQL      string
	Attempts int
	Err      error
}

// Error returns the error string.
func (e *StatementError) Error() string {
	return fmt.Sprintf("dbgraph: statement failed after %d attempt(s): %v\n%s", e.Attempts, e.Err, e.SQL)
}

// Unwrap returns the underlying error.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// IsStatementError returns true if the error is a StatementError.
func IsStatementError(err error) bool {
	if err == nil {
		return false
	}
	var e *StatementError
	return errors.As(err, &e)
}

// QueryError wraps a query execution error with additional context.
type QueryError struct {
	Tables []string // Tables being queried
	Op     string   // Operation (e.g., "select", "count")
	Err    error    // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	tables := strings.Join(e.Tables, ", ")
	if e.Op != "" {
		return fmt.Sprintf("dbgraph: querying %s (%s): %v", tables, e.Op, e.Err)
	}
	return fmt.Sprintf("dbgraph: querying %s: %v", tables, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("dbgraph: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "dbgraph: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("dbgraph: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
