// Package action turns entity instances into the statements that change a
// database: INSERT, UPDATE, DELETE, CREATE TABLE and the INSERT ... SELECT of
// migrations.
//
// An action renders its statements for a dialect with SQL and runs them with
// Execute. Execute returns the list of actions that ran, and Revert returns
// the list of actions undoing them when the data to do so is known:
//
//	done, err := action.NewInsert(hero).Execute(ctx, drv)
//	if err != nil {
//		return err
//	}
//	undo, err := done.Revert()
//
// Every statement is executed with sql.ExecRetryOnce: a transient failure is
// retried once with the same text.
package action

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql"
)

// Kind is the kind of an action.
type Kind uint8

// Action kinds.
const (
	KindInsert Kind = iota + 1
	KindUpdate
	KindDelete
	KindCreateTable
	KindDropTable
	KindValidate
	KindMigrate
)

var kindNames = [...]string{
	KindInsert:      "INSERT",
	KindUpdate:      "UPDATE",
	KindDelete:      "DELETE",
	KindCreateTable: "CREATE TABLE",
	KindDropTable:   "DROP TABLE",
	KindValidate:    "VALIDATE",
	KindMigrate:     "MIGRATE",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Action is a change of the database.
type Action interface {
	// Kind returns the kind of the action.
	Kind() Kind
	// Table returns the table changed by the action.
	Table() string
	// SQL returns the statements of the action for d.
	SQL(d dialect.Definition) ([]string, error)
	// Execute runs the statements of the action and returns the actions
	// that ran.
	Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error)
	// Revert returns the actions undoing the action. Actions whose effect
	// cannot be undone fail with dbgraph.UnsupportedOperationError.
	Revert() (*List, error)
}

// Option configures the execution of actions.
type Option func(*config)

type config struct {
	d      dialect.Definition
	log    *slog.Logger
	policy Policy
}

// Policy decides whether an action may run. A non-nil error denies the
// action and is returned by Execute.
type Policy interface {
	EvalAction(ctx context.Context, a Action) error
}

// WithDialect sets the dialect the statements are rendered for. By default
// it is looked up by the dialect name of the driver.
func WithDialect(d dialect.Definition) Option {
	return func(c *config) {
		c.d = d
	}
}

// WithLogger sets the logger receiving executed statements at debug level
// and retried statements at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithPolicy sets the policy evaluated before every action runs.
func WithPolicy(p Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newConfig(ctx context.Context, drv dialect.Driver, a Action, opts []Option) (*config, error) {
	c := &config{log: discard}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy != nil {
		if err := c.policy.EvalAction(ctx, a); err != nil {
			return nil, err
		}
	}
	if c.d == nil {
		d, err := dialect.Lookup(drv.Dialect())
		if err != nil {
			return nil, err
		}
		c.d = d
	}
	return c, nil
}

// exec runs stmts in order on ex, stopping at the first failure.
func (c *config) exec(ctx context.Context, ex dialect.ExecQuerier, stmts ...string) ([]sql.Result, error) {
	retry := func(ctx context.Context, query string, err error) {
		c.log.WarnContext(ctx, "retrying statement", "sql", query, "error", err)
	}
	results := make([]sql.Result, 0, len(stmts))
	for _, stmt := range stmts {
		c.log.DebugContext(ctx, "executing statement", "sql", stmt)
		res, err := sql.ExecRetryOnce(ctx, ex, stmt, retry)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func unsupported(op, reason string) error {
	return &dbgraph.UnsupportedOperationError{Op: op, Reason: reason}
}

// List is an ordered list of actions.
type List struct {
	actions []Action
}

// NewList returns a list holding actions.
func NewList(actions ...Action) *List {
	return &List{actions: actions}
}

// Add appends actions to the list.
func (l *List) Add(actions ...Action) *List {
	l.actions = append(l.actions, actions...)
	return l
}

// Actions returns the actions of the list.
func (l *List) Actions() []Action {
	return l.actions
}

// Len returns the number of actions.
func (l *List) Len() int {
	return len(l.actions)
}

// SQL returns the statements of all actions for d.
func (l *List) SQL(d dialect.Definition) ([]string, error) {
	var stmts []string
	for _, a := range l.actions {
		s, err := a.SQL(d)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s...)
	}
	return stmts, nil
}

// Execute runs the actions in order. On failure, the actions that ran
// before are returned with the error.
func (l *List) Execute(ctx context.Context, drv dialect.Driver, opts ...Option) (*List, error) {
	done := NewList()
	for _, a := range l.actions {
		ran, err := a.Execute(ctx, drv, opts...)
		if err != nil {
			return done, err
		}
		done.Add(ran.actions...)
	}
	return done, nil
}

// Revert returns the actions undoing the list, last action first.
func (l *List) Revert() (*List, error) {
	undo := NewList()
	for i := len(l.actions) - 1; i >= 0; i-- {
		r, err := l.actions[i].Revert()
		if err != nil {
			return nil, err
		}
		undo.Add(r.actions...)
	}
	return undo, nil
}
