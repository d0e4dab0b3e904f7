// Package query builds SELECT statements from a graph of entity instances.
//
// Every instance added to a Query is a node of the graph. The joins between
// the nodes are inferred by the relation package, and the query refuses to
// render when the graph is disconnected or when no instance restricts its
// rows, unless the caller explicitly allows it:
//
//	marque := entity.MustNew(schema.Marque{})
//	marque.Where("name", operator.Like("T%"))
//	company := entity.MustNew(schema.CarCompany{})
//
//	rows, err := query.New(dialect.MustLookup(dialect.Postgres)).
//		Add(marque, company).
//		All(ctx, drv)
package query

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/expr"
	"github.com/syssam/dbgraph/relation"
)

// State is a step of the query builder.
type State uint8

// Builder states. Failed is terminal until the graph changes.
const (
	StateEmpty State = iota
	StateNodesRegistered
	StateEdgesResolved
	StateConnectivityChecked
	StateRendered
	StateFailed
)

var stateNames = [...]string{
	StateEmpty:               "Empty",
	StateNodesRegistered:     "NodesRegistered",
	StateEdgesResolved:       "EdgesResolved",
	StateConnectivityChecked: "ConnectivityChecked",
	StateRendered:            "Rendered",
	StateFailed:              "Failed",
}

// String returns the state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// ErrNoInstances is returned when rendering a query without instances.
var ErrNoInstances = errors.New("dbgraph: query has no instances")

type (
	// Option configures a Query.
	Option func(*config)

	// Sort is an ORDER BY term.
	Sort struct {
		Expr expr.Expr
		Desc bool
	}

	// Selected is an extra expression of the select list.
	Selected struct {
		Alias string
		Expr  expr.Expr
	}

	config struct {
		blankAllowed     bool
		cartesianAllowed bool
		distinct         bool
		limit, offset    int
		sorts            []Sort
		columns          []Selected
		only             []Selected
	}
)

// WithBlankQueryAllowed allows queries that select every row of their
// tables.
func WithBlankQueryAllowed() Option {
	return func(c *config) { c.blankAllowed = true }
}

// WithCartesianJoinAllowed allows instances that are not connected to the
// rest of the query. They are joined with CROSS JOIN.
func WithCartesianJoinAllowed() Option {
	return func(c *config) { c.cartesianAllowed = true }
}

// WithLimit limits the number of returned rows.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

// WithOffset skips the first n rows.
func WithOffset(n int) Option {
	return func(c *config) { c.offset = n }
}

// WithDistinct removes duplicated rows.
func WithDistinct() Option {
	return func(c *config) { c.distinct = true }
}

// WithOrderBy appends sort terms.
func WithOrderBy(sorts ...Sort) Option {
	return func(c *config) { c.sorts = append(c.sorts, sorts...) }
}

// WithColumns adds an expression to the select list. Its value is read with
// Row.Value.
func WithColumns(alias string, e expr.Expr) Option {
	return func(c *config) { c.columns = append(c.columns, Selected{Alias: alias, Expr: e}) }
}

// WithSelectOnly replaces the select list with the given expressions, in
// order. Rows of such queries carry no instance values, only the values
// read with Row.Value.
func WithSelectOnly(columns ...Selected) Option {
	return func(c *config) { c.only = append(c.only, columns...) }
}

// Asc sorts by e in ascending order.
func Asc(e expr.Expr) Sort { return Sort{Expr: e} }

// Desc sorts by e in descending order.
func Desc(e expr.Expr) Sort { return Sort{Expr: e, Desc: true} }

// node is an instance of the graph.
type node struct {
	inst     *entity.Instance
	alias    string
	optional bool
	seq      int
}

// edge holds the join conditions between two nodes, by index in the sorted
// node list with a < b.
type edge struct {
	a, b  int
	conds []expr.Expr
}

// span is a relationship referencing more than two nodes. Its condition
// joins the last of them to be placed.
type span struct {
	nodes []int
	cond  expr.Expr
}

// ready reports if i is in the span and the other nodes are placed.
func (s span) ready(i int, placed []bool) bool {
	in := false
	for _, k := range s.nodes {
		switch {
		case k == i:
			in = true
		case !placed[k]:
			return false
		}
	}
	return in
}

// slot is a column of the rendered select list.
type slot struct {
	node   *node
	column string
	extra  string
}

// Query is a graph of instances rendered to one SELECT statement. A Query is
// not safe for concurrent use.
type Query struct {
	d      dialect.Definition
	cfg    config
	nodes  []*node
	seen   map[*entity.Instance]*node
	state  State
	err    error
	edges  []edge
	spans  []span
	report Report
	layout []slot
	sql    string
}

// New returns an empty query rendered for dialect d.
func New(d dialect.Definition, opts ...Option) *Query {
	q := &Query{d: d, seen: make(map[*entity.Instance]*node)}
	for _, opt := range opts {
		opt(&q.cfg)
	}
	return q
}

// Dialect returns the dialect of the query.
func (q *Query) Dialect() dialect.Definition { return q.d }

// Add adds required instances. Adding an instance twice has no effect.
func (q *Query) Add(instances ...*entity.Instance) *Query {
	return q.add(false, instances)
}

// AddOptional adds instances joined with LEFT OUTER JOIN. Their criteria
// restrict the joined rows, not the result.
func (q *Query) AddOptional(instances ...*entity.Instance) *Query {
	return q.add(true, instances)
}

func (q *Query) add(optional bool, instances []*entity.Instance) *Query {
	for _, inst := range instances {
		if inst == nil {
			continue
		}
		if _, ok := q.seen[inst]; ok {
			continue
		}
		n := &node{inst: inst, optional: optional, seq: len(q.nodes)}
		q.nodes = append(q.nodes, n)
		q.seen[inst] = n
	}
	q.reset()
	return q
}

// Options applies opts to the query.
func (q *Query) Options(opts ...Option) *Query {
	for _, opt := range opts {
		opt(&q.cfg)
	}
	q.reset()
	return q
}

func (q *Query) reset() {
	q.err, q.sql, q.edges, q.spans, q.layout, q.report = nil, "", nil, nil, nil, Report{}
	q.state = StateEmpty
	if len(q.nodes) > 0 {
		q.state = StateNodesRegistered
	}
}

// State returns the builder state.
func (q *Query) State() State { return q.state }

// Instances returns the instances in alias order.
func (q *Query) Instances() []*entity.Instance {
	out := make([]*entity.Instance, len(q.nodes))
	for i, n := range q.sorted() {
		out[i] = n.inst
	}
	return out
}

// Tables returns the table names of the query in alias order.
func (q *Query) Tables() []string {
	out := make([]string, len(q.nodes))
	for i, n := range q.sorted() {
		out[i] = n.inst.TableName()
	}
	return out
}

// sorted returns the nodes ordered by type name, ties by insertion order.
func (q *Query) sorted() []*node {
	nodes := append([]*node(nil), q.nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].inst.TypeName() < nodes[j].inst.TypeName()
	})
	return nodes
}

// Build runs the builder up to the Rendered state from the current state of
// the instances. It is called by every method that needs the statement, so
// changes made to the instances between calls are always rendered.
func (q *Query) Build() error {
	q.reset()
	if err := q.build(); err != nil {
		q.state, q.err = StateFailed, err
		return err
	}
	return nil
}

func (q *Query) build() error {
	if len(q.nodes) == 0 {
		return ErrNoInstances
	}
	q.nodes = q.sorted()
	for i, n := range q.nodes {
		n.alias = "t" + strconv.Itoa(i)
		if err := n.inst.Err(); err != nil {
			return fmt.Errorf("dbgraph: instance %s: %w", n.inst, err)
		}
	}
	if err := q.resolve(); err != nil {
		return err
	}
	q.state = StateEdgesResolved
	q.report = q.connectivity()
	if !q.report.Connected && !q.cfg.cartesianAllowed {
		return &dbgraph.AccidentalCartesianJoinError{Tables: q.report.disconnected()}
	}
	q.state = StateConnectivityChecked
	if !q.cfg.blankAllowed && q.blank() {
		return &dbgraph.AccidentalBlankQueryError{Tables: q.Tables()}
	}
	s, err := q.render(selectRows)
	if err != nil {
		return err
	}
	q.sql, q.state = s, StateRendered
	return nil
}

// resolve computes the join conditions of every pair of nodes.
func (q *Query) resolve() error {
	for a := range q.nodes {
		for b := a + 1; b < len(q.nodes); b++ {
			res, err := relation.Resolve(q.nodes[a].inst, q.nodes[b].inst)
			if err != nil {
				return err
			}
			if res.Connected() {
				q.edges = append(q.edges, edge{a: a, b: b, conds: res.Expressions})
			}
		}
	}
	for _, n := range q.nodes {
		for _, rel := range relation.Spanning(n.inst) {
			if s, ok := q.span(rel); ok {
				q.spans = append(q.spans, s)
			}
		}
	}
	return nil
}

// span maps the tables of rel to nodes. Relationships naming an instance
// outside the query are ignored.
func (q *Query) span(rel expr.Expr) (span, bool) {
	s := span{cond: rel}
	for _, t := range rel.Tables() {
		k := slices.IndexFunc(q.nodes, func(n *node) bool { return expr.Table(n.inst) == t })
		if k < 0 {
			return span{}, false
		}
		s.nodes = append(s.nodes, k)
	}
	return s, true
}

// blank reports if no instance, optional ones included, has criteria.
func (q *Query) blank() bool {
	for _, n := range q.nodes {
		if n.inst.HasCriteria() {
			return false
		}
	}
	return true
}

// SQL returns the SELECT statement of the query.
func (q *Query) SQL() (string, error) {
	if err := q.Build(); err != nil {
		return "", err
	}
	return q.sql, nil
}

// CountSQL returns the statement counting the rows of the query.
// Pagination and ordering are ignored.
func (q *Query) CountSQL() (string, error) {
	if err := q.Build(); err != nil {
		return "", err
	}
	return q.render(countRows)
}

// Report returns the connectivity of the graph. The query is built first,
// a disconnected graph is reported even when it fails the build.
func (q *Query) Report() Report {
	_ = q.Build()
	return q.report
}

// Err returns the error of the last build.
func (q *Query) Err() error { return q.err }
