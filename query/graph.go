package query

// Report describes the connectivity of a query graph.
type Report struct {
	// Connected is true when every table can be reached from every other
	// one through join conditions.
	Connected bool
	// Components lists the tables of each connected component, in alias
	// order. The first component holds the first table.
	Components [][]string
	// Isolated lists the tables without any join condition in a query of
	// more than one table.
	Isolated []string
}

// disconnected returns the tables outside the first component.
func (r Report) disconnected() []string {
	var tables []string
	for _, c := range r.Components[1:] {
		tables = append(tables, c...)
	}
	return tables
}

// unionFind is a disjoint set over node indexes.
type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

// union joins the sets of a and b, the smaller root wins so that the
// representative of a set is its first node.
func (u unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra < rb:
		u[rb] = ra
	case rb < ra:
		u[ra] = rb
	}
}

func (q *Query) connectivity() Report {
	uf := newUnionFind(len(q.nodes))
	degree := make([]int, len(q.nodes))
	for _, e := range q.edges {
		uf.union(e.a, e.b)
		degree[e.a]++
		degree[e.b]++
	}
	for _, s := range q.spans {
		for _, k := range s.nodes {
			uf.union(s.nodes[0], k)
			degree[k]++
		}
	}
	var (
		r     Report
		index = make(map[int]int)
	)
	for i, n := range q.nodes {
		root := uf.find(i)
		k, ok := index[root]
		if !ok {
			k = len(r.Components)
			index[root] = k
			r.Components = append(r.Components, nil)
		}
		r.Components[k] = append(r.Components[k], n.inst.TableName())
		if degree[i] == 0 && len(q.nodes) > 1 {
			r.Isolated = append(r.Isolated, n.inst.TableName())
		}
	}
	r.Connected = len(r.Components) <= 1
	return r
}

// joinOrder returns the node indexes in the order they are joined: required
// nodes first, each one preferring a node connected to the nodes already
// placed, then the optional nodes in the same manner.
func (q *Query) joinOrder() []int {
	placed := make([]bool, len(q.nodes))
	connected := func(i int) bool {
		for _, e := range q.edges {
			if (e.a == i && placed[e.b]) || (e.b == i && placed[e.a]) {
				return true
			}
		}
		for _, s := range q.spans {
			if s.ready(i, placed) {
				return true
			}
		}
		return false
	}
	var order []int
	for _, optional := range []bool{false, true} {
		for {
			next := -1
			for i, n := range q.nodes {
				if placed[i] || n.optional != optional {
					continue
				}
				if connected(i) {
					next = i
					break
				}
				if next == -1 {
					next = i
				}
			}
			if next == -1 {
				break
			}
			placed[next] = true
			order = append(order, next)
		}
	}
	return order
}
