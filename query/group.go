package query

import (
	"fmt"

	"github.com/syssam/dbgraph/entity"
)

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// GroupByKey groups values by key. The keys are returned in order of first
// appearance.
//
// Example:
//
//	byCompany, keys := query.GroupByKey(marques, func(m *entity.Instance) any {
//		v, _ := m.Value("fk_carcompany")
//		return v
//	})
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) (map[K][]V, []K) {
	var (
		keys   []K
		groups = make(map[K][]V)
	)
	for _, v := range values {
		key := keyFn(v)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], v)
	}
	return groups, keys
}

// OrderGroupsByKeys returns the groups in the order of keys. Missing keys
// yield nil groups.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// Group is an instance with the instances related to it in a result set.
type Group struct {
	Instance *entity.Instance
	Related  []*entity.Instance
}

// RelatedInstances groups the instances matching that by the instance
// matching this, across rows. Groups follow the order of first appearance
// of their instance; related instances are deduplicated and unmatched outer
// join results are left out.
func RelatedInstances(rows []*Row, this, that *entity.Instance) []Group {
	type pair struct{ this, that *entity.Instance }
	var pairs []pair
	for _, r := range rows {
		a := r.Get(this)
		if a == nil || a.IsEmpty() {
			continue
		}
		pairs = append(pairs, pair{this: a, that: r.Get(that)})
	}
	groups, keys := GroupByKey(pairs, func(p pair) string { return identity(p.this) })
	out := make([]Group, 0, len(keys))
	for _, ps := range OrderGroupsByKeys(keys, groups) {
		g := Group{Instance: ps[0].this}
		seen := make(map[string]bool)
		for _, p := range ps {
			if p.that == nil || p.that.IsEmpty() {
				continue
			}
			if id := identity(p.that); !seen[id] {
				seen[id] = true
				g.Related = append(g.Related, p.that)
			}
		}
		out = append(out, g)
	}
	return out
}

// identity returns the key of a loaded instance: its primary key value, or
// all of its values for types without primary key.
func identity(inst *entity.Instance) string {
	if pk, err := inst.PrimaryKeyValue(); err == nil && pk != nil {
		return fmt.Sprintf("%v", pk)
	}
	var key string
	for _, c := range inst.Descriptor().Columns() {
		v, _ := inst.Value(c.Name)
		key += fmt.Sprintf("%v\x00", v)
	}
	return key
}
