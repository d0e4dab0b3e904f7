package dialect

import (
	"fmt"
	"sort"
	"sync"
)

var definitions = struct {
	sync.RWMutex
	m map[string]Definition
}{
	m: map[string]Definition{
		H2:        newH2(),
		MySQL:     newMySQL(),
		Postgres:  newPostgres(),
		Oracle:    newOracle(),
		SQLServer: newSQLServer(),
		SQLite:    newSQLite(),
		NuoDB:     newNuoDB(),
	},
}

// Register adds or replaces the definition registered under d.Name().
func Register(d Definition) {
	definitions.Lock()
	defer definitions.Unlock()
	definitions.m[d.Name()] = d
}

// Lookup returns the definition of the named dialect.
func Lookup(name string) (Definition, error) {
	definitions.RLock()
	defer definitions.RUnlock()
	d, ok := definitions.m[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q", name)
	}
	return d, nil
}

// MustLookup is like Lookup but panics for unknown dialects.
func MustLookup(name string) Definition {
	d, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Names returns the registered dialect names in sorted order.
func Names() []string {
	definitions.RLock()
	defer definitions.RUnlock()
	names := make([]string, 0, len(definitions.m))
	for name := range definitions.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
