package entity

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/dbgraph"
)

// Registry memoises descriptors and records the entity types of an
// application. Types are registered explicitly at start-up.
//
// Descriptors are built once per type: concurrent first callers for the
// same type wait for a single builder, unrelated types never contend.
type Registry struct {
	group singleflight.Group
	cache sync.Map // reflect.Type => *Descriptor

	mu      sync.RWMutex
	schemas map[reflect.Type]dbgraph.Interface
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[reflect.Type]dbgraph.Interface)}
}

// Default is the process-wide registry used by the package-level functions.
var Default = NewRegistry()

// Register describes and records the given declarations. All declarations
// are attempted; the errors of invalid ones are returned together.
func (r *Registry) Register(schemas ...dbgraph.Interface) error {
	var errs []error
	for _, s := range schemas {
		d, err := r.Describe(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.mu.Lock()
		r.schemas[d.typ] = s
		r.mu.Unlock()
	}
	return dbgraph.NewAggregateError(errs...)
}

// Describe returns the descriptor of the declaration, building it on first
// use.
func (r *Registry) Describe(schema dbgraph.Interface) (*Descriptor, error) {
	if schema == nil {
		return nil, &dbgraph.InvalidEntityDefinitionError{Type: "<nil>", Reason: "nil declaration"}
	}
	t := indirect(reflect.TypeOf(schema))
	if d, ok := r.cache.Load(t); ok {
		return d.(*Descriptor), nil
	}
	v, err, _ := r.group.Do(fmt.Sprintf("%s@%p", TypeName(t), t), func() (any, error) {
		if d, ok := r.cache.Load(t); ok {
			return d, nil
		}
		d, err := describe(schema)
		if err != nil {
			return nil, err
		}
		actual, _ := r.cache.LoadOrStore(t, d)
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

// Lookup returns the descriptor of the entity type t. Unregistered types
// are described from their zero value.
func (r *Registry) Lookup(t reflect.Type) (*Descriptor, error) {
	t = indirect(t)
	if d, ok := r.cache.Load(t); ok {
		return d.(*Descriptor), nil
	}
	s, ok := r.Schema(t)
	if !ok {
		zero, isSchema := reflect.New(t).Elem().Interface().(dbgraph.Interface)
		if !isSchema {
			return nil, fmt.Errorf("entity: %s does not implement dbgraph.Interface", TypeName(t))
		}
		s = zero
	}
	return r.Describe(s)
}

// Schema returns the registered declaration of type t.
func (r *Registry) Schema(t reflect.Type) (dbgraph.Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[indirect(t)]
	return s, ok
}

// Types returns the registered types sorted by canonical name.
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	types := make([]reflect.Type, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	r.mu.RUnlock()
	sortTypes(types)
	return types
}

// RelatedTypes returns the registered types declaring a foreign key to t,
// sorted by canonical name.
func (r *Registry) RelatedTypes(t reflect.Type) []reflect.Type {
	t = indirect(t)
	var related []reflect.Type
	for _, rt := range r.Types() {
		d, err := r.Lookup(rt)
		if err != nil {
			continue
		}
		for _, ref := range d.referenced {
			if ref == t {
				related = append(related, rt)
				break
			}
		}
	}
	return related
}

// New returns an empty instance of the declaration.
func (r *Registry) New(schema dbgraph.Interface) (*Instance, error) {
	d, err := r.Describe(schema)
	if err != nil {
		return nil, err
	}
	return d.NewInstance(), nil
}

func sortTypes(types []reflect.Type) {
	sort.Slice(types, func(i, j int) bool {
		return TypeName(types[i]) < TypeName(types[j])
	})
}

// Register records declarations in the default registry.
func Register(schemas ...dbgraph.Interface) error {
	return Default.Register(schemas...)
}

// Describe returns the descriptor of the declaration from the default
// registry.
func Describe(schema dbgraph.Interface) (*Descriptor, error) {
	return Default.Describe(schema)
}

// New returns an empty instance of the declaration.
func New(schema dbgraph.Interface) (*Instance, error) {
	return Default.New(schema)
}

// MustNew is like New but panics on invalid declarations.
func MustNew(schema dbgraph.Interface) *Instance {
	i, err := New(schema)
	if err != nil {
		panic(err)
	}
	return i
}
