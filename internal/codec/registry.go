package codec

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Registry holds the type mappings of a process. Mappings are registered during
// initialization; Seal then freezes the registry and lookups become lock-free reads.
type Registry struct {
	mutex    sync.Mutex
	sealed   atomic.Bool
	mappings map[reflect.Type]any
	names    map[string]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{
		mappings: make(map[reflect.Type]any),
		names:    make(map[string]reflect.Type),
	}
}

// Register adds the mapping of T. It fails once the registry is sealed, when T is already
// registered, or when the mapping is invalid.
func Register[T any](r *Registry, m Mapping[T]) error {
	typ := reflect.TypeFor[T]()
	name := m.Name
	if name == "" {
		name = typ.String()
	}

	tm, err := newTypeMapping(name, m)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.sealed.Load() {
		return newError(ErrRegistrySealed, "cannot register %s", name)
	}
	if _, exists := r.mappings[typ]; exists {
		return newError(ErrInvalidMapping, "%s is already registered", typ)
	}
	if _, exists := r.names[name]; exists {
		return newError(ErrInvalidMapping, "name %s is already registered", name)
	}
	r.mappings[typ] = tm
	r.names[name] = typ
	return nil
}

// Seal freezes the registry. It is safe to call more than once.
func (r *Registry) Seal() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.sealed.Store(true)
}

// Lookup returns the mapping of T from a sealed registry.
func Lookup[T any](r *Registry) (*TypeMapping[T], error) {
	typ := reflect.TypeFor[T]()
	if !r.sealed.Load() {
		return nil, newError(ErrRegistryOpen, "lookup of %s", typ)
	}
	m, exists := r.mappings[typ]
	if !exists {
		return nil, newError(ErrUnknownType, "%s", typ)
	}
	return m.(*TypeMapping[T]), nil
}
