// Package registry provides the name-keyed lookup tables used to resolve
// configured source, watcher and output kinds to their descriptors.
package registry

import (
	"fmt"
	"sort"
)

// UnknownTypeError is returned when a configured type name has no registered descriptor.
type UnknownTypeError struct {
	Kind string
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown %s type '%s'", e.Kind, e.Name)
}

// Registry maps type names to descriptors of one kind.
// It is populated before any concurrent use and only read afterwards.
type Registry[T any] struct {
	kind  string
	types map[string]T
}

// New creates an empty registry for the given kind ("source", "watcher", "output").
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:  kind,
		types: make(map[string]T),
	}
}

// Kind returns the kind of descriptors held by the registry.
func (r *Registry[T]) Kind() string {
	return r.kind
}

// Register stores descriptor under name. Registering the same name twice keeps the last one.
func (r *Registry[T]) Register(name string, descriptor T) {
	r.types[name] = descriptor
}

// Lookup returns the descriptor registered under name.
func (r *Registry[T]) Lookup(name string) (T, error) {
	descriptor, ok := r.types[name]
	if !ok {
		var zero T
		return zero, &UnknownTypeError{Kind: r.kind, Name: name}
	}
	return descriptor, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
