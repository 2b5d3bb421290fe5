// Package module holds the fixed, ordered registries of interchangeable
// grablock modules (authentication, background, cursor, input feedback).
//
// A module is selected by a configuration string of the form
// "<name>:<args>". The name part is matched against the registered names
// by prefix, in registration order, so "pass" selects "passwd". The
// reserved argument "list" asks for the available names instead.
package module

import (
	"errors"
	"fmt"
	"strings"
)

// ListArg is the reserved selection that enumerates a registry.
const ListArg = "list"

var (
	// ErrNotFound is returned when no registered name matches.
	ErrNotFound = errors.New("module: not found")

	// ErrEmptyRegistry is returned when selecting from an empty registry.
	ErrEmptyRegistry = errors.New("module: registry is empty")
)

// Factory creates a fresh, uninitialized module instance.
type Factory[T any] func() T

type entry[T any] struct {
	name    string
	factory Factory[T]
}

// Registry is an ordered set of named module factories. The first
// registered module is the default. A Registry is built once at startup
// and is read-only afterwards.
type Registry[T any] struct {
	kind    string
	entries []entry[T]
}

// NewRegistry creates an empty registry. kind names the module family
// ("auth", "bg", ...) in diagnostics.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind}
}

// Register appends a module. Registering a duplicate name panics; the
// registries are assembled from package-level code, so a duplicate is a
// programming error.
func (r *Registry[T]) Register(name string, factory Factory[T]) *Registry[T] {
	for _, e := range r.entries {
		if e.name == name {
			panic(fmt.Sprintf("module: duplicate %s module %q", r.kind, name))
		}
	}
	r.entries = append(r.entries, entry[T]{name: name, factory: factory})
	return r
}

// Kind returns the module family name.
func (r *Registry[T]) Kind() string { return r.kind }

// Names returns the registered names in registration order.
func (r *Registry[T]) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Default returns the name of the first registered module.
func (r *Registry[T]) Default() (string, error) {
	if len(r.entries) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyRegistry, r.kind)
	}
	return r.entries[0].name, nil
}

// Selection is the result of parsing a module configuration string.
type Selection[T any] struct {
	// Name is the registered name that matched.
	Name string
	// Args is everything after the first ':' (possibly empty).
	Args string
	// Raw is the configuration string as given.
	Raw string

	factory Factory[T]
}

// New creates a fresh instance of the selected module.
func (s Selection[T]) New() T { return s.factory() }

// IsList reports whether spec is the reserved "list" request for the
// registry itself.
func IsList(spec string) bool {
	return spec == ListArg
}

// Lookup resolves a configuration string. An empty spec selects the
// default module. The part before the first ':' must be a prefix of a
// registered name; the first match in registration order wins.
func (r *Registry[T]) Lookup(spec string) (Selection[T], error) {
	if len(r.entries) == 0 {
		return Selection[T]{}, fmt.Errorf("%w: %s", ErrEmptyRegistry, r.kind)
	}
	if spec == "" {
		e := r.entries[0]
		return Selection[T]{Name: e.name, Raw: spec, factory: e.factory}, nil
	}

	name, args, _ := strings.Cut(spec, ":")
	if name == "" {
		return Selection[T]{}, fmt.Errorf("%w: %s module for [%s]", ErrNotFound, r.kind, spec)
	}
	for _, e := range r.entries {
		if strings.HasPrefix(e.name, name) {
			return Selection[T]{Name: e.name, Args: args, Raw: spec, factory: e.factory}, nil
		}
	}
	return Selection[T]{}, fmt.Errorf("%w: %s module %q", ErrNotFound, r.kind, name)
}
