// Package hooks provides the explicit registration table for named
// side-effect functions referenced by a node's external_functions list.
//
// Hooks are registered up front from a statically known set (plus whatever
// the caller adds) before node configuration begins; there is no runtime
// discovery.
package hooks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/corralvm/corral/internal/machine"
)

// ErrUnknownHook indicates a referenced external function was never
// registered.
var ErrUnknownHook = errors.New("unknown hook")

// Func is a side-effect hook invoked with the node's VM definition as its
// sole argument.
type Func func(*machine.Definition) error

// Registry maps hook names to functions. The configuration pass is
// single-threaded, so the registry carries no locking.
type Registry struct {
	hooks map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Func)}
}

// DefaultRegistry returns a registry pre-populated with the built-in hooks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, fn := range Builtin() {
		r.Register(name, fn)
	}
	return r
}

// Register adds or replaces a named hook.
func (r *Registry) Register(name string, fn Func) {
	r.hooks[name] = fn
}

// Invoke looks up a hook by name and calls it with the definition.
func (r *Registry) Invoke(name string, def *machine.Definition) error {
	fn, ok := r.hooks[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHook, name)
	}

	if err := fn(def); err != nil {
		return fmt.Errorf("hook %q: %w", name, err)
	}
	return nil
}

// Names returns the registered hook names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
