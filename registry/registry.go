package registry

import (
	"fmt"
	"sync"

	"github.com/mit-kavli-institute/pdoflow-go"
)

// key identifies a callable by the same (entry point, target function)
// pair a Posting carries.
type key struct {
	entryPoint     string
	targetFunction string
}

// MapRegistry is a concurrency-safe, explicitly constructed
// implementation of pdoflow.Registry backed by an in-memory map.
// Producers register callables once at startup; MapRegistry does not
// read or write any shared package-level state.
type MapRegistry struct {
	mu        sync.RWMutex
	callables map[key]pdoflow.Callable
}

// New creates an empty MapRegistry.
func New() *MapRegistry {
	return &MapRegistry{
		callables: make(map[key]pdoflow.Callable),
	}
}

// Register associates (entryPoint, targetFunction) with fn, overwriting
// any previous registration for the same pair. Register is typically
// called during process startup, before any Worker begins resolving.
func (r *MapRegistry) Register(entryPoint, targetFunction string, fn pdoflow.Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callables[key{entryPoint, targetFunction}] = fn
}

// Resolve implements pdoflow.Registry.
func (r *MapRegistry) Resolve(entryPoint, targetFunction string) (pdoflow.Callable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.callables[key{entryPoint, targetFunction}]
	if !ok {
		return nil, fmt.Errorf("registry: no callable registered for entry point %q, function %q", entryPoint, targetFunction)
	}
	return fn, nil
}
