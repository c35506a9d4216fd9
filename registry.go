package pdoflow

import "context"

// Callable is a user function resolved from a Posting's EntryPoint and
// TargetFunction. Positional and keyword arguments are already
// deserialized from JSON by the caller (the Worker). The return value
// is discarded; side effects are the contract (spec.md §1 Non-goals).
type Callable func(ctx context.Context, args []any, kwargs map[string]any) error

// Registry is the boundary the worker runtime uses to turn a
// (entryPoint, targetFunction) pair into an invokable Callable.
// Registration of callables by user code is the producer's concern and
// lives outside the core (spec.md §6); Registry only needs to resolve.
//
// Implementations may cache internally. The Worker additionally caches
// successful resolutions per-process (spec.md §4.3 step 2.a), so a slow
// or expensive Resolve is only paid once per worker per entry point.
type Registry interface {
	Resolve(entryPoint, targetFunction string) (Callable, error)
}
