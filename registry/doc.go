// Package registry provides a reference implementation of the
// pdoflow.Registry boundary: an explicitly constructed, in-memory map
// from (entry point, target function) to a pdoflow.Callable.
//
// This replaces the dynamic-import-by-string-path mechanism of the
// originating Python system (spec.md §9 "Dynamic user-function
// loading") with explicit static registration: producers register
// their callables by name at process startup and share one Registry
// instance by convention, not by package-level global state (spec.md
// §9 "Global singleton registry").
package registry
