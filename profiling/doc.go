// Package profiling implements pdoflow.Profiler by sampling a unit's
// execution with a CPU profiler and reducing the result into the
// per-function call-graph shape pdoflow.ProfileResult expects.
//
// Capture uses github.com/pkg/profile (runtime/pprof under the hood);
// reduction parses the resulting pprof-format file with
// github.com/google/pprof/profile.
package profiling
