package profiling

import (
	"os"

	"github.com/google/pprof/profile"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
)

// ReduceFile parses the pprof-format CPU profile at path and reduces
// its samples into a pdoflow.ProfileResult: one ProfiledFunction per
// distinct call-stack frame, with self/cumulative time and caller-callee
// edges aggregated across all samples.
//
// The pprof sample model carries full stack traces rather than Python's
// flat call-count bookkeeping, so PrimitiveCalls is reported equal to
// TotalCalls here: recursion depth is not distinguished.
func ReduceFile(path string) (*pdoflow.ProfileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	prof, err := profile.Parse(f)
	if err != nil {
		return nil, err
	}
	return Reduce(prof), nil
}

// Reduce walks a parsed pprof profile's samples and produces the
// equivalent pdoflow.ProfileResult.
func Reduce(prof *profile.Profile) *pdoflow.ProfileResult {
	valueIndex := sampleValueIndex(prof)

	type accum struct {
		fn             pdoflow.ProfiledFunction
		primitiveCalls int64
		totalCalls     int64
		totalTime      float64
		cumulativeTime float64
		callees        map[pdoflow.ProfiledFunctionKey]pdoflow.ProfiledEdge
	}
	functions := make(map[pdoflow.ProfiledFunctionKey]*accum)

	keyOf := func(loc *profile.Location) pdoflow.ProfiledFunctionKey {
		if len(loc.Line) == 0 || loc.Line[0].Function == nil {
			return pdoflow.ProfiledFunctionKey{File: "unknown", Name: "unknown", Lineno: 0}
		}
		line := loc.Line[0]
		return pdoflow.ProfiledFunctionKey{
			File:   line.Function.Filename,
			Name:   line.Function.Name,
			Lineno: line.Line,
		}
	}

	touch := func(key pdoflow.ProfiledFunctionKey) *accum {
		a, ok := functions[key]
		if !ok {
			a = &accum{
				fn: pdoflow.ProfiledFunction{
					File:   key.File,
					Name:   key.Name,
					Lineno: key.Lineno,
				},
				callees: make(map[pdoflow.ProfiledFunctionKey]pdoflow.ProfiledEdge),
			}
			functions[key] = a
		}
		return a
	}

	var totalCalls int64
	var totalTime float64

	for _, sample := range prof.Sample {
		if len(sample.Location) == 0 {
			continue
		}
		value := 1.0
		if valueIndex >= 0 && valueIndex < len(sample.Value) {
			value = float64(sample.Value[valueIndex])
		}
		totalCalls++
		totalTime += value

		// sample.Location is ordered leaf-first: index 0 is where the
		// sample was taken, each following entry its caller.
		leafKey := keyOf(sample.Location[0])
		leaf := touch(leafKey)
		leaf.totalCalls++
		leaf.primitiveCalls++
		leaf.totalTime += value

		seen := make(map[pdoflow.ProfiledFunctionKey]bool, len(sample.Location))
		for i, loc := range sample.Location {
			key := keyOf(loc)
			if !seen[key] {
				seen[key] = true
				touch(key).cumulativeTime += value
			}
			if i+1 < len(sample.Location) {
				calleeKey := key
				callerKey := keyOf(sample.Location[i+1])
				caller := touch(callerKey)
				edge := caller.callees[calleeKey]
				edge.Calls++
				edge.Time += value
				caller.callees[calleeKey] = edge
			}
		}
	}

	result := &pdoflow.ProfileResult{
		TotalCalls: totalCalls,
		TotalTime:  totalTime,
		Functions:  make([]pdoflow.ProfiledFunction, 0, len(functions)),
	}
	for key, a := range functions {
		fn := a.fn
		fn.PrimitiveCalls = a.primitiveCalls
		fn.TotalCalls = a.totalCalls
		fn.TotalTime = a.totalTime
		fn.CumulativeTime = a.cumulativeTime
		fn.Callees = a.callees
		_ = key
		result.Functions = append(result.Functions, fn)
	}
	return result
}

// sampleValueIndex returns the index of the "cpu" (nanoseconds) sample
// value type pkg/profile's CPU profile records. Without a "cpu" type it
// falls back to the last sample type, and returns -1 only if the
// profile has no sample types at all.
func sampleValueIndex(prof *profile.Profile) int {
	for i, st := range prof.SampleType {
		if st.Type == "cpu" {
			return i
		}
	}
	if len(prof.SampleType) > 0 {
		return len(prof.SampleType) - 1
	}
	return -1
}
