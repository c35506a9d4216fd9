package profiling

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/profile"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
)

// cpuProfileMu serializes Runs process-wide: only one CPU profile can
// be active at a time, so concurrent profile.Start calls are not allowed.
var cpuProfileMu sync.Mutex

// Profiler implements pdoflow.Profiler with a CPU profile captured per
// invocation. Each Run gets its own scratch directory so concurrent
// workers never contend over one cpu.pprof file, and Runs from
// concurrent workers are serialized around the single process-wide
// CPU profile.
type Profiler struct {
	// BaseDir holds one subdirectory per Run, each removed once reduced.
	// An empty BaseDir uses os.TempDir().
	BaseDir string
}

// NewProfiler builds a Profiler writing scratch profiles under baseDir
// (os.TempDir() if empty).
func NewProfiler(baseDir string) *Profiler {
	return &Profiler{BaseDir: baseDir}
}

// Run executes fn under a CPU profile and reduces the captured profile
// into a pdoflow.ProfileResult regardless of whether fn returns an
// error: profiling covers completion including failure, so a unit
// whose callable returns an error still gets a profile. A panic in fn
// is not recovered and propagates without a profile. The returned
// error is always fn's own error; a failure to capture or reduce the
// profile itself is logged by the caller's discretion via a nil
// result, not by shadowing runErr.
func (p *Profiler) Run(ctx context.Context, fn func(ctx context.Context) error) (*pdoflow.ProfileResult, error) {
	dir, err := os.MkdirTemp(p.BaseDir, "pdoflow-profile-*")
	if err != nil {
		return nil, fn(ctx)
	}
	defer os.RemoveAll(dir)

	cpuProfileMu.Lock()
	defer cpuProfileMu.Unlock()
	stop := profile.Start(
		profile.CPUProfile,
		profile.ProfilePath(dir),
		profile.NoShutdownHook,
		profile.Quiet,
	)
	runErr := fn(ctx)
	stop.Stop()

	result, reduceErr := ReduceFile(filepath.Join(dir, "cpu.pprof"))
	if reduceErr != nil {
		return nil, runErr
	}
	return result, runErr
}
