package pdoflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

type fakeDispatcher struct {
	mu sync.Mutex

	units     [][]*ClaimedUnit
	claimErrs []error

	succeeded []uuid.UUID
	failed    []uuid.UUID
	profiles  map[uuid.UUID]*ProfileResult
}

func (d *fakeDispatcher) Claim(ctx context.Context, batchSize int) ([]*ClaimedUnit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.claimErrs) > 0 {
		err := d.claimErrs[0]
		d.claimErrs = d.claimErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(d.units) == 0 {
		return nil, nil
	}
	batch := d.units[0]
	d.units = d.units[1:]
	return batch, nil
}

func (d *fakeDispatcher) Succeed(ctx context.Context, rec *job.JobRecord, profile *ProfileResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.succeeded = append(d.succeeded, rec.Id)
	d.recordProfile(rec.Id, profile)
	return nil
}

func (d *fakeDispatcher) Fail(ctx context.Context, rec *job.JobRecord, profile *ProfileResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = append(d.failed, rec.Id)
	d.recordProfile(rec.Id, profile)
	return nil
}

// recordProfile mimics a Dispatcher persisting a profile in the same
// transaction as the outcome update; d.mu is already held by the caller.
func (d *fakeDispatcher) recordProfile(jobId uuid.UUID, profile *ProfileResult) {
	if profile == nil {
		return
	}
	if d.profiles == nil {
		d.profiles = make(map[uuid.UUID]*ProfileResult)
	}
	d.profiles[jobId] = profile
}

type fakeRegistry struct {
	fn Callable
}

func (r *fakeRegistry) Resolve(entryPoint, targetFunction string) (Callable, error) {
	if r.fn == nil {
		return nil, errors.New("no callable registered")
	}
	return r.fn, nil
}

func newUnit(entryPoint, targetFunction string) *ClaimedUnit {
	rec := job.NewJobRecord(uuid.New(), 0, nil, nil)
	return &ClaimedUnit{JobRecord: rec, EntryPoint: entryPoint, TargetFunction: targetFunction}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not satisfied before timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProfiler always profiles and returns a fixed result, regardless
// of whether the wrapped fn errors, mirroring profiling.Profiler's
// obligation to reduce on completion including failure.
type fakeProfiler struct {
	result *ProfileResult
}

func (p *fakeProfiler) Run(ctx context.Context, fn func(ctx context.Context) error) (*ProfileResult, error) {
	err := fn(ctx)
	return p.result, err
}

func TestWorkerHandleThreadsProfileIntoSucceed(t *testing.T) {
	unit := newUnit("app", "fn")
	disp := &fakeDispatcher{units: [][]*ClaimedUnit{{unit}}}
	reg := &fakeRegistry{fn: func(ctx context.Context, args []any, kwargs map[string]any) error {
		return nil
	}}
	profiler := &fakeProfiler{result: &ProfileResult{TotalCalls: 7}}
	w := NewWorker(disp, reg, profiler, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond, ProfileRate: 1}, discardLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.succeeded) == 1
	})

	disp.mu.Lock()
	defer disp.mu.Unlock()
	profile, ok := disp.profiles[unit.Id]
	if !ok {
		t.Fatal("expected a profile recorded against the successful unit")
	}
	if profile.TotalCalls != 7 {
		t.Fatalf("TotalCalls = %d, want 7", profile.TotalCalls)
	}
}

func TestWorkerHandleThreadsProfileIntoFail(t *testing.T) {
	unit := newUnit("app", "fn")
	disp := &fakeDispatcher{units: [][]*ClaimedUnit{{unit}}}
	reg := &fakeRegistry{fn: func(ctx context.Context, args []any, kwargs map[string]any) error {
		return errors.New("boom")
	}}
	profiler := &fakeProfiler{result: &ProfileResult{TotalCalls: 3}}
	w := NewWorker(disp, reg, profiler, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond, ProfileRate: 1}, discardLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.failed) == 1
	})

	disp.mu.Lock()
	defer disp.mu.Unlock()
	profile, ok := disp.profiles[unit.Id]
	if !ok {
		t.Fatal("expected a profile recorded against the failed unit")
	}
	if profile.TotalCalls != 3 {
		t.Fatalf("TotalCalls = %d, want 3", profile.TotalCalls)
	}
}

func TestWorkerHandleSucceedsAndRecordsMetric(t *testing.T) {
	unit := newUnit("app", "fn")
	disp := &fakeDispatcher{units: [][]*ClaimedUnit{{unit}}}
	reg := &fakeRegistry{fn: func(ctx context.Context, args []any, kwargs map[string]any) error {
		return nil
	}}
	w := NewWorker(disp, reg, nil, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond}, discardLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.succeeded) == 1
	})

	if got := testutil.ToFloat64(w.metrics.UnitsSucceeded); got != 1 {
		t.Fatalf("UnitsSucceeded = %v, want 1", got)
	}
}

func TestWorkerHandleFailsOnCallableError(t *testing.T) {
	unit := newUnit("app", "fn")
	disp := &fakeDispatcher{units: [][]*ClaimedUnit{{unit}}}
	reg := &fakeRegistry{fn: func(ctx context.Context, args []any, kwargs map[string]any) error {
		return errors.New("boom")
	}}
	w := NewWorker(disp, reg, nil, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond}, discardLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.failed) == 1
	})
}

func TestWorkerHandleFailsOnResolutionError(t *testing.T) {
	unit := newUnit("app", "missing")
	disp := &fakeDispatcher{units: [][]*ClaimedUnit{{unit}}}
	reg := &fakeRegistry{} // no callable registered
	w := NewWorker(disp, reg, nil, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond}, discardLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.failed) == 1
	})
}

func TestWorkerFastFailsUnitAlreadyInFailureCache(t *testing.T) {
	unit := newUnit("app", "fn")
	calls := 0
	disp := &fakeDispatcher{units: [][]*ClaimedUnit{{unit}}}
	reg := &fakeRegistry{fn: func(ctx context.Context, args []any, kwargs map[string]any) error {
		calls++
		return nil
	}}
	w := NewWorker(disp, reg, nil, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond}, discardLogger())
	w.failures.add(unit.PostingId, unit.Id)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.failed) == 1
	})
	if calls != 0 {
		t.Fatalf("callable should not have been invoked for a fast-failed unit, called %d times", calls)
	}
}

func TestWorkerDoubleStartFails(t *testing.T) {
	disp := &fakeDispatcher{}
	reg := &fakeRegistry{}
	w := NewWorker(disp, reg, nil, WorkerConfig{BatchSize: 1, PollInterval: time.Millisecond}, discardLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop(time.Second)

	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error starting an already-started worker")
	}
}
