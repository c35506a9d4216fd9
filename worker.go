package pdoflow

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mit-kavli-institute/pdoflow-go/internal"
)

// Severity controls at what log level a user-function exception is
// emitted (spec.md §4.3 exception_logging). SeverityNone suppresses
// the log entirely; the failure is still recorded in the DB.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) log(log *slog.Logger, msg string, args ...any) {
	switch s {
	case SeverityDebug:
		log.Debug(msg, args...)
	case SeverityInfo:
		log.Info(msg, args...)
	case SeverityWarning:
		log.Warn(msg, args...)
	case SeverityError:
		log.Error(msg, args...)
	}
}

// Profiler wraps a unit's execution under a sampling profiler and
// reduces the result into a ProfileResult. Implementations live in the
// profiling package; Worker invokes Profiler only for units selected
// by the profile_rate draw.
type Profiler interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) (*ProfileResult, error)
}

// WorkerConfig configures a Worker's per-cycle behavior. Zero values
// for BatchSize, PollInterval, FailureCachePostingCap and
// FailureCacheJobCap are replaced with package defaults by NewWorker.
type WorkerConfig struct {
	// BatchSize is how many units to claim per cycle.
	BatchSize int

	// PollInterval is how long the worker sleeps after an empty claim
	// before retrying.
	PollInterval time.Duration

	// ExceptionLogging is the severity at which user-function exceptions
	// are emitted.
	ExceptionLogging Severity

	// ProfileRate is the probability, in [0, 1], that a given unit is
	// executed under the Profiler; 1 profiles every unit.
	ProfileRate float64

	// Backoff governs the retry delay after a transient DB error during
	// Claim (spec.md §7).
	Backoff BackoffConfig

	// FailureCachePostingCap and FailureCacheJobCap bound the in-memory
	// failure_cache (spec.md §4.3, §9): at most this many postings are
	// tracked, each tracking at most this many failed job ids, evicted
	// LRU once the cap is exceeded.
	FailureCachePostingCap int
	FailureCacheJobCap     int

	// Metrics, if non-nil, receives claim/success/failure counters. A
	// nil Metrics is replaced with an unregistered, usable one.
	Metrics *Metrics
}

// DefaultWorkerConfig returns the spec's documented defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:              10,
		PollInterval:           time.Second,
		ExceptionLogging:       SeverityWarning,
		ProfileRate:            0.1,
		Backoff:                DefaultBackoffConfig(),
		FailureCachePostingCap: 1024,
		FailureCacheJobCap:     128,
	}
}

// Worker is a single-threaded cooperative loop that owns one Dispatcher
// connection and one per-process failure memory. It claims batches,
// resolves and executes callables through a Registry, applies the
// completion algorithm, and optionally profiles a sampled fraction of
// units.
//
// A Worker has a strict lifecycle: Start may only be called once; Stop
// signals shutdown, which takes effect at the next batch boundary — a
// batch already claimed runs to completion, since its units are already
// committed as Executing and have no other path back to Waiting.
type Worker struct {
	lifecycle
	dispatcher Dispatcher
	registry   Registry
	profiler   Profiler
	log        *slog.Logger

	batchSize        int
	pollInterval     time.Duration
	exceptionLogging Severity
	profileRate      float64
	backoff          backoffCounter

	resolved map[resolveKey]Callable
	failures *failureCache
	metrics  *Metrics

	cancel context.CancelFunc
	done   internal.DoneChan
}

type resolveKey struct {
	entryPoint     string
	targetFunction string
}

// NewWorker builds a Worker. profiler may be nil, in which case no
// unit is ever profiled regardless of ProfileRate.
func NewWorker(dispatcher Dispatcher, registry Registry, profiler Profiler, config WorkerConfig, log *slog.Logger) *Worker {
	defaults := DefaultWorkerConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.FailureCachePostingCap <= 0 {
		config.FailureCachePostingCap = defaults.FailureCachePostingCap
	}
	if config.FailureCacheJobCap <= 0 {
		config.FailureCacheJobCap = defaults.FailureCacheJobCap
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics(nil)
	}
	return &Worker{
		dispatcher:       dispatcher,
		registry:         registry,
		profiler:         profiler,
		log:              log,
		batchSize:        config.BatchSize,
		pollInterval:     config.PollInterval,
		exceptionLogging: config.ExceptionLogging,
		profileRate:      config.ProfileRate,
		backoff:          backoffCounter{config.Backoff},
		resolved:         make(map[resolveKey]Callable),
		failures:         newFailureCache(config.FailureCachePostingCap, config.FailureCacheJobCap),
		metrics:          config.Metrics,
	}
}

// Start begins the worker loop in the background. It returns
// ErrDoubleStarted if already started.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.tryStart(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(internal.DoneChan)
	go w.run(ctx)
	return nil
}

// Stop signals the worker to exit after its current batch and waits up
// to grace for it to do so.
func (w *Worker) Stop(grace time.Duration) error {
	return w.tryStop(grace, func() internal.DoneChan {
		w.cancel()
		return w.done
	})
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	var dbFailures uint32
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		units, err := w.dispatcher.Claim(ctx, w.batchSize)
		if err != nil {
			dbFailures++
			w.log.Error("claim failed", "err", err)
			delay, _ := w.backoff.next(dbFailures)
			if sleepCtx(ctx, delay) != nil {
				return
			}
			continue
		}
		dbFailures = 0

		if len(units) == 0 {
			if sleepCtx(ctx, w.pollInterval) != nil {
				return
			}
			continue
		}
		w.metrics.UnitsClaimed.Add(float64(len(units)))

		// The batch is already committed as Executing, so a Stop must not
		// cancel its execution or its outcome writes.
		batchCtx := context.WithoutCancel(ctx)
		for _, unit := range units {
			w.handle(batchCtx, unit)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) resolve(unit *ClaimedUnit) (Callable, error) {
	k := resolveKey{unit.EntryPoint, unit.TargetFunction}
	if fn, ok := w.resolved[k]; ok {
		return fn, nil
	}
	fn, err := w.registry.Resolve(unit.EntryPoint, unit.TargetFunction)
	if err != nil {
		return nil, err
	}
	w.resolved[k] = fn
	return fn, nil
}

func (w *Worker) shouldProfile() bool {
	if w.profiler == nil || w.profileRate <= 0 {
		return false
	}
	return rand.Float64() < w.profileRate
}

func (w *Worker) execute(ctx context.Context, fn Callable, unit *ClaimedUnit) (*ProfileResult, error) {
	run := func(ctx context.Context) error {
		return fn(ctx, unit.PositionalArguments, unit.KeywordArguments)
	}
	if w.shouldProfile() {
		return w.profiler.Run(ctx, run)
	}
	return nil, run(ctx)
}

// handle executes one claimed unit and applies the completion
// algorithm. A unit already present in this worker's failure_cache is
// not re-executed — it is fast-failed instead, so one worker process
// never spins re-running a unit it already knows fails in a tight
// loop; another worker is free to retry it once it returns to Waiting.
func (w *Worker) handle(ctx context.Context, unit *ClaimedUnit) {
	if w.failures.seen(unit.PostingId, unit.Id) {
		w.fail(ctx, unit, nil)
		return
	}

	fn, err := w.resolve(unit)
	if err != nil {
		w.exceptionLogging.log(w.log, "resolution failed", "job_id", unit.Id, "entry_point", unit.EntryPoint, "target_function", unit.TargetFunction, "err", err)
		w.fail(ctx, unit, nil)
		return
	}

	profile, err := w.execute(ctx, fn, unit)
	if err != nil {
		w.exceptionLogging.log(w.log, "user function failed", "job_id", unit.Id, "posting_id", unit.PostingId, "err", err)
		w.fail(ctx, unit, profile)
		return
	}

	if err := w.dispatcher.Succeed(ctx, unit.JobRecord, profile); err != nil {
		w.log.Error("cannot record success", "job_id", unit.Id, "err", err)
		return
	}
	w.metrics.UnitsSucceeded.Inc()
}

// fail applies the completion algorithm's failure branch. profile, if
// non-nil, is persisted in the same transaction as the failure update
// by the Dispatcher — profiling covers completion including failure.
func (w *Worker) fail(ctx context.Context, unit *ClaimedUnit, profile *ProfileResult) {
	w.failures.add(unit.PostingId, unit.Id)
	if err := w.dispatcher.Fail(ctx, unit.JobRecord, profile); err != nil {
		w.log.Error("cannot record failure", "job_id", unit.Id, "err", err)
		return
	}
	w.metrics.UnitsFailed.Inc()
}
