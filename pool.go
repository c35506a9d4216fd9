package pdoflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mit-kavli-institute/pdoflow-go/internal"
)

// ErrNoWorkerFactory is returned by NewPool when no WorkerFactory is
// supplied; a pool with nothing to spawn is a configuration mistake,
// not a valid empty pool.
var ErrNoWorkerFactory = errors.New("pdoflow: pool requires a WorkerFactory")

// PoolConfig configures a Pool. MaxWorkers and UpkeepRate fall back to
// package defaults when zero.
type PoolConfig struct {
	// MaxWorkers is the fixed number of worker slots the pool maintains.
	MaxWorkers int

	// UpkeepRate is how often the pool reaps dead slots and respawns
	// replacements (spec.md §4.4).
	UpkeepRate time.Duration

	// WorkerFactory builds the Worker that should occupy slot i. It is
	// called once per spawn, including respawns after a worker exits.
	WorkerFactory func(slot int) (*Worker, error)

	// Metrics, if non-nil, receives the live worker-count gauge. A nil
	// Metrics is replaced with an unregistered, usable one.
	Metrics *Metrics
}

// DefaultPoolConfig returns the spec's documented defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers: 4,
		UpkeepRate: time.Second,
	}
}

// Pool supervises a fixed number of long-lived Worker slots, spawning
// replacements for any that die and exposing the live count as a
// metric (spec.md §4.4). It never shrinks or grows MaxWorkers on its
// own; an operator restarts the pool to change it.
type Pool struct {
	lifecycle
	slots      *internal.Slots
	upkeep     internal.TimerTask
	upkeepRate time.Duration
	factory    func(slot int) (*Worker, error)
	log        *slog.Logger
	metrics    *Metrics
}

// NewPool builds a Pool. It is not started automatically; call Start.
func NewPool(config PoolConfig, log *slog.Logger) (*Pool, error) {
	if config.WorkerFactory == nil {
		return nil, ErrNoWorkerFactory
	}
	defaults := DefaultPoolConfig()
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaults.MaxWorkers
	}
	if config.UpkeepRate <= 0 {
		config.UpkeepRate = defaults.UpkeepRate
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics(nil)
	}

	p := &Pool{
		factory:    config.WorkerFactory,
		log:        log,
		metrics:    config.Metrics,
		upkeepRate: config.UpkeepRate,
	}
	p.slots = internal.NewSlots(config.MaxWorkers, p.runSlot, log)
	return p, nil
}

// runSlot builds and runs one worker for slot i, blocking until ctx is
// canceled or the worker exits on its own. It satisfies
// internal.SlotRun.
func (p *Pool) runSlot(ctx context.Context, slot int) error {
	w, err := p.factory(slot)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop(30 * time.Second)
}

// Start spawns MaxWorkers worker slots and begins the upkeep cycle
// that reaps and respawns dead ones.
func (p *Pool) Start(ctx context.Context) error {
	if err := p.tryStart(); err != nil {
		return err
	}
	p.slots.Attach(ctx)
	for i := 0; i < p.slots.Len(); i++ {
		p.slots.Spawn(i)
	}
	p.upkeep.Start(ctx, p.doUpkeep, p.upkeepRate)
	return nil
}

func (p *Pool) doUpkeep(ctx context.Context) {
	reaped := p.slots.Reap()
	if reaped > 0 {
		p.log.Warn("pool reaped dead worker slots", "count", reaped)
		for i := 0; i < p.slots.Len(); i++ {
			p.slots.Spawn(i)
		}
	}
	p.metrics.WorkersRunning.Set(float64(p.slots.Running()))
}

// Stop signals every worker slot to shut down and waits up to grace
// for all of them, plus the upkeep loop, to exit.
func (p *Pool) Stop(grace time.Duration) error {
	return p.tryStop(grace, func() internal.DoneChan {
		upkeepDone := p.upkeep.Stop()
		slotsDone := p.slots.StopAll()
		return internal.Combine(upkeepDone, slotsDone)
	})
}

// Running returns the number of worker slots currently spawning or
// running.
func (p *Pool) Running() int {
	return p.slots.Running()
}

// AwaitPostingCompletion blocks until postingId reaches a terminal
// status, polling obs every interval, or returns ErrTimeout if maxWait
// elapses first. maxWait <= 0 means wait indefinitely.
func (p *Pool) AwaitPostingCompletion(ctx context.Context, obs Observer, postingId uuid.UUID, interval, maxWait time.Duration) error {
	var deadline time.Time
	hasDeadline := maxWait > 0
	if hasDeadline {
		deadline = time.Now().Add(maxWait)
	}
	for posting, err := range PollPosting(ctx, obs, postingId, interval) {
		if err != nil {
			return err
		}
		if posting.Status.Terminal() {
			return nil
		}
		if hasDeadline && time.Now().After(deadline) {
			return ErrTimeout
		}
	}
	return nil
}
