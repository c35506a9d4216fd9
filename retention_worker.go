package pdoflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/mit-kavli-institute/pdoflow-go/internal"
	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// RetentionWorker periodically invokes a Retention implementation
// according to RetentionConfig. It is opt-in: PDOFlow never starts one
// on its own, an operator decides whether completed postings should be
// garbage-collected and on what schedule.
type RetentionWorker struct {
	lifecycle
	retention Retention
	task      internal.TimerTask
	log       *slog.Logger
	status    job.Status
	interval  time.Duration
	delta     time.Duration
}

// NewRetentionWorker builds a RetentionWorker. It is not started
// automatically; call Start.
func NewRetentionWorker(retention Retention, config *RetentionConfig, log *slog.Logger) *RetentionWorker {
	return &RetentionWorker{
		retention: retention,
		log:       log,
		status:    config.Status,
		interval:  config.Interval,
		delta:     config.Delta,
	}
}

func (rw *RetentionWorker) beforeStamp() *time.Time {
	if rw.delta == 0 {
		return nil
	}
	t := time.Now().Add(-rw.delta)
	return &t
}

func (rw *RetentionWorker) clean(ctx context.Context) {
	before := rw.beforeStamp()
	n, err := rw.retention.Clean(ctx, rw.status, before)
	if err != nil {
		rw.log.Error("retention clean failed", "err", err)
		return
	}
	rw.log.Info("retention removed postings", "count", n)
}

// Start begins periodic cleaning. It returns ErrDoubleStarted if
// already running.
func (rw *RetentionWorker) Start(ctx context.Context) error {
	if err := rw.tryStart(); err != nil {
		return err
	}
	rw.task.Start(ctx, rw.clean, rw.interval)
	return nil
}

// Stop terminates the background cleaning task, waiting up to grace.
func (rw *RetentionWorker) Stop(grace time.Duration) error {
	return rw.tryStop(grace, rw.task.Stop)
}
