package pdoflow

import (
	"context"
	"time"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// Retention permanently removes terminal postings from storage. It is
// an operator-facing supplement: spec.md leaves garbage collection of
// completed postings as an operator concern rather than a required
// behavior, so Retention is never invoked automatically unless an
// operator constructs and starts a RetentionWorker.
//
// Deleting a Posting cascades to its owned JobRecords, JobProfiles,
// FunctionStats and FunctionCallMaps.
type Retention interface {
	// Clean deletes postings matching status whose CreatedOn is at or
	// before *before (no time filter if before is nil), and returns the
	// number of postings deleted.
	//
	// Only terminal statuses are accepted (job.Done, job.ErroredOut,
	// job.Cancelled, or job.Unknown meaning "any terminal status").
	// ErrBadStatus is returned otherwise — Retention must never delete a
	// posting with units still in flight.
	Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error)
}

// RetentionConfig configures a RetentionWorker's schedule and filter.
type RetentionConfig struct {
	// Status restricts deletion to one terminal status; job.Unknown
	// targets all terminal postings.
	Status job.Status

	// Interval is how often the worker invokes Retention.Clean.
	Interval time.Duration

	// Delta, if non-zero, restricts deletion to postings older than
	// now-Delta. A zero Delta deletes all matching postings regardless
	// of age.
	Delta time.Duration
}
