package pdoflow

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// terminalStatuses are the per-JobRecord states counted as "finished"
// by PollPostingPercent: a unit in any of these will never be claimed
// again.
var terminalStatuses = []job.Status{job.Done, job.ErroredOut, job.Cancelled}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollPosting produces successive Posting snapshots at the pace the
// caller pulls them (range-over-func; break to stop early). It
// terminates once the posting reaches a terminal status (Done,
// ErroredOut, Cancelled), or the first read if the posting does not
// exist, yielding ErrPostingNotFound.
func PollPosting(ctx context.Context, obs Observer, postingId uuid.UUID, interval time.Duration) iter.Seq2[*job.Posting, error] {
	return func(yield func(*job.Posting, error) bool) {
		first := true
		for {
			p, err := obs.GetPosting(ctx, postingId)
			if err == nil && p == nil {
				if first {
					yield(nil, ErrPostingNotFound)
				}
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(p, nil) {
				return
			}
			if p.Status.Terminal() {
				return
			}
			first = false
			if err := sleep(ctx, interval); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// PollPostingPercent produces (count of units in a terminal status /
// total units) * 100.0 at the caller's pace. It terminates once the
// value reaches 100.0. An empty posting (zero units) yields 100.0
// immediately and terminates in one pull. Fails with ErrPostingNotFound
// on the first pull if postingId is unknown.
func PollPostingPercent(ctx context.Context, obs Observer, postingId uuid.UUID, interval time.Duration) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		for {
			p, err := obs.GetPosting(ctx, postingId)
			if err == nil && p == nil {
				yield(0, ErrPostingNotFound)
				return
			}
			if err != nil {
				yield(0, err)
				return
			}

			total, err := obs.CountJobRecords(ctx, postingId, job.Unknown)
			if err != nil {
				yield(0, err)
				return
			}
			if total == 0 {
				yield(100.0, nil)
				return
			}

			var finished int64
			for _, s := range terminalStatuses {
				n, err := obs.CountJobRecords(ctx, postingId, s)
				if err != nil {
					yield(0, err)
					return
				}
				finished += n
			}

			percent := (float64(finished) / float64(total)) * 100.0
			if !yield(percent, nil) {
				return
			}
			if percent >= 100.0 {
				return
			}
			if err := sleep(ctx, interval); err != nil {
				yield(0, err)
				return
			}
		}
	}
}

// PollJobStatusCount produces the count of postingId's JobRecords in
// status at the caller's pace. It never terminates on its own; the
// caller breaks out of the range loop when satisfied.
func PollJobStatusCount(ctx context.Context, obs Observer, postingId uuid.UUID, status job.Status, interval time.Duration) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		for {
			n, err := obs.CountJobRecords(ctx, postingId, status)
			if !yield(n, err) {
				return
			}
			if err != nil {
				return
			}
			if err := sleep(ctx, interval); err != nil {
				yield(0, err)
				return
			}
		}
	}
}

// AwaitForStatusThreshold blocks, polling at interval, until
// predicate(count) returns true for the count of postingId's
// JobRecords in status, or maxWait elapses. It returns the count that
// satisfied the predicate, or ErrTimeout.
func AwaitForStatusThreshold(
	ctx context.Context,
	obs Observer,
	postingId uuid.UUID,
	status job.Status,
	interval time.Duration,
	maxWait time.Duration,
	predicate func(int64) bool,
) (int64, error) {
	deadline := time.Now().Add(maxWait)
	for n, err := range PollJobStatusCount(ctx, obs, postingId, status, interval) {
		if err != nil {
			return 0, err
		}
		if predicate(n) {
			return n, nil
		}
		if time.Now().After(deadline) {
			return 0, ErrTimeout
		}
	}
	return 0, ErrTimeout
}
