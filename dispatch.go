package pdoflow

import (
	"context"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// ClaimedUnit is a JobRecord returned by Dispatcher.Claim, denormalized
// with its owning Posting's EntryPoint and TargetFunction at claim
// time so the worker can resolve a callable without a second read.
type ClaimedUnit struct {
	*job.JobRecord
	EntryPoint     string
	TargetFunction string
}

// Dispatcher implements the core dispatch protocol: atomic claiming of
// pending JobRecords in priority order, and recording per-unit
// outcomes.
//
// The central invariant Dispatcher implementations must uphold: at
// most one worker may hold a given JobRecord in Executing status at
// any time, achieved without serializing callers against each other
// (via row-level locking with skip-locked semantics, never by holding
// an application-level mutex).
type Dispatcher interface {
	// Claim selects up to batchSize JobRecord rows with status Waiting
	// whose owning Posting is Waiting or Executing, orders them by
	// (Priority DESC, CreatedOn ASC, Id ASC), locks them with
	// FOR UPDATE SKIP LOCKED, transitions them to Executing, and
	// advances a still-Waiting owning Posting to Executing — all in one
	// transaction. Concurrent callers never block on one another: rows
	// already locked by another Claim are invisible to this one, so the
	// two calls deterministically partition the available queue.
	//
	// An empty result is not an error; it means no work is currently
	// eligible.
	Claim(ctx context.Context, batchSize int) ([]*ClaimedUnit, error)

	// Succeed records a successful execution of rec: status becomes
	// Done. If this was the last non-terminal unit of rec's owning
	// Posting, the Posting's derived status is recomputed in the same
	// transaction. If profile is non-nil, its rows are written in that
	// same transaction, so a unit's outcome and its profile are never
	// observable as inconsistent.
	Succeed(ctx context.Context, rec *job.JobRecord, profile *ProfileResult) error

	// Fail records a failed execution of rec: TriesRemaining is
	// decremented; if the result is still positive, status returns to
	// Waiting (eligible for re-dispatch, possibly by a different
	// worker); otherwise status becomes ErroredOut permanently. The
	// owning Posting's derived status is recomputed in the same
	// transaction when applicable. If profile is non-nil, its rows are
	// written in that same transaction.
	Fail(ctx context.Context, rec *job.JobRecord, profile *ProfileResult) error
}
