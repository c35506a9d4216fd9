package pdoflow

import (
	"context"

	"github.com/google/uuid"
)

// ProfiledFunction is one call-graph node plus its per-execution
// statistics and outgoing call edges, as produced by a profile
// reducer (see the profiling package).
type ProfiledFunction struct {
	File   string
	Name   string
	Lineno int64

	PrimitiveCalls int64
	TotalCalls     int64
	TotalTime      float64
	CumulativeTime float64

	// Callees maps each function called from this one, by its (File,
	// Name, Lineno) identity as a ProfiledFunctionKey, to the aggregate
	// calls/time for that edge.
	Callees map[ProfiledFunctionKey]ProfiledEdge
}

// ProfiledFunctionKey identifies a Function row by its content-addressed
// tuple, used to dedup shared Function rows across profiles.
type ProfiledFunctionKey struct {
	File   string
	Name   string
	Lineno int64
}

// ProfiledEdge is the aggregate calls/time attributed to one
// caller->callee edge within a single sampled execution.
type ProfiledEdge struct {
	Calls int64
	Time  float64
}

// ProfileResult is the complete reduction of one sampled execution,
// ready for persistence as a JobProfile plus its FunctionStat and
// FunctionCallMap rows.
type ProfileResult struct {
	TotalCalls int64
	TotalTime  float64
	Functions  []ProfiledFunction
}

// ProfileStore persists a ProfileResult for a JobRecord in its own
// transaction. It exists for callers that have no outcome update to
// piggyback on (e.g. backfilling or offline tooling); Dispatcher
// implementations must not go through ProfileStore to record a unit's
// profile, since that would split the profile write and the
// success/failure update across two transactions — see Dispatcher's
// Succeed and Fail, which accept a ProfileResult directly and persist
// it in the same transaction as the outcome.
type ProfileStore interface {
	SaveProfile(ctx context.Context, jobRecordId uuid.UUID, result *ProfileResult) error
}
