package job

import (
	"time"

	"github.com/google/uuid"
)

// JobProfile is the aggregate profiling summary of one sampled
// JobRecord execution. It exists only for records the worker's
// profile sampler selected (spec: profile_rate), never for every
// record.
type JobProfile struct {
	Id          uuid.UUID
	JobRecordId uuid.UUID

	TotalCalls int64
	TotalTime  float64

	CreatedOn time.Time
}

// Function identifies a call-graph node by source location. Functions
// are shared across profiles: storage upserts on the (File, Name,
// Lineno) tuple so repeated executions of the same code reuse one row.
type Function struct {
	Id     uuid.UUID
	File   string
	Name   string
	Lineno int64
}

// FunctionStat is the per-function row of a JobProfile's call-graph:
// how often Function was invoked and how much time it consumed during
// that one sampled execution.
type FunctionStat struct {
	JobProfileId uuid.UUID
	FunctionId   uuid.UUID

	PrimitiveCalls int64
	TotalCalls     int64
	TotalTime      float64
	CumulativeTime float64
}

// FunctionCallMap is one caller->callee edge observed within a
// JobProfile's call graph, with the aggregate calls/time attributed
// to that edge.
type FunctionCallMap struct {
	JobProfileId     uuid.UUID
	CallerFunctionId uuid.UUID
	CalleeFunctionId uuid.UUID

	Calls int64
	Time  float64
}
