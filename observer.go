package pdoflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// Observer provides read-only, single-SELECT access to dispatch state.
// Implementations must not hold locks or open transactions across
// calls; each method call is one short query.
type Observer interface {
	// GetPosting returns the posting identified by id. If no such
	// posting exists, it returns (nil, nil) — callers that need
	// ErrPostingNotFound semantics (as the polling sequences do) apply
	// that translation themselves.
	GetPosting(ctx context.Context, id uuid.UUID) (*job.Posting, error)

	// ListPostings returns up to limit postings matching status. A zero
	// status or non-positive limit removes the corresponding filter.
	ListPostings(ctx context.Context, status job.Status, limit int) ([]*job.Posting, error)

	// CountJobRecords returns the number of JobRecords owned by
	// postingId. If status is non-zero, only records in that status are
	// counted.
	CountJobRecords(ctx context.Context, postingId uuid.UUID, status job.Status) (int64, error)

	// PriorityHistogram returns, for postingId, the count of Waiting
	// JobRecords at each distinct priority value. It backs the
	// priority-stats CLI command.
	PriorityHistogram(ctx context.Context, postingId uuid.UUID) (map[int32]int64, error)
}
