package pdoflow

import (
	"context"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// JobInput is the caller-supplied shape of one work unit within a
// posting submission. Priority, PositionalArguments and KeywordArguments
// map directly onto JobRecord fields; TriesRemaining defaults to
// job.DefaultTriesRemaining when zero.
type JobInput struct {
	Priority            int32
	PositionalArguments []any
	KeywordArguments    map[string]any
	TriesRemaining      uint32
}

// Submitter defines the write-side entry point of the dispatch
// protocol: materializing a Posting together with its owned
// JobRecords.
type Submitter interface {
	// Submit persists posting and creates one JobRecord per entry in
	// units, all in the Waiting state, inside a single transaction.
	//
	// Submit assigns posting.Id and posting.CreatedOn if they are zero
	// valued, and stamps each created JobRecord's Id/CreatedOn/UpdatedOn.
	//
	// If any unit fails to persist, no posting or job record is created.
	Submit(ctx context.Context, posting *job.Posting, units []JobInput) error
}
