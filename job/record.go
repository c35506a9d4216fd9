package job

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTriesRemaining is the number of attempts a freshly submitted
// JobRecord receives when the caller does not specify one.
const DefaultTriesRemaining = 3

// JobRecord is a single invocation of a user function with a specific
// argument set, owned exclusively by one Posting.
//
// Ordering key when selecting waiting work is (Priority DESC,
// CreatedOn ASC), ties broken by Id. TriesRemaining is decremented on
// each handler failure; the failure that brings it to zero makes
// Status ErroredOut permanently.
type JobRecord struct {
	Id        uuid.UUID
	PostingId uuid.UUID

	Priority int32

	PositionalArguments []any
	KeywordArguments    map[string]any

	TriesRemaining uint32
	Status         Status

	CreatedOn time.Time
	UpdatedOn time.Time
}

// NewJobRecord builds a JobRecord in the Waiting state, owned by
// postingId, with DefaultTriesRemaining attempts.
func NewJobRecord(postingId uuid.UUID, priority int32, args []any, kwargs map[string]any) *JobRecord {
	return &JobRecord{
		Id:                  uuid.New(),
		PostingId:           postingId,
		Priority:            priority,
		PositionalArguments: args,
		KeywordArguments:    kwargs,
		TriesRemaining:      DefaultTriesRemaining,
		Status:              Waiting,
	}
}
