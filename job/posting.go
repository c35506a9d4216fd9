package job

import (
	"time"

	"github.com/google/uuid"
)

// Posting is a named batch of work submitted by a producer. It owns a
// set of JobRecords exclusively: deleting a Posting cascades to its
// records, stats and profiles.
//
// Status oscillates between Waiting, Executing and Paused while owned
// units remain unfinished. Once all units reach a terminal status, the
// dispatch protocol advances Posting.Status to Done or ErroredOut,
// after which it never changes again (Cancelled is reachable
// administratively from any non-terminal state and is likewise final).
type Posting struct {
	Id             uuid.UUID
	Poster         string
	TargetFunction string
	EntryPoint     string
	Status         Status
	CreatedOn      time.Time
}

// NewPosting builds a Posting in the Waiting state with a freshly
// generated identifier. CreatedOn is left zero; storage implementations
// stamp it on insert.
func NewPosting(poster, targetFunction, entryPoint string) *Posting {
	return &Posting{
		Id:             uuid.New(),
		Poster:         poster,
		TargetFunction: targetFunction,
		EntryPoint:     entryPoint,
		Status:         Waiting,
	}
}
