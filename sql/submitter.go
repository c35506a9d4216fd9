package sql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// Submitter implements pdoflow.Submitter using a SQL backend.
type Submitter struct {
	db *bun.DB
}

// NewSubmitter creates a new SQL-backed Submitter. The provided *bun.DB
// must be configured and connected, and InitDB must already have run.
func NewSubmitter(db *bun.DB) *Submitter {
	return &Submitter{db: db}
}

// Submit persists posting and one JobRecord per entry in units, all in
// the Waiting state, inside a single transaction. If any insert fails,
// nothing is created.
func (s *Submitter) Submit(ctx context.Context, posting *job.Posting, units []pdoflow.JobInput) error {
	now := time.Now()
	if posting.Id == uuid.Nil {
		posting.Id = uuid.New()
	}
	if posting.CreatedOn.IsZero() {
		posting.CreatedOn = now
	}
	posting.Status = job.Waiting

	records := make([]*jobRecordModel, len(units))
	for i, u := range units {
		tries := u.TriesRemaining
		if tries == 0 {
			tries = job.DefaultTriesRemaining
		}
		records[i] = &jobRecordModel{
			Id:                  uuid.New(),
			PostingId:           posting.Id,
			Priority:            u.Priority,
			PositionalArguments: u.PositionalArguments,
			KeywordArguments:    u.KeywordArguments,
			TriesRemaining:      tries,
			Status:              job.Waiting,
			CreatedOn:           now,
			UpdatedOn:           now,
		}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(postingToModel(posting)).Exec(ctx); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}
