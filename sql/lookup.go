package sql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// GetJobRecordWithPosting fetches one job record together with its
// owning posting, for callers (the execute-job CLI command) that need
// a unit's EntryPoint/TargetFunction outside the normal Claim path. It
// returns (nil, nil, nil) if no such job record exists.
func GetJobRecordWithPosting(ctx context.Context, db *bun.DB, id uuid.UUID) (*job.JobRecord, *job.Posting, error) {
	var recModel jobRecordModel
	err := db.NewSelect().Model(&recModel).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var postingM postingModel
	if err := db.NewSelect().Model(&postingM).Where("id = ?", recModel.PostingId).Scan(ctx); err != nil {
		return nil, nil, err
	}

	return recModel.toJobRecord(), postingM.toPosting(), nil
}
