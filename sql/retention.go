package sql

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// Retention implements pdoflow.Retention using a SQL backend.
//
// Deleting a posting cascades, inside one transaction, to its owned
// job records, job profiles, function stats and function call maps.
// There is no database-level foreign key cascade: each child table is
// deleted explicitly, oldest dependency first.
type Retention struct {
	db *bun.DB
}

// NewRetention creates a new SQL-backed Retention.
func NewRetention(db *bun.DB) *Retention {
	return &Retention{db: db}
}

func (r *Retention) Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error) {
	if status != job.Unknown && !status.Terminal() {
		return 0, pdoflow.ErrBadStatus
	}

	var deleted int64
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		idQuery := tx.NewSelect().Model((*postingModel)(nil)).Column("id")
		if status != job.Unknown {
			idQuery = idQuery.Where("status = ?", status)
		} else {
			idQuery = idQuery.Where("status IN (?, ?, ?)", job.Done, job.ErroredOut, job.Cancelled)
		}
		if before != nil {
			idQuery = idQuery.Where("created_on <= ?", before)
		}

		profileIdQuery := tx.NewSelect().
			Model((*jobProfileModel)(nil)).
			Column("id").
			Where("job_record_id IN (?)", tx.NewSelect().
				Model((*jobRecordModel)(nil)).
				Column("id").
				Where("posting_id IN (?)", idQuery))

		if _, err := tx.NewDelete().
			Model((*functionStatModel)(nil)).
			Where("job_profile_id IN (?)", profileIdQuery).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*functionCallMapModel)(nil)).
			Where("job_profile_id IN (?)", profileIdQuery).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*jobProfileModel)(nil)).
			Where("job_record_id IN (?)", tx.NewSelect().
				Model((*jobRecordModel)(nil)).
				Column("id").
				Where("posting_id IN (?)", idQuery)).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*jobRecordModel)(nil)).
			Where("posting_id IN (?)", idQuery).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*postingModel)(nil)).
			Where("id IN (?)", idQuery).
			Exec(ctx)
		if err != nil {
			return err
		}
		deleted = getAffected(res)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
