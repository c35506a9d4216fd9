package sql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// Dispatcher implements pdoflow.Dispatcher using a SQL backend.
//
// Claim relies on a single UPDATE ... WHERE id IN (subquery FOR UPDATE
// SKIP LOCKED) statement: concurrent Claim calls never block on one
// another, since rows already locked by another call are simply
// invisible to this one.
type Dispatcher struct {
	db *bun.DB
}

// NewDispatcher creates a new SQL-backed Dispatcher. The provided
// *bun.DB must be configured and connected, and InitDB must already
// have run.
func NewDispatcher(db *bun.DB) *Dispatcher {
	return &Dispatcher{db: db}
}

func (d *Dispatcher) Claim(ctx context.Context, batchSize int) ([]*pdoflow.ClaimedUnit, error) {
	var claimed []*jobRecordModel
	var postings map[uuid.UUID]*postingModel

	err := d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		subQuery := tx.NewSelect().
			Model((*jobRecordModel)(nil)).
			Column("id").
			Where("status = ?", job.Waiting).
			Where("EXISTS (SELECT 1 FROM postings WHERE postings.id = job_records.posting_id AND postings.status IN (?, ?))", job.Waiting, job.Executing).
			OrderExpr("priority DESC, created_on ASC, id ASC").
			Limit(batchSize).
			For("UPDATE SKIP LOCKED")

		if err := tx.NewUpdate().
			Model((*jobRecordModel)(nil)).
			Set("status = ?", job.Executing).
			Set("updated_on = ?", now).
			Where("id IN (?)", subQuery).
			Returning("*").
			Scan(ctx, &claimed); err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}

		postingIds := make([]uuid.UUID, 0, len(claimed))
		seen := make(map[uuid.UUID]bool, len(claimed))
		for _, rec := range claimed {
			if !seen[rec.PostingId] {
				seen[rec.PostingId] = true
				postingIds = append(postingIds, rec.PostingId)
			}
		}

		if _, err := tx.NewUpdate().
			Model((*postingModel)(nil)).
			Set("status = ?", job.Executing).
			Where("id IN (?)", bun.In(postingIds)).
			Where("status = ?", job.Waiting).
			Exec(ctx); err != nil {
			return err
		}

		var rows []*postingModel
		if err := tx.NewSelect().
			Model(&rows).
			Where("id IN (?)", bun.In(postingIds)).
			Scan(ctx); err != nil {
			return err
		}
		postings = make(map[uuid.UUID]*postingModel, len(rows))
		for _, p := range rows {
			postings[p.Id] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	units := make([]*pdoflow.ClaimedUnit, len(claimed))
	for i, rec := range claimed {
		p := postings[rec.PostingId]
		unit := &pdoflow.ClaimedUnit{JobRecord: rec.toJobRecord()}
		if p != nil {
			unit.EntryPoint = p.EntryPoint
			unit.TargetFunction = p.TargetFunction
		}
		units[i] = unit
	}
	return units, nil
}

func (d *Dispatcher) Succeed(ctx context.Context, rec *job.JobRecord, profile *pdoflow.ProfileResult) error {
	now := time.Now()
	return d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*jobRecordModel)(nil)).
			Set("status = ?", job.Done).
			Set("updated_on = ?", now).
			Where("id = ?", rec.Id).
			Where("status = ?", job.Executing).
			Exec(ctx)
		if err != nil {
			return err
		}
		if !isAffected(res) {
			return pdoflow.ErrClaimLost
		}
		rec.Status = job.Done
		rec.UpdatedOn = now
		if err := recomputePostingStatus(ctx, tx, rec.PostingId); err != nil {
			return err
		}
		if profile == nil {
			return nil
		}
		return saveProfile(ctx, tx, rec.Id, profile)
	})
}

func (d *Dispatcher) Fail(ctx context.Context, rec *job.JobRecord, profile *pdoflow.ProfileResult) error {
	now := time.Now()
	return d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var outcome struct {
			TriesRemaining uint32     `bun:"tries_remaining"`
			Status         job.Status `bun:"status"`
		}
		err := tx.NewUpdate().
			Model((*jobRecordModel)(nil)).
			Set("tries_remaining = CASE WHEN tries_remaining > 0 THEN tries_remaining - 1 ELSE 0 END").
			Set("status = CASE WHEN tries_remaining > 1 THEN ? ELSE ? END", job.Waiting, job.ErroredOut).
			Set("updated_on = ?", now).
			Where("id = ?", rec.Id).
			Where("status = ?", job.Executing).
			Returning("tries_remaining, status").
			Scan(ctx, &outcome)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return pdoflow.ErrClaimLost
			}
			return err
		}

		rec.TriesRemaining = outcome.TriesRemaining
		rec.Status = outcome.Status
		rec.UpdatedOn = now

		if outcome.Status == job.ErroredOut {
			if err := recomputePostingStatus(ctx, tx, rec.PostingId); err != nil {
				return err
			}
		}
		if profile == nil {
			return nil
		}
		return saveProfile(ctx, tx, rec.Id, profile)
	})
}

// recomputePostingStatus advances postingId's status to Done or
// ErroredOut once none of its job records remain Waiting or Executing.
// It is a no-op while units are still in flight, and never touches a
// posting already in an administrative terminal state (Cancelled).
//
// The posting row is locked with SELECT ... FOR UPDATE before counting
// its job records: under READ COMMITTED, two workers finishing the
// last two units of the same posting in overlapping transactions would
// otherwise both count the other's not-yet-committed update as still
// in flight, see remaining > 0 in both, and leave the posting stuck
// executing forever. The row lock serializes the two recomputes, so
// the second one always observes the first's committed outcome.
func recomputePostingStatus(ctx context.Context, tx bun.Tx, postingId uuid.UUID) error {
	var status job.Status
	if err := tx.NewSelect().
		Model((*postingModel)(nil)).
		Column("status").
		Where("id = ?", postingId).
		For("UPDATE").
		Scan(ctx, &status); err != nil {
		return err
	}
	if status == job.Cancelled {
		return nil
	}

	remaining, err := tx.NewSelect().
		Model((*jobRecordModel)(nil)).
		Where("posting_id = ?", postingId).
		Where("status IN (?, ?)", job.Waiting, job.Executing).
		Count(ctx)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	erroredCount, err := tx.NewSelect().
		Model((*jobRecordModel)(nil)).
		Where("posting_id = ?", postingId).
		Where("status = ?", job.ErroredOut).
		Count(ctx)
	if err != nil {
		return err
	}

	final := job.Done
	if erroredCount > 0 {
		final = job.ErroredOut
	}

	_, err = tx.NewUpdate().
		Model((*postingModel)(nil)).
		Set("status = ?", final).
		Where("id = ?", postingId).
		Exec(ctx)
	return err
}
