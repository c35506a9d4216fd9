package sql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

// Observer implements pdoflow.Observer using a SQL backend.
//
// Observer performs simple, single-statement reads. It never holds
// locks or opens a transaction spanning more than one call.
type Observer struct {
	db *bun.DB
}

// NewObserver creates a new SQL-backed Observer.
func NewObserver(db *bun.DB) *Observer {
	return &Observer{db: db}
}

func (o *Observer) GetPosting(ctx context.Context, id uuid.UUID) (*job.Posting, error) {
	var m postingModel
	err := o.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m.toPosting(), nil
}

func (o *Observer) ListPostings(ctx context.Context, status job.Status, limit int) ([]*job.Posting, error) {
	var rows []*postingModel
	query := o.db.NewSelect().Model(&rows).Order("created_on DESC")
	if status != job.Unknown {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	postings := make([]*job.Posting, len(rows))
	for i, m := range rows {
		postings[i] = m.toPosting()
	}
	return postings, nil
}

func (o *Observer) CountJobRecords(ctx context.Context, postingId uuid.UUID, status job.Status) (int64, error) {
	query := o.db.NewSelect().
		Model((*jobRecordModel)(nil)).
		Where("posting_id = ?", postingId)
	if status != job.Unknown {
		query = query.Where("status = ?", status)
	}
	n, err := query.Count(ctx)
	return int64(n), err
}

func (o *Observer) PriorityHistogram(ctx context.Context, postingId uuid.UUID) (map[int32]int64, error) {
	var rows []struct {
		Priority int32 `bun:"priority"`
		Count    int64 `bun:"count"`
	}
	err := o.db.NewSelect().
		Model((*jobRecordModel)(nil)).
		ColumnExpr("priority").
		ColumnExpr("count(*) AS count").
		Where("posting_id = ?", postingId).
		Where("status = ?", job.Waiting).
		GroupExpr("priority").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	histogram := make(map[int32]int64, len(rows))
	for _, r := range rows {
		histogram[r.Priority] = r.Count
	}
	return histogram, nil
}

// SetPostingStatus administratively overwrites a posting's status,
// bypassing the dispatch protocol's own recomputation. It is the
// storage side of the CLI's set-posting-status command (spec.md §6);
// callers are responsible for deciding whether the transition makes
// sense (e.g. pausing only a Waiting/Executing posting).
func SetPostingStatus(ctx context.Context, db *bun.DB, id uuid.UUID, status job.Status) error {
	res, err := db.NewUpdate().
		Model((*postingModel)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return sql.ErrNoRows
	}
	return nil
}
