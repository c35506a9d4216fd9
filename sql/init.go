package sql

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createTables(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*postingModel)(nil),
		(*jobRecordModel)(nil),
		(*jobProfileModel)(nil),
		(*functionModel)(nil),
		(*functionStatModel)(nil),
		(*functionCallMapModel)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// createClaimIndex backs Dispatcher.Claim's ordering (priority DESC,
// created_on ASC) over exactly the rows Claim ever looks at: waiting
// job records. bun's query builder has no partial-index support, so
// this is raw SQL.
func createClaimIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_job_records_claim
		ON job_records (priority DESC, created_on ASC)
		WHERE status = 1
	`)
	return err
}

func createPostingStatusIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_job_records_posting_status
		ON job_records (posting_id, status)
	`)
	return err
}

func createFunctionIdentityIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_functions_identity
		ON functions (file, name, lineno)
	`)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createTables(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createClaimIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createPostingStatusIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createFunctionIdentityIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB initializes the schema required by the SQL backend: the
// postings, job_records, job_profiles, functions, function_stats and
// function_call_maps tables, plus the indexes Claim, Observer and the
// profile store depend on. It is idempotent and may be called on every
// process startup.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics on failure. Intended for
// application bootstrap where a broken schema is unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
