//go:build integration

package sql_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	pdoflowsql "github.com/mit-kavli-institute/pdoflow-go/sql"
)

// newTestDB connects to the Postgres instance named by PDOFLOW_TEST_DSN
// and runs InitDB against it. These tests require the skip-locked and
// partial-index behavior of a real Postgres server; there is no
// in-memory substitute, so they are gated behind the integration build
// tag and skipped unless a DSN is provided.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := os.Getenv("PDOFLOW_TEST_DSN")
	if dsn == "" {
		t.Skip("PDOFLOW_TEST_DSN not set, skipping integration test")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := pdoflowsql.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, "TRUNCATE TABLE function_call_maps, function_stats, job_profiles, job_records, postings, functions"); err != nil {
		t.Fatal(err)
	}
	return db
}
