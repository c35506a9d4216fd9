//go:build integration

package sql_test

import (
	"context"
	"testing"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
	"github.com/mit-kavli-institute/pdoflow-go/job"
	pdoflowsql "github.com/mit-kavli-institute/pdoflow-go/sql"
)

func TestObserverListPostingsFiltersByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	obs := pdoflowsql.NewObserver(db)

	newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}})
	newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}})

	all, err := obs.ListPostings(ctx, job.Unknown, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(all))
	}

	waiting, err := obs.ListPostings(ctx, job.Waiting, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(waiting) != 2 {
		t.Fatalf("expected 2 waiting postings, got %d", len(waiting))
	}

	done, err := obs.ListPostings(ctx, job.Done, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 0 {
		t.Fatalf("expected 0 done postings, got %d", len(done))
	}
}

func TestObserverPriorityHistogram(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	obs := pdoflowsql.NewObserver(db)

	posting := newPosting(t, ctx, sub, []pdoflow.JobInput{
		{Priority: 5}, {Priority: 5}, {Priority: 1},
	})

	hist, err := obs.PriorityHistogram(ctx, posting.Id)
	if err != nil {
		t.Fatal(err)
	}
	if hist[5] != 2 {
		t.Fatalf("expected 2 units at priority 5, got %d", hist[5])
	}
	if hist[1] != 1 {
		t.Fatalf("expected 1 unit at priority 1, got %d", hist[1])
	}
}

func TestObserverCountJobRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	obs := pdoflowsql.NewObserver(db)

	posting := newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}, {Priority: 1}})

	total, err := obs.CountJobRecords(ctx, posting.Id, job.Unknown)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("expected 2 total records, got %d", total)
	}

	waiting, err := obs.CountJobRecords(ctx, posting.Id, job.Waiting)
	if err != nil {
		t.Fatal(err)
	}
	if waiting != 2 {
		t.Fatalf("expected 2 waiting records, got %d", waiting)
	}
}
