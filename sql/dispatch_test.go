//go:build integration

package sql_test

import (
	"context"
	"sync"
	"testing"

	pdoflow "github.com/mit-kavli-institute/pdoflow-go"
	"github.com/mit-kavli-institute/pdoflow-go/job"
	pdoflowsql "github.com/mit-kavli-institute/pdoflow-go/sql"
)

func newPosting(t *testing.T, ctx context.Context, sub *pdoflowsql.Submitter, units []pdoflow.JobInput) *job.Posting {
	t.Helper()
	p := job.NewPosting("tester", "do_thing", "test_app")
	if err := sub.Submit(ctx, p, units); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestClaimAndSucceed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	disp := pdoflowsql.NewDispatcher(db)
	obs := pdoflowsql.NewObserver(db)

	newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}})

	units, err := disp.Claim(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 claimed unit, got %d", len(units))
	}
	if units[0].Status != job.Executing {
		t.Fatalf("expected Executing, got %v", units[0].Status)
	}

	if err := disp.Succeed(ctx, units[0].JobRecord, nil); err != nil {
		t.Fatal(err)
	}

	posting, err := obs.GetPosting(ctx, units[0].PostingId)
	if err != nil {
		t.Fatal(err)
	}
	if posting.Status != job.Done {
		t.Fatalf("expected posting Done once its only unit succeeds, got %v", posting.Status)
	}
}

func TestSuccessiveClaimsReturnDistinctRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	disp := pdoflowsql.NewDispatcher(db)

	newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}, {Priority: 1}})

	first, err := disp.Claim(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(first))
	}

	second, err := disp.Claim(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(second))
	}
	if first[0].Id == second[0].Id {
		t.Fatal("two separate claims returned the same job record")
	}
}

func TestFailRetriesThenErrorsOut(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	disp := pdoflowsql.NewDispatcher(db)
	obs := pdoflowsql.NewObserver(db)

	posting := newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1, TriesRemaining: 2}})

	units, err := disp.Claim(ctx, 10)
	if err != nil || len(units) != 1 {
		t.Fatalf("claim: %v, units=%d", err, len(units))
	}
	if err := disp.Fail(ctx, units[0].JobRecord, nil); err != nil {
		t.Fatal(err)
	}
	if units[0].Status != job.Waiting {
		t.Fatalf("expected Waiting after first failure with tries remaining, got %v", units[0].Status)
	}

	units, err = disp.Claim(ctx, 10)
	if err != nil || len(units) != 1 {
		t.Fatalf("reclaim: %v, units=%d", err, len(units))
	}
	if err := disp.Fail(ctx, units[0].JobRecord, nil); err != nil {
		t.Fatal(err)
	}
	if units[0].Status != job.ErroredOut {
		t.Fatalf("expected ErroredOut once tries are exhausted, got %v", units[0].Status)
	}

	gotPosting, err := obs.GetPosting(ctx, posting.Id)
	if err != nil {
		t.Fatal(err)
	}
	if gotPosting.Status != job.ErroredOut {
		t.Fatalf("expected posting ErroredOut, got %v", gotPosting.Status)
	}
}

// TestRecomputePostingStatusConcurrentCompletions guards against the
// lost-update race in recomputePostingStatus: two workers completing
// the last two units of the same posting in overlapping transactions
// must not both observe the other's units as still in flight and skip
// the final status update.
func TestRecomputePostingStatusConcurrentCompletions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	disp := pdoflowsql.NewDispatcher(db)
	obs := pdoflowsql.NewObserver(db)

	posting := newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}, {Priority: 1}})

	units, err := disp.Claim(ctx, 10)
	if err != nil || len(units) != 2 {
		t.Fatalf("claim: %v, units=%d", err, len(units))
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, unit := range units {
		wg.Add(1)
		go func(i int, rec *job.JobRecord) {
			defer wg.Done()
			errs[i] = disp.Succeed(ctx, rec, nil)
		}(i, unit.JobRecord)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	gotPosting, err := obs.GetPosting(ctx, posting.Id)
	if err != nil {
		t.Fatal(err)
	}
	if gotPosting.Status != job.Done {
		t.Fatalf("expected posting Done once both concurrently-completed units succeed, got %v", gotPosting.Status)
	}
}

func TestClaimIgnoresPausedPosting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sub := pdoflowsql.NewSubmitter(db)
	disp := pdoflowsql.NewDispatcher(db)

	posting := newPosting(t, ctx, sub, []pdoflow.JobInput{{Priority: 1}})
	if err := pdoflowsql.SetPostingStatus(ctx, db, posting.Id, job.Paused); err != nil {
		t.Fatal(err)
	}

	units, err := disp.Claim(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 0 {
		t.Fatalf("expected no claims for a paused posting, got %d", len(units))
	}
}
