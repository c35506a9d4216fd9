package pdoflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

type fakeRetention struct {
	mu    sync.Mutex
	calls int32
	n     int64
	err   error
}

func (r *fakeRetention) Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n, r.err
}

func TestRetentionWorkerInvokesCleanPeriodically(t *testing.T) {
	ret := &fakeRetention{n: 3}
	rw := NewRetentionWorker(ret, &RetentionConfig{
		Status:   job.Done,
		Interval: time.Millisecond,
	}, discardLogger())

	if err := rw.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer rw.Stop(time.Second)

	waitFor(t, time.Second, func() bool {
		return atomic.LoadInt32(&ret.calls) >= 2
	})
}

func TestRetentionWorkerDoubleStart(t *testing.T) {
	ret := &fakeRetention{}
	rw := NewRetentionWorker(ret, &RetentionConfig{Interval: time.Second}, discardLogger())

	if err := rw.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer rw.Stop(time.Second)

	if err := rw.Start(context.Background()); err != ErrDoubleStarted {
		t.Fatalf("got %v, want ErrDoubleStarted", err)
	}
}

func TestRetentionWorkerDoubleStop(t *testing.T) {
	ret := &fakeRetention{}
	rw := NewRetentionWorker(ret, &RetentionConfig{Interval: time.Second}, discardLogger())

	if err := rw.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rw.Stop(time.Second); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := rw.Stop(time.Second); err != ErrDoubleStopped {
		t.Fatalf("got %v, want ErrDoubleStopped", err)
	}
}
